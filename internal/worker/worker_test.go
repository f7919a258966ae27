// Package worker_test tests the synthesis job worker.
package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/sesame-tts/internal/worker"
)

var (
	errMockFetch = errors.New("mock fetch error")
	errMockStore = errors.New("mock store error")
	errMockSpeak = errors.New("mock speak error")
)

// mockObjectStore is a mock implementation of the ObjectStore interface.
type mockObjectStore struct {
	fetchShouldFail bool
	storeShouldFail bool
	fetchedKey      string
	storedKey       string
	storedData      []byte
}

func (m *mockObjectStore) Fetch(_ context.Context, key string) ([]byte, error) {
	if m.fetchShouldFail {
		return nil, errMockFetch
	}

	m.fetchedKey = key

	return []byte("sample text"), nil
}

func (m *mockObjectStore) Store(_ context.Context, key string, data []byte) error {
	if m.storeShouldFail {
		return errMockStore
	}

	m.storedKey = key
	m.storedData = data

	return nil
}

// mockSynthesizer is a mock implementation of the Synthesizer interface
// that writes a real artifact file, like the engine does.
type mockSynthesizer struct {
	dir             string
	speakShouldFail bool
	spokenText      string
	spokenVoice     string
}

func (m *mockSynthesizer) Speak(_ context.Context, text string) (string, error) {
	if m.speakShouldFail {
		return "", errMockSpeak
	}

	m.spokenText = text
	artifactPath := filepath.Join(m.dir, uuid.NewString()+".wav")

	err := os.WriteFile(artifactPath, []byte("sample audio"), 0o600)
	if err != nil {
		return "", err
	}

	return artifactPath, nil
}

func (m *mockSynthesizer) SpeakWithVoice(ctx context.Context, text, voiceName string) (string, error) {
	m.spokenVoice = voiceName

	return m.Speak(ctx, text)
}

func createTestNatsClient(t *testing.T) *nats.Conn {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1 // Use a random port
	server := test.RunServer(&opts)

	natsConnection, err := nats.Connect(server.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	t.Cleanup(func() {
		natsConnection.Close()
		server.Shutdown()
	})

	return natsConnection
}

func setupTest(t *testing.T) (*mockObjectStore, *mockSynthesizer, *nats.Conn) {
	t.Helper()

	mockStore := &mockObjectStore{
		fetchShouldFail: false,
		storeShouldFail: false,
		fetchedKey:      "",
		storedKey:       "",
		storedData:      nil,
	}
	mockSynth := &mockSynthesizer{
		dir:             t.TempDir(),
		speakShouldFail: false,
		spokenText:      "",
		spokenVoice:     "",
	}

	natsConnection := createTestNatsClient(t)

	testLogger, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	workerInstance, err := worker.New(natsConnection, "test.synthesis", mockStore, mockSynth, testLogger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	errChan := make(chan error, 1)

	go func() {
		errChan <- workerInstance.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()

		shutdownErr := <-errChan
		assert.NoError(t, shutdownErr, "worker.Run should not error on graceful shutdown")
	})

	return mockStore, mockSynth, natsConnection
}

func newJobEvent(voice string) *events.TextProcessedEvent {
	return &events.TextProcessedEvent{
		Header: events.EventHeader{
			Timestamp:  time.Now(),
			WorkflowID: uuid.NewString(),
			EventID:    uuid.NewString(),
			UserID:     "",
			TenantID:   "",
		},
		TextKey:           "test-text-key",
		PNGKey:            "",
		PageNumber:        1,
		TotalPages:        1,
		Voice:             voice,
		Seed:              0,
		NGL:               0,
		TopP:              0,
		RepetitionPenalty: 0,
		Temperature:       0,
	}
}

func TestSynthesisWorker_Success(t *testing.T) {
	t.Parallel()

	mockStore, mockSynth, natsConnection := setupTest(t)

	testEvent := newJobEvent("")
	eventData, err := json.Marshal(testEvent)
	require.NoError(t, err)

	replyMsg, err := natsConnection.Request("test.synthesis", eventData, 5*time.Second)
	require.NoError(t, err, "Request should succeed and receive a reply")

	var reply events.AudioChunkCreatedEvent

	err = json.Unmarshal(replyMsg.Data, &reply)
	require.NoError(t, err)

	assert.Equal(t, "test-text-key", mockStore.fetchedKey)
	assert.Equal(t, "sample text", mockSynth.spokenText)
	assert.Empty(t, mockSynth.spokenVoice)
	assert.NotEmpty(t, mockStore.storedKey, "An audio key should have been generated and stored")
	assert.Equal(t, []byte("sample audio"), mockStore.storedData)
	assert.Equal(t, mockStore.storedKey, reply.AudioKey)
	assert.Equal(t, testEvent.Header.WorkflowID, reply.Header.WorkflowID)
}

func TestSynthesisWorker_SuccessWithVoice(t *testing.T) {
	t.Parallel()

	mockStore, mockSynth, natsConnection := setupTest(t)

	testEvent := newJobEvent("alice")
	eventData, err := json.Marshal(testEvent)
	require.NoError(t, err)

	replyMsg, err := natsConnection.Request("test.synthesis", eventData, 5*time.Second)
	require.NoError(t, err)

	var reply events.AudioChunkCreatedEvent

	err = json.Unmarshal(replyMsg.Data, &reply)
	require.NoError(t, err)

	assert.Equal(t, "alice", mockSynth.spokenVoice)
	assert.Equal(t, mockStore.storedKey, reply.AudioKey)
}

func TestSynthesisWorker_NoReplyOnFetchFailure(t *testing.T) {
	t.Parallel()

	mockStore, _, natsConnection := setupTest(t)
	mockStore.fetchShouldFail = true

	eventData, err := json.Marshal(newJobEvent(""))
	require.NoError(t, err)

	_, err = natsConnection.Request("test.synthesis", eventData, 500*time.Millisecond)
	require.Error(t, err, "a failed job must not produce a reply event")
}

func TestSynthesisWorker_NoReplyOnMissingTextKey(t *testing.T) {
	t.Parallel()

	_, _, natsConnection := setupTest(t)

	testEvent := newJobEvent("")
	testEvent.TextKey = ""
	eventData, err := json.Marshal(testEvent)
	require.NoError(t, err)

	_, err = natsConnection.Request("test.synthesis", eventData, 500*time.Millisecond)
	require.Error(t, err, "an invalid job must not produce a reply event")
}
