// Package voiceprofile_test tests the voice profile store.
package voiceprofile_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/sesame-tts/internal/core"
	"github.com/book-expert/sesame-tts/internal/voiceprofile"
)

var errMockTranscribe = errors.New("mock transcription error")

// mockTranscriber is a mock implementation of the Transcriber interface.
type mockTranscriber struct {
	shouldFail      bool
	transcribedPath string
}

func (m *mockTranscriber) Transcribe(_ context.Context, audioPath string) (string, error) {
	if m.shouldFail {
		return "", errMockTranscribe
	}

	m.transcribedPath = audioPath

	return "reference text from sample", nil
}

func createTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	lg, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)
	t.Cleanup(func() { lg.Close() })

	return lg
}

func createSampleFile(t *testing.T) string {
	t.Helper()

	samplePath := filepath.Join(t.TempDir(), "sample.wav")
	err := os.WriteFile(samplePath, []byte("RIFF-sample"), 0o600)
	require.NoError(t, err)

	return samplePath
}

func createTestStore(t *testing.T, transcriber voiceprofile.Transcriber) (*voiceprofile.Store, string) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "voice_models")
	store, err := voiceprofile.NewStore(dir, voiceprofile.NeutralExtractor{}, transcriber, createTestLogger(t))
	require.NoError(t, err)

	return store, dir
}

func TestStore_ExtractAndList(t *testing.T) {
	t.Parallel()

	store, _ := createTestStore(t, nil)
	samplePath := createSampleFile(t)

	err := store.Extract(context.Background(), samplePath, "alice")
	require.NoError(t, err)

	names, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, names)
}

func TestStore_ExtractOverwritesSameName(t *testing.T) {
	t.Parallel()

	store, _ := createTestStore(t, nil)
	samplePath := createSampleFile(t)

	require.NoError(t, store.Extract(context.Background(), samplePath, "alice"))
	require.NoError(t, store.Extract(context.Background(), samplePath, "alice"))

	names, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, names, "re-extraction must overwrite, not duplicate")
}

func TestStore_ExtractMissingSample(t *testing.T) {
	t.Parallel()

	store, _ := createTestStore(t, nil)

	err := store.Extract(context.Background(), "/does/not/exist.wav", "alice")
	require.ErrorIs(t, err, core.ErrSourceNotFound)
}

func TestStore_ExtractNameValidation(t *testing.T) {
	t.Parallel()

	store, _ := createTestStore(t, nil)
	samplePath := createSampleFile(t)

	err := store.Extract(context.Background(), samplePath, "")
	require.ErrorIs(t, err, core.ErrNameEmpty)

	err = store.Extract(context.Background(), samplePath, "../escape")
	require.ErrorIs(t, err, core.ErrNameInvalid)
}

func TestStore_ListEmptyStore(t *testing.T) {
	t.Parallel()

	store, _ := createTestStore(t, nil)

	names, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestStore_LoadRoundTrip(t *testing.T) {
	t.Parallel()

	store, _ := createTestStore(t, nil)
	samplePath := createSampleFile(t)

	require.NoError(t, store.Extract(context.Background(), samplePath, "alice"))

	profile, err := store.Load("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Name)
	assert.Equal(t, samplePath, profile.SourceFile)
	assert.Positive(t, profile.Created)
	assert.InEpsilon(t, 1.0, profile.Parameters.Pace, 0.001)
	assert.Zero(t, profile.Parameters.Pitch)
	assert.Zero(t, profile.Parameters.Timbre)
}

func TestStore_LoadUnknownProfile(t *testing.T) {
	t.Parallel()

	store, _ := createTestStore(t, nil)

	_, err := store.Load("ghost")
	require.ErrorIs(t, err, core.ErrProfileNotFound)
}

func TestStore_LoadAppliesDefaultsForMissingKeys(t *testing.T) {
	t.Parallel()

	store, dir := createTestStore(t, nil)

	// A record written by an older version, before pace and timbre existed.
	legacyRecord := []byte(`{"name": "legacy", "created": 1700000000, "source_file": "old.wav", "parameters": {"pitch": 0.5}}`)

	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "legacy.json"), legacyRecord, 0o600))

	profile, err := store.Load("legacy")
	require.NoError(t, err)
	assert.InEpsilon(t, 0.5, profile.Parameters.Pitch, 0.001)
	assert.Zero(t, profile.Parameters.Timbre)
	assert.InEpsilon(t, 1.0, profile.Parameters.Pace, 0.001, "missing pace must default to neutral")
}

func TestStore_ExtractWithTranscriber(t *testing.T) {
	t.Parallel()

	transcriber := &mockTranscriber{shouldFail: false, transcribedPath: ""}
	store, _ := createTestStore(t, transcriber)
	samplePath := createSampleFile(t)

	require.NoError(t, store.Extract(context.Background(), samplePath, "alice"))
	assert.Equal(t, samplePath, transcriber.transcribedPath)

	profile, err := store.Load("alice")
	require.NoError(t, err)
	assert.Equal(t, "reference text from sample", profile.ReferenceText)
}

func TestStore_ExtractFailsWhenTranscriptionFails(t *testing.T) {
	t.Parallel()

	transcriber := &mockTranscriber{shouldFail: true, transcribedPath: ""}
	store, _ := createTestStore(t, transcriber)
	samplePath := createSampleFile(t)

	err := store.Extract(context.Background(), samplePath, "alice")
	require.ErrorIs(t, err, errMockTranscribe)

	names, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, names, "a failed extraction must not leave a profile behind")
}
