// Package worker provides the NATS worker that serves synthesis jobs in
// service mode.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/sesame-tts/internal/core"
)

// Synthesis with a full retry budget can legitimately take minutes against
// a cold inference endpoint.
const handleMessageTimeout = 5 * time.Minute

// ErrTextKeyEmpty indicates a job event without a text object key.
var ErrTextKeyEmpty = errors.New("text key cannot be empty")

// SynthesisWorker listens for synthesis jobs on a NATS subject, runs them
// through the synthesis engine, and stores the audio in the object store.
type SynthesisWorker struct {
	natsConnection *nats.Conn
	subject        string
	store          core.ObjectStore
	synthesizer    core.Synthesizer
	log            *logger.Logger
}

// New creates a synthesis worker.
func New(
	natsConnection *nats.Conn,
	subject string,
	store core.ObjectStore,
	synthesizer core.Synthesizer,
	log *logger.Logger,
) (*SynthesisWorker, error) {
	return &SynthesisWorker{
		natsConnection: natsConnection,
		subject:        subject,
		store:          store,
		synthesizer:    synthesizer,
		log:            log,
	}, nil
}

// Run subscribes to the job subject and blocks until the context is
// cancelled, then drains the subscription.
func (w *SynthesisWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *SynthesisWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	event, err := parseJobEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse synthesis job: %v", err)

		return
	}

	audioKey, err := w.processJob(ctx, event)
	if err != nil {
		w.log.Error("Failed to process synthesis job for workflow %s: %v", event.Header.WorkflowID, err)

		return
	}

	reply := &events.AudioChunkCreatedEvent{
		Header:     event.Header,
		AudioKey:   audioKey,
		PageNumber: event.PageNumber,
		TotalPages: event.TotalPages,
	}

	err = w.publishReply(msg, reply)
	if err != nil {
		w.log.Error("Failed to publish reply for workflow %s: %v", event.Header.WorkflowID, err)
	}
}

// processJob fetches the job text, synthesizes it (with the event's voice
// profile when one is named), and stores the audio under a fresh key.
func (w *SynthesisWorker) processJob(ctx context.Context, event *events.TextProcessedEvent) (string, error) {
	textData, err := w.store.Fetch(ctx, event.TextKey)
	if err != nil {
		return "", fmt.Errorf("failed to fetch text for key '%s': %w", event.TextKey, err)
	}

	artifactPath, err := w.synthesize(ctx, string(textData), event.Voice)
	if err != nil {
		return "", err
	}

	audioData, err := os.ReadFile(artifactPath)
	if err != nil {
		return "", fmt.Errorf("failed to read audio artifact '%s': %w", artifactPath, err)
	}

	audioKey := uuid.NewString() + ".wav"

	err = w.store.Store(ctx, audioKey, audioData)
	if err != nil {
		return "", fmt.Errorf("failed to store audio for key '%s': %w", audioKey, err)
	}

	// The bucket holds the artifact of record now; drop the local copy.
	removeErr := os.Remove(artifactPath)
	if removeErr != nil {
		w.log.Warn("Failed to remove local artifact '%s': %v", artifactPath, removeErr)
	}

	return audioKey, nil
}

func (w *SynthesisWorker) synthesize(ctx context.Context, text, voiceName string) (string, error) {
	if voiceName == "" {
		path, err := w.synthesizer.Speak(ctx, text)
		if err != nil {
			return "", fmt.Errorf("failed to synthesize speech: %w", err)
		}

		return path, nil
	}

	path, err := w.synthesizer.SpeakWithVoice(ctx, text, voiceName)
	if err != nil {
		return "", fmt.Errorf("failed to synthesize speech with voice '%s': %w", voiceName, err)
	}

	return path, nil
}

func (w *SynthesisWorker) publishReply(msg *nats.Msg, reply *events.AudioChunkCreatedEvent) error {
	replyData, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func parseJobEvent(msg *nats.Msg) (*events.TextProcessedEvent, error) {
	var event events.TextProcessedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if event.TextKey == "" {
		return nil, ErrTextKeyEmpty
	}

	return &event, nil
}
