// main package for the sesame-service
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/sesame-tts/internal/config"
	"github.com/book-expert/sesame-tts/internal/objectstore"
	"github.com/book-expert/sesame-tts/internal/synthesis"
	"github.com/book-expert/sesame-tts/internal/voiceprofile"
	"github.com/book-expert/sesame-tts/internal/worker"
)

const envAPIToken = "HF_API_TOKEN"

var errAPITokenNotSet = errors.New("HF_API_TOKEN environment variable not set")

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	bootstrapLog, err := setupLogger(os.TempDir(), "sesame-service-bootstrap.log")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, "sesame-service.log")
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	return runService(cfg, finalLog)
}

func runService(cfg *config.Config, log *logger.Logger) error {
	token := os.Getenv(envAPIToken)
	if token == "" {
		log.Error("Credential check failed: %v", errAPITokenNotSet)

		return errAPITokenNotSet
	}

	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to get JetStream context: %w", err)
	}

	bucket, err := objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		return fmt.Errorf("failed to create object store: %w", err)
	}

	synthesisWorker, err := buildWorker(cfg, token, natsConnection, bucket, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.System("Sesame-Service initialized. Listening for jobs on subject: %s", cfg.NATS.SynthesisSubject)

	err = synthesisWorker.Run(ctx)
	if err != nil {
		return fmt.Errorf("worker stopped with error: %w", err)
	}

	log.System("Sesame-Service shut down.")

	return nil
}

// buildWorker wires the profile store, the synthesis engine, and the NATS
// worker. The service never extracts profiles, so no transcriber is attached.
func buildWorker(
	cfg *config.Config,
	token string,
	natsConnection *nats.Conn,
	bucket *objectstore.Bucket,
	log *logger.Logger,
) (*worker.SynthesisWorker, error) {
	store, err := voiceprofile.NewStore(cfg.Paths.VoiceProfilesDir, voiceprofile.NeutralExtractor{}, nil, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create voice profile store: %w", err)
	}

	engine, err := synthesis.NewEngine(synthesis.EngineConfig{
		EndpointURL: cfg.Synthesis.EndpointURL,
		Token:       token,
		OutputDir:   cfg.Paths.OutputDir,
		Timeout:     time.Duration(cfg.Synthesis.TimeoutSeconds) * time.Second,
		MaxRetries:  cfg.Synthesis.MaxRetries,
		BackoffUnit: time.Duration(cfg.Synthesis.BackoffSeconds) * time.Second,
		Sleep:       nil,
	}, store, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis engine: %w", err)
	}

	synthesisWorker, err := worker.New(natsConnection, cfg.NATS.SynthesisSubject, bucket, engine, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis worker: %w", err)
	}

	return synthesisWorker, nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
