// Command sesame-client converts text to speech through the remote
// inference endpoint and manages cloned voice profiles.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/sesame-tts/internal/config"
	"github.com/book-expert/sesame-tts/internal/core"
	"github.com/book-expert/sesame-tts/internal/retry"
	"github.com/book-expert/sesame-tts/internal/synthesis"
	"github.com/book-expert/sesame-tts/internal/transcribe"
	"github.com/book-expert/sesame-tts/internal/voiceprofile"
)

// Flag names.
const (
	flagText       = "text"
	flagVoice      = "voice"
	flagExtract    = "extract"
	flagName       = "name"
	flagListVoices = "list-voices"
	flagOutput     = "output"
	flagVerbose    = "verbose"
)

// Flag descriptions.
const (
	flagTextDesc       = "Text to convert to speech"
	flagVoiceDesc      = "Name of a cloned voice profile to speak with"
	flagExtractDesc    = "Path to an audio sample to extract a voice profile from"
	flagNameDesc       = "Name for the extracted voice profile"
	flagListVoicesDesc = "List available voice profiles and exit"
	flagOutputDesc     = "Output directory for generated audio (overrides config)"
	flagVerboseDesc    = "Enable verbose logging"
)

// Environment variables.
const (
	envAPIToken           = "HF_API_TOKEN"
	envTranscriptionToken = "OPENAI_API_KEY"
)

// Error and log messages.
const (
	errAPITokenNotSet           = "HF_API_TOKEN environment variable not set"
	errTranscriptionTokenNotSet = "OPENAI_API_KEY environment variable not set (required when transcription is enabled)"
	errNoOperation              = "one of --text, --extract or --list-voices must be provided"
	errTextAndExtract           = "cannot specify both --text and --extract"
	errExtractNeedsName         = "--extract requires --name"
)

// File names.
const (
	logFileNameDefault = "sesame-client.log"
	logFileNameVerbose = "sesame-client-verbose.log"
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	text       string
	voice      string
	extract    string
	name       string
	output     string
	listVoices bool
	verbose    bool
}

func main() {
	err := run()
	if err != nil {
		// The logger may not be initialized yet, so use the standard log package.
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	cfg, appLogger, err := setup(flags.verbose)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := appLogger.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	if flags.output != "" {
		cfg.Paths.OutputDir = flags.output
	}

	store, engine, err := buildComponents(cfg, appLogger)
	if err != nil {
		return err
	}

	return dispatch(store, engine, appLogger, flags)
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.text, flagText, "", flagTextDesc)
	flag.StringVar(&flags.voice, flagVoice, "", flagVoiceDesc)
	flag.StringVar(&flags.extract, flagExtract, "", flagExtractDesc)
	flag.StringVar(&flags.name, flagName, "", flagNameDesc)
	flag.StringVar(&flags.output, flagOutput, "", flagOutputDesc)
	flag.BoolVar(&flags.listVoices, flagListVoices, false, flagListVoicesDesc)
	flag.BoolVar(&flags.verbose, flagVerbose, false, flagVerboseDesc)
	flag.Parse()

	return flags
}

// setup loads the configuration and initializes the final logger.
func setup(verbose bool) (*config.Config, *logger.Logger, error) {
	bootstrapLog, err := logger.New(os.TempDir(), "sesame-client-bootstrap.log")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create bootstrap logger: %w", err)
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logFileName := logFileNameDefault
	if verbose {
		logFileName = logFileNameVerbose
	}

	appLogger, err := logger.New(cfg.Paths.BaseLogsDir, logFileName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, appLogger, nil
}

// buildComponents wires the profile store and the synthesis engine. The
// credential check happens here, before any operation runs.
func buildComponents(
	cfg *config.Config,
	appLogger *logger.Logger,
) (*voiceprofile.Store, *synthesis.Engine, error) {
	token := os.Getenv(envAPIToken)
	if token == "" {
		return nil, nil, errors.New(errAPITokenNotSet)
	}

	transcriber, err := buildTranscriber(cfg)
	if err != nil {
		return nil, nil, err
	}

	store, err := voiceprofile.NewStore(
		cfg.Paths.VoiceProfilesDir,
		voiceprofile.NeutralExtractor{},
		transcriber,
		appLogger,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create voice profile store: %w", err)
	}

	engine, err := synthesis.NewEngine(synthesis.EngineConfig{
		EndpointURL: cfg.Synthesis.EndpointURL,
		Token:       token,
		OutputDir:   cfg.Paths.OutputDir,
		Timeout:     time.Duration(cfg.Synthesis.TimeoutSeconds) * time.Second,
		MaxRetries:  cfg.Synthesis.MaxRetries,
		BackoffUnit: time.Duration(cfg.Synthesis.BackoffSeconds) * time.Second,
		Sleep:       nil,
	}, store, appLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create synthesis engine: %w", err)
	}

	return store, engine, nil
}

// buildTranscriber returns the optional reference-text transcriber, or nil
// when transcription is disabled.
func buildTranscriber(cfg *config.Config) (voiceprofile.Transcriber, error) {
	if !cfg.Transcription.Enabled {
		return nil, nil
	}

	token := os.Getenv(envTranscriptionToken)
	if token == "" {
		return nil, errors.New(errTranscriptionTokenNotSet)
	}

	client := transcribe.NewClient(
		cfg.Transcription.EndpointURL,
		token,
		cfg.Transcription.Model,
		time.Duration(cfg.Synthesis.TimeoutSeconds)*time.Second,
		retry.Policy{
			MaxAttempts: cfg.Synthesis.MaxRetries,
			BackoffUnit: time.Duration(cfg.Synthesis.BackoffSeconds) * time.Second,
			Sleep:       nil,
		},
	)

	return client, nil
}

// validateFlags enforces the flag combination rules at the application
// boundary.
func validateFlags(flags appFlags) error {
	if flags.text != "" && flags.extract != "" {
		return errors.New(errTextAndExtract)
	}

	if flags.extract != "" && flags.name == "" {
		return errors.New(errExtractNeedsName)
	}

	if !flags.listVoices && flags.text == "" && flags.extract == "" {
		return errors.New(errNoOperation)
	}

	return nil
}

// dispatch runs the requested operation.
func dispatch(
	store *voiceprofile.Store,
	engine *synthesis.Engine,
	appLogger *logger.Logger,
	flags appFlags,
) error {
	err := validateFlags(flags)
	if err != nil {
		flag.Usage()

		return err
	}

	if flags.listVoices {
		return handleListVoices(store)
	}

	if flags.extract != "" {
		return handleExtract(store, appLogger, flags.extract, flags.name)
	}

	return handleSpeak(engine, appLogger, flags.text, flags.voice)
}

func handleListVoices(store *voiceprofile.Store) error {
	names, err := store.List()
	if err != nil {
		fmt.Println(core.Describe(err))

		return err
	}

	if len(names) == 0 {
		fmt.Println("No voice profiles found")

		return nil
	}

	for _, name := range names {
		fmt.Println(name)
	}

	return nil
}

func handleExtract(store *voiceprofile.Store, appLogger *logger.Logger, samplePath, name string) error {
	err := store.Extract(context.Background(), samplePath, name)
	if err != nil {
		appLogger.Error("Failed to extract voice profile '%s': %v", name, err)
		fmt.Println(core.Describe(err))

		return err
	}

	fmt.Printf("Voice profile saved: %s\n", name)

	return nil
}

func handleSpeak(engine *synthesis.Engine, appLogger *logger.Logger, text, voice string) error {
	var (
		outputPath string
		err        error
	)

	if voice == "" {
		outputPath, err = engine.Speak(context.Background(), text)
	} else {
		outputPath, err = engine.SpeakWithVoice(context.Background(), text, voice)
	}

	if err != nil {
		appLogger.Error("Failed to generate speech: %v", err)
		fmt.Println(core.Describe(err))

		return err
	}

	fmt.Printf("Generated: %s\n", outputPath)

	return nil
}
