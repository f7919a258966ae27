package synthesis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/sesame-tts/internal/core"
	"github.com/book-expert/sesame-tts/internal/retry"
)

// Static errors.
var (
	ErrTokenEmpty     = errors.New("api token cannot be empty")
	ErrEndpointEmpty  = errors.New("endpoint url cannot be empty")
	ErrOutputDirEmpty = errors.New("output directory cannot be empty")
	ErrNoProfileStore = errors.New("no profile store configured")
)

// Log formats.
const (
	logFmtAttemptFailed    = "Synthesis attempt %d/%d failed: %v"
	logFmtAttemptSucceeded = "Synthesis attempt %d/%d succeeded (%d bytes)"
	logFmtArtifactWritten  = "Generated audio: %s (%d bytes)"
)

// EngineConfig carries the constructor parameters for an Engine. BackoffUnit
// and Sleep exist as test seams; left zero they fall back to one second and
// a blocking time.Sleep.
type EngineConfig struct {
	EndpointURL string
	Token       string
	OutputDir   string
	Timeout     time.Duration
	MaxRetries  int
	BackoffUnit time.Duration
	Sleep       func(time.Duration)
}

// Engine is the synthesis client: it issues inference requests through the
// transport, masks transient unavailability behind the bounded retry policy,
// and persists returned audio as uniquely named artifacts. Engines hold no
// mutable state beyond configuration and are safe for concurrent use.
type Engine struct {
	client    *Client
	profiles  core.ProfileStore
	policy    retry.Policy
	outputDir string
	log       *logger.Logger
	now       func() time.Time
}

// NewEngine creates a synthesis engine. An empty credential is refused here
// so a misconfigured process fails at startup, not at the first request.
// The profile store may be nil for an engine that only serves the default
// voice.
func NewEngine(cfg EngineConfig, profiles core.ProfileStore, log *logger.Logger) (*Engine, error) {
	if cfg.Token == "" {
		return nil, ErrTokenEmpty
	}

	if cfg.EndpointURL == "" {
		return nil, ErrEndpointEmpty
	}

	if cfg.OutputDir == "" {
		return nil, ErrOutputDirEmpty
	}

	policy := retry.Policy{
		MaxAttempts: cfg.MaxRetries,
		BackoffUnit: cfg.BackoffUnit,
		Sleep:       cfg.Sleep,
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = retry.DefaultMaxAttempts
	}

	return &Engine{
		client:    NewClient(cfg.EndpointURL, cfg.Token, cfg.Timeout),
		profiles:  profiles,
		policy:    policy,
		outputDir: cfg.OutputDir,
		log:       log,
		now:       time.Now,
	}, nil
}

// Speak synthesizes text with the service's default voice and returns the
// path of the written artifact.
func (e *Engine) Speak(ctx context.Context, text string) (string, error) {
	return e.generate(ctx, text, "", nil)
}

// SpeakWithVoice synthesizes text with a cloned voice. The named profile is
// resolved first; core.ErrProfileNotFound surfaces before any network call.
func (e *Engine) SpeakWithVoice(ctx context.Context, text, voiceName string) (string, error) {
	if e.profiles == nil {
		return "", ErrNoProfileStore
	}

	profile, err := e.profiles.Load(voiceName)
	if err != nil {
		return "", err
	}

	params := &requestParameters{
		VoicePreset: profile.Name,
		Pitch:       profile.Parameters.Pitch,
		Timbre:      profile.Parameters.Timbre,
		Pace:        profile.Parameters.Pace,
	}

	return e.generate(ctx, text, profile.Name, params)
}

// generate runs the attempt loop and persists the audio. The caller blocks
// through all backoff sleeps; there is exactly one in-flight request per
// call.
func (e *Engine) generate(
	ctx context.Context,
	text, voiceName string,
	params *requestParameters,
) (string, error) {
	if text == "" {
		return "", core.ErrTextEmpty
	}

	var audioData []byte

	err := retry.Do(e.policy, func(attempt int) error {
		data, attemptErr := e.client.Synthesize(ctx, text, params)
		if attemptErr != nil {
			e.log.Warn(logFmtAttemptFailed, attempt, e.policy.MaxAttempts, attemptErr)

			return attemptErr
		}

		e.log.Info(logFmtAttemptSucceeded, attempt, e.policy.MaxAttempts, len(data))
		audioData = data

		return nil
	})
	if err != nil {
		if errors.Is(err, retry.ErrTransient) {
			return "", fmt.Errorf("%w: %v", core.ErrServiceUnavailable, err)
		}

		return "", err
	}

	outputPath, err := e.writeArtifact(voiceName, audioData)
	if err != nil {
		return "", err
	}

	e.log.Info(logFmtArtifactWritten, outputPath, len(audioData))

	return outputPath, nil
}
