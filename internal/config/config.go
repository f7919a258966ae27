// Package config provides the configuration structure for sesame-tts.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Defaults applied to fields left unset in the project TOML.
const (
	DefaultEndpointURL    = "https://api-inference.huggingface.co/models/sesame/csm-1b"
	DefaultTimeoutSeconds = 60
	DefaultMaxRetries     = 3
	DefaultBackoffSeconds = 1
)

// SynthesisConfig holds the remote inference endpoint settings and the
// retry policy for transient unavailability.
type SynthesisConfig struct {
	EndpointURL    string `toml:"endpoint_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
	BackoffSeconds int    `toml:"backoff_seconds"`
}

// TranscriptionConfig holds the optional reference-text capture settings
// used during voice profile extraction.
type TranscriptionConfig struct {
	Enabled     bool   `toml:"enabled"`
	EndpointURL string `toml:"endpoint_url"`
	Model       string `toml:"model"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	OutputDir        string `toml:"output_dir"`
	VoiceProfilesDir string `toml:"voice_profiles_dir"`
	BaseLogsDir      string `toml:"base_logs_dir"`
}

// NATSConfig holds the configuration for service mode.
type NATSConfig struct {
	URL                    string `toml:"url"`
	SynthesisSubject       string `toml:"synthesis_subject"`
	AudioObjectStoreBucket string `toml:"audio_object_store_bucket"`
}

// Config is the root configuration structure.
type Config struct {
	Synthesis     SynthesisConfig     `toml:"synthesis"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Paths         PathsConfig         `toml:"paths"`
	NATS          NATSConfig          `toml:"nats"`
}

// Load loads the configuration for sesame-tts and fills in defaults for
// unset synthesis fields.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Synthesis.EndpointURL == "" {
		c.Synthesis.EndpointURL = DefaultEndpointURL
	}

	if c.Synthesis.TimeoutSeconds <= 0 {
		c.Synthesis.TimeoutSeconds = DefaultTimeoutSeconds
	}

	if c.Synthesis.MaxRetries <= 0 {
		c.Synthesis.MaxRetries = DefaultMaxRetries
	}

	if c.Synthesis.BackoffSeconds <= 0 {
		c.Synthesis.BackoffSeconds = DefaultBackoffSeconds
	}
}
