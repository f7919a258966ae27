// Package core defines the domain types and interfaces shared by the
// synthesis client, the voice profile store, and the service-mode worker.
package core

import "context"

// VoiceParameters holds the synthesis-tuning values carried by a voice
// profile. Zero pitch and timbre with a pace of 1.0 are the neutral values
// the service treats as "no adjustment".
type VoiceParameters struct {
	Pitch  float64 `json:"pitch"`
	Timbre float64 `json:"timbre"`
	Pace   float64 `json:"pace"`
}

// VoiceProfile is the persisted record for one cloned voice. A profile is
// immutable once written; re-extracting under the same name replaces the
// whole record. ReferenceText is an additive key and may be absent in
// profiles written by older versions.
type VoiceProfile struct {
	Name          string          `json:"name"`
	Created       int64           `json:"created"`
	SourceFile    string          `json:"source_file"`
	ReferenceText string          `json:"reference_text,omitempty"`
	Parameters    VoiceParameters `json:"parameters"`
}

// SynthesisRequest is the ephemeral input for one synthesis call. A nil
// Parameters means the service default voice.
type SynthesisRequest struct {
	Text       string
	VoiceName  string
	Parameters *VoiceParameters
}

// Synthesizer turns text into a persisted audio artifact and returns its
// path. Implementations own the retry policy for transient backend failures.
type Synthesizer interface {
	Speak(ctx context.Context, text string) (string, error)
	SpeakWithVoice(ctx context.Context, text, voiceName string) (string, error)
}

// ProfileStore persists and retrieves named voice profiles.
type ProfileStore interface {
	Extract(ctx context.Context, samplePath, name string) error
	List() ([]string, error)
	Load(name string) (VoiceProfile, error)
}

// ParameterExtractor derives synthesis-tuning values from a voice sample.
// The shipped implementation stores neutral values; a real acoustic model
// plugs in behind this interface.
type ParameterExtractor interface {
	ExtractParameters(samplePath string) (VoiceParameters, error)
}

// ObjectStore is the blob storage used in service mode for job inputs and
// generated audio.
type ObjectStore interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, data []byte) error
}
