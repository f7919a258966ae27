package voiceprofile

import "github.com/book-expert/sesame-tts/internal/core"

// NeutralExtractor implements core.ParameterExtractor with fixed neutral
// tuning values. No acoustic analysis happens here; a model-backed
// extractor replaces this implementation behind the same interface.
type NeutralExtractor struct{}

// ExtractParameters returns neutral pitch, timbre, and pace regardless of
// the sample.
func (NeutralExtractor) ExtractParameters(_ string) (core.VoiceParameters, error) {
	return core.VoiceParameters{
		Pitch:  0.0,
		Timbre: 0.0,
		Pace:   1.0,
	}, nil
}
