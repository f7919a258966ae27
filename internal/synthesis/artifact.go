package synthesis

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/book-expert/sesame-tts/internal/core"
)

// File and directory permissions.
const (
	filePermissions = 0o600
	dirPermissions  = 0o750
)

// Artifact name formats. The UUID suffix keeps names collision-free for
// calls landing in the same second.
const (
	artifactFormat      = "output_%d_%s.wav"
	artifactVoiceFormat = "output_%s_%d_%s.wav"
)

// allocateArtifactName returns a fresh output filename derived from the
// current timestamp, the voice name for cloned-voice calls, and a unique
// suffix.
func (e *Engine) allocateArtifactName(voiceName string) string {
	timestamp := e.now().Unix()
	suffix := uuid.NewString()

	if voiceName == "" {
		return fmt.Sprintf(artifactFormat, timestamp, suffix)
	}

	return fmt.Sprintf(artifactVoiceFormat, voiceName, timestamp, suffix)
}

// writeArtifact persists audio bytes all-or-nothing: the data lands in a
// temp file in the output directory and is renamed into place, so a caller
// never receives the path of a truncated artifact.
func (e *Engine) writeArtifact(voiceName string, audioData []byte) (string, error) {
	dirErr := os.MkdirAll(e.outputDir, dirPermissions)
	if dirErr != nil {
		return "", fmt.Errorf("%w: failed to create output directory: %v", core.ErrPersistence, dirErr)
	}

	outputPath := filepath.Join(e.outputDir, e.allocateArtifactName(voiceName))

	tempFile, err := os.CreateTemp(e.outputDir, ".output-*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: failed to create temp file: %v", core.ErrPersistence, err)
	}

	_, writeErr := tempFile.Write(audioData)
	closeErr := tempFile.Close()

	if writeErr != nil || closeErr != nil {
		removeErr := os.Remove(tempFile.Name())
		if removeErr != nil {
			e.log.Warn("Failed to remove temp file '%s': %v", tempFile.Name(), removeErr)
		}

		if writeErr != nil {
			return "", fmt.Errorf("%w: failed to write audio data: %v", core.ErrPersistence, writeErr)
		}

		return "", fmt.Errorf("%w: failed to close temp file: %v", core.ErrPersistence, closeErr)
	}

	chmodErr := os.Chmod(tempFile.Name(), filePermissions)
	if chmodErr != nil {
		e.log.Warn("Failed to set permissions on '%s': %v", tempFile.Name(), chmodErr)
	}

	renameErr := os.Rename(tempFile.Name(), outputPath)
	if renameErr != nil {
		removeErr := os.Remove(tempFile.Name())
		if removeErr != nil {
			e.log.Warn("Failed to remove temp file '%s': %v", tempFile.Name(), removeErr)
		}

		return "", fmt.Errorf("%w: failed to finalize artifact: %v", core.ErrPersistence, renameErr)
	}

	return outputPath, nil
}
