// Package voiceprofile persists named voice parameter profiles as JSON
// files on local disk: one record per profile, keyed by name, overwritten
// whole on re-extraction.
package voiceprofile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/sesame-tts/internal/core"
)

// File and directory permissions.
const (
	filePermissions = 0o600
	dirPermissions  = 0o750
)

const (
	profileExtension = ".json"
	defaultPace      = 1.0
)

// Profile names become filenames, so they are restricted to a conservative
// token alphabet instead of being sanitized silently.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Transcriber captures reference text from a voice sample. Optional; a nil
// transcriber keeps extraction fully local.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Store is the voice profile store. It holds no cache: every List and Load
// reads the backing directory, so results always reflect current disk state.
type Store struct {
	dir         string
	extractor   core.ParameterExtractor
	transcriber Transcriber
	log         *logger.Logger
	now         func() time.Time
}

// ErrProfilesDirEmpty indicates the store was constructed without a
// backing directory.
var ErrProfilesDirEmpty = errors.New("voice profiles directory cannot be empty")

// NewStore creates a profile store backed by dir. The extractor supplies
// the tuning parameters for new profiles; transcriber may be nil.
func NewStore(
	dir string,
	extractor core.ParameterExtractor,
	transcriber Transcriber,
	log *logger.Logger,
) (*Store, error) {
	if dir == "" {
		return nil, ErrProfilesDirEmpty
	}

	return &Store{
		dir:         dir,
		extractor:   extractor,
		transcriber: transcriber,
		log:         log,
		now:         time.Now,
	}, nil
}

// Extract registers a named profile from a voice sample, overwriting any
// existing profile of the same name. The sample itself is only referenced,
// never copied; parameter values come from the configured extractor.
func (s *Store) Extract(ctx context.Context, samplePath, name string) error {
	err := validateName(name)
	if err != nil {
		return err
	}

	_, statErr := os.Stat(samplePath)
	if statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", core.ErrSourceNotFound, samplePath)
		}

		return fmt.Errorf("%w: failed to stat sample: %v", core.ErrPersistence, statErr)
	}

	parameters, err := s.extractor.ExtractParameters(samplePath)
	if err != nil {
		return fmt.Errorf("failed to extract voice parameters: %w", err)
	}

	profile := core.VoiceProfile{
		Name:          name,
		Created:       s.now().Unix(),
		SourceFile:    samplePath,
		ReferenceText: "",
		Parameters:    parameters,
	}

	if s.transcriber != nil {
		referenceText, transcribeErr := s.transcriber.Transcribe(ctx, samplePath)
		if transcribeErr != nil {
			return fmt.Errorf("failed to transcribe voice sample: %w", transcribeErr)
		}

		profile.ReferenceText = referenceText
	}

	writeErr := s.writeProfile(profile)
	if writeErr != nil {
		return writeErr
	}

	s.log.Info("Voice profile saved: %s", s.profilePath(name))

	return nil
}

// List enumerates the names of all persisted profiles. A store directory
// that does not exist yet is an empty store, not a failure.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}

		return nil, fmt.Errorf("%w: failed to read profiles directory: %v", core.ErrPersistence, err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), profileExtension) {
			continue
		}

		names = append(names, strings.TrimSuffix(entry.Name(), profileExtension))
	}

	return names, nil
}

// Load reads the named profile. Parameter keys absent from the record get
// neutral defaults, so profiles written before a key existed stay readable.
func (s *Store) Load(name string) (core.VoiceProfile, error) {
	err := validateName(name)
	if err != nil {
		return core.VoiceProfile{}, err
	}

	data, err := os.ReadFile(s.profilePath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.VoiceProfile{}, fmt.Errorf("%w: %s", core.ErrProfileNotFound, name)
		}

		return core.VoiceProfile{}, fmt.Errorf("%w: failed to read profile '%s': %v", core.ErrPersistence, name, err)
	}

	profile := core.VoiceProfile{
		Name:          name,
		Created:       0,
		SourceFile:    "",
		ReferenceText: "",
		Parameters:    core.VoiceParameters{Pitch: 0, Timbre: 0, Pace: defaultPace},
	}

	err = json.Unmarshal(data, &profile)
	if err != nil {
		return core.VoiceProfile{}, fmt.Errorf("%w: failed to parse profile '%s': %v", core.ErrPersistence, name, err)
	}

	return profile, nil
}

func (s *Store) profilePath(name string) string {
	return filepath.Join(s.dir, name+profileExtension)
}

// writeProfile persists the record atomically: temp file then rename, so a
// concurrent reader never observes a half-written profile.
func (s *Store) writeProfile(profile core.VoiceProfile) error {
	dirErr := os.MkdirAll(s.dir, dirPermissions)
	if dirErr != nil {
		return fmt.Errorf("%w: failed to create profiles directory: %v", core.ErrPersistence, dirErr)
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal profile '%s': %v", core.ErrPersistence, profile.Name, err)
	}

	tempFile, err := os.CreateTemp(s.dir, ".profile-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %v", core.ErrPersistence, err)
	}

	_, writeErr := tempFile.Write(data)
	closeErr := tempFile.Close()

	if writeErr != nil || closeErr != nil {
		removeErr := os.Remove(tempFile.Name())
		if removeErr != nil {
			s.log.Warn("Failed to remove temp file '%s': %v", tempFile.Name(), removeErr)
		}

		if writeErr != nil {
			return fmt.Errorf("%w: failed to write profile '%s': %v", core.ErrPersistence, profile.Name, writeErr)
		}

		return fmt.Errorf("%w: failed to close temp file: %v", core.ErrPersistence, closeErr)
	}

	chmodErr := os.Chmod(tempFile.Name(), filePermissions)
	if chmodErr != nil {
		s.log.Warn("Failed to set permissions on '%s': %v", tempFile.Name(), chmodErr)
	}

	renameErr := os.Rename(tempFile.Name(), s.profilePath(profile.Name))
	if renameErr != nil {
		removeErr := os.Remove(tempFile.Name())
		if removeErr != nil {
			s.log.Warn("Failed to remove temp file '%s': %v", tempFile.Name(), removeErr)
		}

		return fmt.Errorf("%w: failed to finalize profile '%s': %v", core.ErrPersistence, profile.Name, renameErr)
	}

	return nil
}

func validateName(name string) error {
	if name == "" {
		return core.ErrNameEmpty
	}

	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: '%s'", core.ErrNameInvalid, name)
	}

	return nil
}
