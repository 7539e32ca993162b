// Package ports defines interfaces for dependency inversion.
// These interfaces allow the core business logic to remain independent of external frameworks.
package ports

import (
	"time"

	"github.com/auralis-music/auralis/internal/domain"
)

// TransportStatus reports the decode/transport state of the audio engine.
type TransportStatus int

const (
	// TransportStopped indicates no source is playing
	TransportStopped TransportStatus = iota

	// TransportPlaying indicates the source is playing
	TransportPlaying

	// TransportPaused indicates the source is paused
	TransportPaused
)

// AudioEngine abstracts the decode/transport resource. Exactly one source is
// live at a time: Load implicitly releases any previously loaded source.
//
// Implementations must be thread-safe as they may be called from multiple
// goroutines.
type AudioEngine interface {
	// Load prepares the source at path for playback and reports its duration.
	// Loading replaces any previously loaded source. A failure leaves the
	// engine with no source loaded and returns a *domain.LoadError.
	Load(path string) (time.Duration, error)

	// Play starts or resumes playback of the loaded source.
	Play() error

	// Pause pauses playback, preserving position.
	Pause() error

	// Stop halts playback and releases the loaded source.
	Stop() error

	// Seek sets the playback position. Positions outside [0, duration] are
	// rejected with domain.ErrInvalidPosition; callers clamp before seeking.
	Seek(position time.Duration) error

	// Position returns the current playback position of the loaded source.
	Position() (time.Duration, error)

	// Duration returns the total duration of the loaded source.
	Duration() (time.Duration, error)

	// Status returns the current transport status.
	Status() (TransportStatus, error)

	// Close releases all engine resources.
	Close() error
}

// MetadataReader extracts song metadata from a local audio file without
// loading it for playback. Used by the library import path.
type MetadataReader interface {
	// ReadMetadata returns a Song populated from the file's tags. The song is
	// not persisted; the caller assigns identity via the repository.
	ReadMetadata(path string) (*domain.Song, error)
}
