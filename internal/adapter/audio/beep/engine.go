// Package beep implements the AudioEngine port on top of gopxl/beep.
// Decoding covers the platform's standard mp3 path; the speaker owns the
// output device handle.
package beep

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"

	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/ports"
)

// Engine is a beep-backed implementation of the AudioEngine port.
// Exactly one decoded stream is live at a time; Load releases the previous one.
//
// Thread-safety: all methods are safe for concurrent use.
type Engine struct {
	logger *slog.Logger

	mu          sync.Mutex
	file        *os.File
	streamer    beep.StreamSeekCloser
	format      beep.Format
	ctrl        *beep.Ctrl
	status      ports.TransportStatus
	speakerInit bool
}

// NewEngine creates a new beep audio engine.
func NewEngine() *Engine {
	return &Engine{status: ports.TransportStopped}
}

// SetLogger sets the logger for this engine.
func (e *Engine) SetLogger(logger *slog.Logger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger = logger
}

// Load decodes the source at path and prepares it for playback, releasing any
// previously loaded source first.
func (e *Engine) Load(path string) (time.Duration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if path == "" {
		return 0, domain.ErrInvalidFilePath
	}

	e.releaseLocked()

	f, err := os.Open(path)
	if err != nil {
		return 0, domain.NewLoadError(path, err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return 0, domain.NewLoadError(path, err)
	}

	if !e.speakerInit {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			streamer.Close()
			return 0, domain.NewLoadError(path, err)
		}
		e.speakerInit = true
	}

	e.file = f
	e.streamer = streamer
	e.format = format
	e.status = ports.TransportStopped

	// The callback fires on the speaker goroutine when the stream drains;
	// Status then reports stopped and the service layer auto-advances.
	e.ctrl = &beep.Ctrl{
		Streamer: beep.Seq(streamer, beep.Callback(func() {
			e.mu.Lock()
			e.status = ports.TransportStopped
			e.mu.Unlock()
		})),
		Paused: true,
	}
	speaker.Play(e.ctrl)

	return e.format.SampleRate.D(streamer.Len()), nil
}

// Play starts or resumes playback of the loaded source.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl == nil {
		return domain.ErrNoSongLoaded
	}

	speaker.Lock()
	e.ctrl.Paused = false
	speaker.Unlock()
	e.status = ports.TransportPlaying
	return nil
}

// Pause pauses playback, preserving position.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctrl == nil {
		return domain.ErrNoSongLoaded
	}

	speaker.Lock()
	e.ctrl.Paused = true
	speaker.Unlock()
	e.status = ports.TransportPaused
	return nil
}

// Stop halts playback and releases the loaded source.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.releaseLocked()
	return nil
}

// Seek sets the playback position within the loaded source.
func (e *Engine) Seek(position time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return domain.ErrNoSongLoaded
	}

	if position < 0 || e.format.SampleRate.N(position) > e.streamer.Len() {
		return domain.ErrInvalidPosition
	}

	speaker.Lock()
	defer speaker.Unlock()
	return e.streamer.Seek(e.format.SampleRate.N(position))
}

// Position returns the current playback position.
func (e *Engine) Position() (time.Duration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return 0, domain.ErrNoSongLoaded
	}

	speaker.Lock()
	n := e.streamer.Position()
	speaker.Unlock()
	return e.format.SampleRate.D(n), nil
}

// Duration returns the total duration of the loaded source.
func (e *Engine) Duration() (time.Duration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return 0, domain.ErrNoSongLoaded
	}
	return e.format.SampleRate.D(e.streamer.Len()), nil
}

// Status returns the current transport status.
func (e *Engine) Status() (ports.TransportStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status, nil
}

// Close releases all engine resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.releaseLocked()
	return nil
}

// releaseLocked clears the speaker and closes the current stream.
// Caller must hold e.mu.
func (e *Engine) releaseLocked() {
	if e.speakerInit {
		speaker.Clear()
	}
	if e.streamer != nil {
		if err := e.streamer.Close(); err != nil && e.logger != nil {
			e.logger.Warn("failed to close streamer", slog.Any("error", err))
		}
		e.streamer = nil
	}
	// Closing the streamer closes the underlying file.
	e.file = nil
	e.ctrl = nil
	e.status = ports.TransportStopped
}

// Verify that Engine implements the AudioEngine interface
var _ ports.AudioEngine = (*Engine)(nil)
