// Package mock provides a mock implementation of the AudioEngine interface.
// This is used for testing services without a real decode/output path.
package mock

import (
	"sync"
	"time"

	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/ports"
)

// DefaultDuration is the simulated length of every loaded source.
const DefaultDuration = 3 * time.Minute

// Engine is a mock implementation of the AudioEngine interface.
// It simulates a single transport resource in memory without playing audio.
//
// Thread-safety: This implementation is thread-safe.
type Engine struct {
	mu sync.RWMutex

	loadedPath string
	duration   time.Duration
	position   time.Duration
	status     ports.TransportStatus

	// Behavior configuration (for testing error scenarios)
	failLoad  bool
	failPlay  bool
	loadDelay time.Duration

	loadCount int
}

// NewEngine creates a new mock audio engine.
func NewEngine() *Engine {
	return &Engine{duration: DefaultDuration}
}

// SetFailLoad configures the mock to fail loading sources (for testing).
func (m *Engine) SetFailLoad(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failLoad = fail
}

// SetFailPlay configures the mock to fail playback (for testing).
func (m *Engine) SetFailPlay(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPlay = fail
}

// SetLoadDelay makes Load block for d, to exercise in-flight load cancellation.
func (m *Engine) SetLoadDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadDelay = d
}

// SetNextDuration overrides the simulated duration of the next loaded source.
func (m *Engine) SetNextDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
}

// Load simulates preparing a source for playback.
func (m *Engine) Load(path string) (time.Duration, error) {
	m.mu.Lock()
	delay := m.loadDelay
	m.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if path == "" {
		return 0, domain.ErrInvalidFilePath
	}
	if m.failLoad {
		return 0, domain.NewLoadError(path, domain.ErrInvalidFilePath)
	}

	m.loadedPath = path
	m.position = 0
	m.status = ports.TransportStopped
	m.loadCount++

	return m.duration, nil
}

// Play starts or resumes playback.
func (m *Engine) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadedPath == "" {
		return domain.ErrNoSongLoaded
	}
	if m.failPlay {
		return domain.NewLoadError(m.loadedPath, domain.ErrNoSongLoaded)
	}

	m.status = ports.TransportPlaying
	return nil
}

// Pause pauses playback.
func (m *Engine) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadedPath == "" {
		return domain.ErrNoSongLoaded
	}
	if m.status == ports.TransportPlaying {
		m.status = ports.TransportPaused
	}
	return nil
}

// Stop halts playback and releases the source.
func (m *Engine) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loadedPath = ""
	m.position = 0
	m.status = ports.TransportStopped
	return nil
}

// Seek sets the playback position.
func (m *Engine) Seek(position time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadedPath == "" {
		return domain.ErrNoSongLoaded
	}
	if position < 0 || position > m.duration {
		return domain.ErrInvalidPosition
	}

	m.position = position
	return nil
}

// Position returns the current playback position.
func (m *Engine) Position() (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.loadedPath == "" {
		return 0, domain.ErrNoSongLoaded
	}
	return m.position, nil
}

// Duration returns the total duration of the loaded source.
func (m *Engine) Duration() (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.loadedPath == "" {
		return 0, domain.ErrNoSongLoaded
	}
	return m.duration, nil
}

// Status returns the current transport status.
func (m *Engine) Status() (ports.TransportStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status, nil
}

// Close releases the engine.
func (m *Engine) Close() error {
	return m.Stop()
}

// LoadedPath returns the currently loaded source path (for testing).
func (m *Engine) LoadedPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadedPath
}

// LoadCount returns how many loads succeeded (for testing).
func (m *Engine) LoadCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadCount
}

// SimulateProgress advances the position as if playback ran for delta.
// When the position reaches the duration, the transport stops, matching the
// natural end-of-track behavior of the real engine.
func (m *Engine) SimulateProgress(delta time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadedPath == "" {
		return domain.ErrNoSongLoaded
	}
	if m.status != ports.TransportPlaying {
		return domain.ErrNoSongLoaded
	}

	m.position += delta
	if m.position >= m.duration {
		m.position = m.duration
		m.status = ports.TransportStopped
	}
	return nil
}

// Verify that Engine implements the AudioEngine interface
var _ ports.AudioEngine = (*Engine)(nil)
