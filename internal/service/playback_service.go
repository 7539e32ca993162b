// Package service provides the business logic of the Auralis player core.
package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/ports"
)

const (
	// defaultTickInterval is the position update granularity while playing.
	defaultTickInterval = time.Second

	// previousRestartThreshold: PlayPrevious restarts the current track
	// instead of moving the queue index when playback is past this point.
	previousRestartThreshold = 3 * time.Second
)

// PlaybackService owns the single decode/transport resource and the playback
// queue. It exposes {currentSong, isPlaying, position, duration} as observable
// state via the event bus and measures listening segments for analytics.
//
// All operations are thread-safe via sync.RWMutex.
type PlaybackService struct {
	// Dependencies (injected)
	logger *slog.Logger
	engine ports.AudioEngine
	bus    ports.EventBus
	songs  ports.SongRepository

	// State
	queue       domain.PlaybackQueue
	currentSong *domain.Song
	isPlaying   bool
	isLoading   bool
	position    time.Duration
	duration    time.Duration
	lastErr     error

	// generation invalidates in-flight loads. A load whose generation no
	// longer matches was superseded and must not touch state or transport.
	generation uint64

	// Listening segment accounting. A segment opens on every play/resume and
	// closes on pause, stop, skip, or natural completion. Listened time is
	// measured from transport positions so seeks don't inflate it.
	segmentOpen     bool
	segmentStart    time.Time
	segmentStartPos time.Duration
	segmentAccum    time.Duration

	// Concurrency control
	mu            sync.RWMutex
	loadMu        sync.Mutex // serializes transport loads issued by async goroutines
	tickInterval  time.Duration
	stopTick      chan struct{}
	tickRunning   bool
	tickWg        sync.WaitGroup
	now           func() time.Time
}

// NewPlaybackService creates a new playback service and starts its position
// tick routine.
func NewPlaybackService(
	logger *slog.Logger,
	engine ports.AudioEngine,
	bus ports.EventBus,
	songs ports.SongRepository,
) *PlaybackService {
	return newPlaybackService(logger, engine, bus, songs, defaultTickInterval)
}

// newPlaybackService allows tests to shrink the tick interval.
func newPlaybackService(
	logger *slog.Logger,
	engine ports.AudioEngine,
	bus ports.EventBus,
	songs ports.SongRepository,
	tickInterval time.Duration,
) *PlaybackService {
	service := &PlaybackService{
		logger:       logger,
		engine:       engine,
		bus:          bus,
		songs:        songs,
		tickInterval: tickInterval,
		stopTick:     make(chan struct{}),
		now:          time.Now,
	}

	logger.Debug("playback service initialized")

	service.startTickRoutine()

	return service
}

// PlaySong stops any current playback, replaces the queue, and begins an
// asynchronous load of song. On ready the transport auto-starts and position
// ticks begin. A load failure surfaces as an error state without crashing the
// session, and a load superseded by a newer request is discarded.
func (s *PlaybackService) PlaySong(song domain.Song, queue []domain.Song) error {
	s.mu.Lock()

	s.logger.Debug("play song requested", slog.String("title", song.Title))

	s.closeSegmentLocked(s.position)
	s.releaseTransportLocked()

	songs := make([]domain.Song, len(queue))
	copy(songs, queue)
	index := 0
	for i, q := range songs {
		if q.ID == song.ID {
			index = i
			break
		}
	}
	s.queue = domain.PlaybackQueue{Songs: songs, Index: index}

	gen := s.beginLoadLocked(song, index)
	s.mu.Unlock()

	go s.loadAndStart(song, gen)
	return nil
}

// TogglePlayPause toggles the transport. Position ticking follows IsPlaying in
// lockstep: ticks are emitted only while playing.
func (s *PlaybackService) TogglePlayPause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentSong == nil {
		return domain.ErrNoSongLoaded
	}
	if s.isLoading {
		// The pending load auto-starts; nothing to toggle yet.
		return nil
	}

	if s.isPlaying {
		if position, err := s.engine.Position(); err == nil {
			s.position = position
		}
		if err := s.engine.Pause(); err != nil {
			return err
		}
		s.isPlaying = false
		s.closeSegmentLocked(s.position)
		s.bus.Publish(domain.NewSongPausedEvent(*s.currentSong, s.position))
		return nil
	}

	if err := s.engine.Play(); err != nil {
		return err
	}
	s.isPlaying = true
	s.openSegmentLocked()
	s.bus.Publish(domain.NewSongStartedEvent(*s.currentSong, s.segmentStart))
	return nil
}

// PlayNext advances the queue circularly and plays the song at the new index.
func (s *PlaybackService) PlayNext() error {
	return s.advance(1)
}

// PlayPrevious retreats the queue circularly. When more than three seconds
// into the current track it restarts the track instead; the queue index is
// untouched in that case.
func (s *PlaybackService) PlayPrevious() error {
	s.mu.Lock()
	if s.currentSong != nil && !s.isLoading && s.position > previousRestartThreshold {
		if err := s.engine.Seek(0); err != nil {
			s.mu.Unlock()
			return err
		}
		s.segmentAccum += s.position - s.segmentStartPos
		s.segmentStartPos = 0
		s.position = 0
		s.bus.Publish(domain.NewPlaybackProgressEvent(0, s.duration))
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	return s.advance(-1)
}

// SeekTo sets the playback position, clamped to [0, duration]. The position
// updates immediately rather than waiting for the next tick.
func (s *PlaybackService) SeekTo(position time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentSong == nil || s.isLoading {
		return domain.ErrNoSongLoaded
	}

	if position < 0 {
		position = 0
	}
	if position > s.duration {
		position = s.duration
	}

	if err := s.engine.Seek(position); err != nil {
		return err
	}

	// Skipped spans are not listened time: bank the segment so far and
	// restart position accounting at the seek target.
	if s.segmentOpen {
		s.segmentAccum += s.position - s.segmentStartPos
		s.segmentStartPos = position
	}

	s.position = position
	s.bus.Publish(domain.NewPlaybackProgressEvent(position, s.duration))
	return nil
}

// StopPlayback releases the transport, clears the queue, and resets all state
// fields to zero values. Any in-flight load is invalidated.
func (s *PlaybackService) StopPlayback() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.closeSegmentLocked(s.position)

	song := s.currentSong
	s.releaseTransportLocked()

	s.queue = domain.PlaybackQueue{}
	s.currentSong = nil
	s.isPlaying = false
	s.isLoading = false
	s.position = 0
	s.duration = 0
	s.lastErr = nil

	if song != nil {
		s.bus.Publish(domain.NewSongStoppedEvent(*song))
	}
	return nil
}

// ToggleFavorite flips the favorite flag of a song and returns the new value.
func (s *PlaybackService) ToggleFavorite(songID int64) (bool, error) {
	return s.songs.ToggleFavorite(songID)
}

// State returns a snapshot of the current playback state.
func (s *PlaybackService) State() domain.PlaybackState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := domain.PlaybackState{
		IsPlaying: s.isPlaying,
		Position:  s.position,
		Duration:  s.duration,
		IsLoading: s.isLoading,
		Err:       s.lastErr,
	}
	if s.currentSong != nil {
		song := *s.currentSong
		state.CurrentSong = &song
	}
	return state
}

// Queue returns an immutable snapshot of the playback queue.
func (s *PlaybackService) Queue() domain.PlaybackQueue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queue.Snapshot()
}

// Shutdown stops the tick routine and releases the transport.
func (s *PlaybackService) Shutdown() error {
	s.mu.Lock()
	if s.tickRunning {
		close(s.stopTick)
		s.tickRunning = false
	}
	s.mu.Unlock()

	s.tickWg.Wait()

	return s.StopPlayback()
}

// advance moves the queue index circularly by step and plays the new song.
func (s *PlaybackService) advance(step int) error {
	s.mu.Lock()

	size := len(s.queue.Songs)
	if size == 0 {
		s.mu.Unlock()
		return domain.ErrQueueEmpty
	}

	s.closeSegmentLocked(s.position)
	s.releaseTransportLocked()

	index := ((s.queue.Index+step)%size + size) % size
	s.queue.Index = index
	song := s.queue.Songs[index]

	gen := s.beginLoadLocked(song, index)
	s.mu.Unlock()

	go s.loadAndStart(song, gen)
	return nil
}

// beginLoadLocked resets state for a new load and publishes the song change.
// The position reset is part of the same state transition as the song change,
// so observers never see the new song with a stale position.
func (s *PlaybackService) beginLoadLocked(song domain.Song, index int) uint64 {
	s.generation++
	s.currentSong = &song
	s.isLoading = true
	s.isPlaying = false
	s.position = 0
	s.duration = 0
	s.lastErr = nil

	s.bus.Publish(domain.NewSongChangedEvent(song, index))
	return s.generation
}

// loadAndStart performs the asynchronous load for generation gen and, if still
// current, auto-starts playback.
func (s *PlaybackService) loadAndStart(song domain.Song, gen uint64) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.RLock()
	stale := gen != s.generation
	s.mu.RUnlock()
	if stale {
		s.logger.Debug("skipping superseded load", slog.String("title", song.Title))
		return
	}

	duration, err := s.engine.Load(song.FilePath)

	s.mu.Lock()
	if gen != s.generation {
		// A newer request or a stop arrived while loading. The next load
		// replaces the transport source; this result must not resurrect
		// stale playback.
		s.mu.Unlock()
		s.logger.Debug("discarding stale load result", slog.String("title", song.Title))
		return
	}

	if err != nil {
		s.failLoadLocked(song, err)
		s.mu.Unlock()
		return
	}

	s.duration = duration
	s.isLoading = false

	if err := s.engine.Play(); err != nil {
		s.failLoadLocked(song, err)
		s.mu.Unlock()
		return
	}

	s.isPlaying = true
	s.openSegmentLocked()
	startedAt := s.segmentStart
	s.bus.Publish(domain.NewSongStartedEvent(song, startedAt))
	s.mu.Unlock()

	if err := s.songs.UpdateLastPlayed(song.ID, startedAt); err != nil {
		s.logger.Warn("failed to update last played", slog.Any("error", err))
	}
}

// failLoadLocked records a load or start failure. Playback does not
// auto-advance on error so a failure is distinguishable from a skip.
func (s *PlaybackService) failLoadLocked(song domain.Song, err error) {
	s.logger.Debug("playback failed", slog.String("title", song.Title), slog.Any("error", err))

	s.isLoading = false
	s.isPlaying = false
	s.lastErr = err
	s.bus.Publish(domain.NewPlaybackErrorEvent(song, err))
}

// releaseTransportLocked stops the engine, ignoring failures on an idle
// transport.
func (s *PlaybackService) releaseTransportLocked() {
	if err := s.engine.Stop(); err != nil {
		s.logger.Warn("failed to stop transport", slog.Any("error", err))
	}
}

// openSegmentLocked starts measuring a new listening segment.
func (s *PlaybackService) openSegmentLocked() {
	s.segmentOpen = true
	s.segmentStart = s.now()
	s.segmentStartPos = s.position
	s.segmentAccum = 0
}

// closeSegmentLocked finishes the open listening segment, if any, and reports
// the measured listened duration. Publishing happens synchronously so the
// history row is durable by the time the segment-ending operation returns.
func (s *PlaybackService) closeSegmentLocked(position time.Duration) {
	if !s.segmentOpen || s.currentSong == nil {
		return
	}
	s.segmentOpen = false

	listened := s.segmentAccum + (position - s.segmentStartPos)
	if listened <= 0 {
		return
	}
	s.bus.Publish(domain.NewSegmentClosedEvent(*s.currentSong, s.segmentStart, listened))
}

// startTickRoutine starts the goroutine that emits position updates while
// playing and detects natural end of track. A single routine serves the whole
// service lifetime, so repeated pause/resume toggles can never stack timers.
func (s *PlaybackService) startTickRoutine() {
	s.mu.Lock()
	if s.tickRunning {
		s.mu.Unlock()
		return
	}
	s.tickRunning = true
	s.tickWg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.tickWg.Done()
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopTick:
				return

			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// tick publishes one progress update, or handles natural completion when the
// transport stopped on its own.
func (s *PlaybackService) tick() {
	s.mu.Lock()

	if !s.isPlaying || s.currentSong == nil {
		s.mu.Unlock()
		return
	}

	status, err := s.engine.Status()
	if err != nil {
		s.mu.Unlock()
		return
	}

	if status == ports.TransportStopped {
		// The track ran out on its own: close the segment at full duration,
		// then auto-advance.
		song := *s.currentSong
		s.position = s.duration
		s.isPlaying = false
		s.closeSegmentLocked(s.duration)
		s.bus.Publish(domain.NewSongCompletedEvent(song))
		s.mu.Unlock()

		if err := s.advance(1); err != nil {
			s.logger.Warn("auto-advance failed", slog.Any("error", err))
		}
		return
	}

	position, err := s.engine.Position()
	if err != nil {
		s.mu.Unlock()
		return
	}
	s.position = position
	s.bus.Publish(domain.NewPlaybackProgressEvent(position, s.duration))
	s.mu.Unlock()
}

// Verify that PlaybackService implements the expected interface patterns
var _ interface {
	PlaySong(domain.Song, []domain.Song) error
	TogglePlayPause() error
	PlayNext() error
	PlayPrevious() error
	SeekTo(time.Duration) error
	StopPlayback() error
	ToggleFavorite(int64) (bool, error)
	State() domain.PlaybackState
	Queue() domain.PlaybackQueue
	Shutdown() error
} = (*PlaybackService)(nil)
