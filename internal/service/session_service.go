package service

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/ports"
)

// Settings keys for the serialized preferred audio device.
const (
	keyPreferredSystemID = "device.preferred.system_id"
	keyPreferredName     = "device.preferred.name"
	keyPreferredType     = "device.preferred.type"
	keyPreferredRawType  = "device.preferred.raw_type"
	keyPreferredAddress  = "device.preferred.address"
	keyPreferredSource   = "device.preferred.source"
)

// defaultSettleDelay is how long routing is given to take effect before the
// device list is refreshed to reflect the actual active output.
const defaultSettleDelay = time.Second

// stateStreamBuffer is the per-subscriber backlog of state snapshots.
const stateStreamBuffer = 32

// SessionService is the single process-wide playback session. It owns the one
// PlaybackState instance, exposed to all observers as a broadcast stream of
// immutable snapshots, and brokers queue requests and preferred-device
// selection between surfaces, the playback engine, and device routing.
//
// All operations are thread-safe via sync.RWMutex.
type SessionService struct {
	// Dependencies (injected)
	logger   *slog.Logger
	playback *PlaybackService
	devices  *DeviceService
	settings ports.SettingsRepository
	bus      ports.EventBus

	// State
	state           domain.PlaybackState
	pending         *domain.PendingQueue
	stateSubs       map[domain.SubscriptionID]chan domain.PlaybackState
	preferredSubs   map[domain.SubscriptionID]chan *domain.AudioDevice
	busSubs         []domain.SubscriptionID
	bound           bool
	nextStreamID    int
	settleDelay     time.Duration

	// Concurrency control
	mu       sync.RWMutex
	settleWg sync.WaitGroup
}

// NewSessionService creates the session coordinator. Event wiring is lazy:
// the service binds to the playback engine's event stream on first use.
func NewSessionService(
	logger *slog.Logger,
	playback *PlaybackService,
	devices *DeviceService,
	settings ports.SettingsRepository,
	bus ports.EventBus,
) *SessionService {
	service := &SessionService{
		logger:        logger,
		playback:      playback,
		devices:       devices,
		settings:      settings,
		bus:           bus,
		stateSubs:     make(map[domain.SubscriptionID]chan domain.PlaybackState),
		preferredSubs: make(map[domain.SubscriptionID]chan *domain.AudioDevice),
		settleDelay:   defaultSettleDelay,
	}

	devices.SetSelectFunc(func(device domain.AudioDevice) {
		if err := service.SetPreferredDevice(&device); err != nil {
			logger.Warn("auto-select after pairing failed", slog.Any("error", err))
		}
	})

	logger.Debug("session service initialized")
	return service
}

// State returns the current playback state snapshot.
func (s *SessionService) State() domain.PlaybackState {
	s.ensureBound()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers an observer of the session state. Every observer sees
// the same ordered sequence of snapshots. The returned cancel function must
// be called to release the stream.
func (s *SessionService) Subscribe() (<-chan domain.PlaybackState, func()) {
	s.ensureBound()

	s.mu.Lock()
	id := domain.SubscriptionID("state-" + strconv.Itoa(s.nextStreamID))
	s.nextStreamID++
	ch := make(chan domain.PlaybackState, stateStreamBuffer)
	ch <- s.state
	s.stateSubs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if sub, ok := s.stateSubs[id]; ok {
			delete(s.stateSubs, id)
			close(sub)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// SubscribePreferred registers an observer of the preferred-device choice.
// The current value is delivered immediately.
func (s *SessionService) SubscribePreferred() (<-chan *domain.AudioDevice, func()) {
	s.ensureBound()

	current, err := s.PreferredDevice()
	if err != nil {
		s.logger.Warn("failed to load preferred device", slog.Any("error", err))
	}

	s.mu.Lock()
	id := domain.SubscriptionID("preferred-" + strconv.Itoa(s.nextStreamID))
	s.nextStreamID++
	ch := make(chan *domain.AudioDevice, stateStreamBuffer)
	ch <- current
	s.preferredSubs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if sub, ok := s.preferredSubs[id]; ok {
			delete(s.preferredSubs, id)
			close(sub)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Play starts playback of song with the given queue.
func (s *SessionService) Play(song domain.Song, queue []domain.Song) error {
	s.ensureBound()
	return s.playback.PlaySong(song, queue)
}

// Pause pauses playback if currently playing.
func (s *SessionService) Pause() error {
	s.ensureBound()
	if !s.playback.State().IsPlaying {
		return nil
	}
	return s.playback.TogglePlayPause()
}

// Resume resumes paused playback, or consumes a pending queue handoff when no
// song is loaded.
func (s *SessionService) Resume() error {
	s.ensureBound()

	state := s.playback.State()
	if state.CurrentSong == nil {
		if pending := s.consumePending(); pending != nil {
			return s.playback.PlaySong(pending.Song, pending.Queue)
		}
		return domain.ErrNoSongLoaded
	}
	if state.IsPlaying {
		return nil
	}
	return s.playback.TogglePlayPause()
}

// Next advances to the next song in the queue.
func (s *SessionService) Next() error {
	s.ensureBound()
	return s.playback.PlayNext()
}

// Previous retreats in the queue, or restarts the current track.
func (s *SessionService) Previous() error {
	s.ensureBound()
	return s.playback.PlayPrevious()
}

// Seek sets the playback position.
func (s *SessionService) Seek(position time.Duration) error {
	s.ensureBound()
	return s.playback.SeekTo(position)
}

// Stop stops playback and clears the queue.
func (s *SessionService) Stop() error {
	s.ensureBound()
	return s.playback.StopPlayback()
}

// SetPending stores a song+queue handoff from any surface. The coordinator
// consumes it exactly once.
func (s *SessionService) SetPending(song domain.Song, queue []domain.Song) {
	s.mu.Lock()
	defer s.mu.Unlock()

	songs := make([]domain.Song, len(queue))
	copy(songs, queue)
	s.pending = &domain.PendingQueue{Song: song, Queue: songs}
}

// SetPreferredDevice durably persists the user's output choice, then routes
// live audio to it. Persist-then-route: a crash between the two leaves the
// durable preference consistent even if routing never happened. After a short
// settle delay the device list is refreshed so observers reconcile against
// the actual active device, which may differ from the request.
func (s *SessionService) SetPreferredDevice(device *domain.AudioDevice) error {
	s.ensureBound()

	if err := s.persistPreferred(device); err != nil {
		return err
	}

	s.bus.Publish(domain.NewPreferredDeviceSetEvent(device))

	if err := s.devices.RouteTo(device); err != nil {
		// The preference is already durable; routing reports its own error.
		s.logger.Warn("routing to preferred device failed", slog.Any("error", err))
	}

	s.mu.RLock()
	settle := s.settleDelay
	s.mu.RUnlock()

	s.settleWg.Add(1)
	go func() {
		defer s.settleWg.Done()
		time.Sleep(settle)
		if err := s.devices.RefreshSystemDevices(); err != nil {
			s.logger.Warn("device refresh after routing failed", slog.Any("error", err))
		}
	}()

	return nil
}

// PreferredDevice loads the persisted preferred device, nil when none is set.
func (s *SessionService) PreferredDevice() (*domain.AudioDevice, error) {
	name, err := s.settings.GetString(keyPreferredName, "")
	if err != nil {
		return nil, err
	}
	address, err := s.settings.GetString(keyPreferredAddress, "")
	if err != nil {
		return nil, err
	}
	if name == "" && address == "" {
		return nil, nil
	}

	typeName, err := s.settings.GetString(keyPreferredType, "")
	if err != nil {
		return nil, err
	}
	rawType, err := s.settings.GetInt(keyPreferredRawType, 0)
	if err != nil {
		return nil, err
	}
	sourceName, err := s.settings.GetString(keyPreferredSource, "")
	if err != nil {
		return nil, err
	}
	systemID, err := s.settings.GetInt(keyPreferredSystemID, -1)
	if err != nil {
		return nil, err
	}

	device := &domain.AudioDevice{
		Name:          name,
		Type:          domain.DeviceTypeFromString(typeName),
		RawSystemType: rawType,
		Address:       address,
		Source:        domain.DeviceSourceFromString(sourceName),
		IsConnectable: true,
	}
	if systemID >= 0 {
		device.SystemID = &systemID
	}
	return device, nil
}

// Shutdown unwinds event subscriptions and closes all observer streams.
func (s *SessionService) Shutdown() {
	s.settleWg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.busSubs {
		s.bus.Unsubscribe(id)
	}
	s.busSubs = nil
	s.bound = false

	for id, ch := range s.stateSubs {
		delete(s.stateSubs, id)
		close(ch)
	}
	for id, ch := range s.preferredSubs {
		delete(s.preferredSubs, id)
		close(ch)
	}
}

// consumePending takes the pending handoff, if any, clearing it.
func (s *SessionService) consumePending() *domain.PendingQueue {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.pending
	s.pending = nil
	return pending
}

// persistPreferred writes or clears the six serialized device fields.
func (s *SessionService) persistPreferred(device *domain.AudioDevice) error {
	if device == nil {
		for _, key := range []string{
			keyPreferredSystemID, keyPreferredName, keyPreferredType,
			keyPreferredRawType, keyPreferredAddress, keyPreferredSource,
		} {
			if err := s.settings.Remove(key); err != nil {
				return err
			}
		}
		return nil
	}

	systemID := -1
	if device.SystemID != nil {
		systemID = *device.SystemID
	}
	if err := s.settings.SetInt(keyPreferredSystemID, systemID); err != nil {
		return err
	}
	if err := s.settings.SetString(keyPreferredName, device.Name); err != nil {
		return err
	}
	if err := s.settings.SetString(keyPreferredType, device.Type.String()); err != nil {
		return err
	}
	if err := s.settings.SetInt(keyPreferredRawType, device.RawSystemType); err != nil {
		return err
	}
	if err := s.settings.SetString(keyPreferredAddress, device.Address); err != nil {
		return err
	}
	return s.settings.SetString(keyPreferredSource, device.Source.String())
}

// ensureBound performs the one-time lazy bind to the event bus. The session
// outlives any observer; surfaces attach and detach without owning it.
func (s *SessionService) ensureBound() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bound {
		return
	}
	s.bound = true

	s.busSubs = append(s.busSubs,
		s.bus.Subscribe(domain.EventSongChanged, s.onEvent),
		s.bus.Subscribe(domain.EventSongStarted, s.onEvent),
		s.bus.Subscribe(domain.EventSongPaused, s.onEvent),
		s.bus.Subscribe(domain.EventSongStopped, s.onEvent),
		s.bus.Subscribe(domain.EventSongCompleted, s.onEvent),
		s.bus.Subscribe(domain.EventPlaybackProgress, s.onEvent),
		s.bus.Subscribe(domain.EventPlaybackError, s.onEvent),
		s.bus.Subscribe(domain.EventDeviceListUpdated, s.onEvent),
		s.bus.Subscribe(domain.EventPreferredDeviceSet, s.onPreferredSet),
	)

	s.logger.Debug("session bound to event stream")
}

// onEvent folds one playback or device event into the session state and
// broadcasts the resulting snapshot. The bus delivers events in publish
// order, so a song change and its position reset arrive as one atomic
// snapshot and can never be observed out of order.
func (s *SessionService) onEvent(event domain.Event) {
	s.mu.Lock()

	switch e := event.(type) {
	case domain.SongChangedEvent:
		song := e.Song
		s.state.CurrentSong = &song
		s.state.IsPlaying = false
		s.state.IsLoading = true
		s.state.Position = 0
		s.state.Duration = 0
		s.state.Err = nil

	case domain.SongStartedEvent:
		song := e.Song
		s.state.CurrentSong = &song
		s.state.IsPlaying = true
		s.state.IsLoading = false
		s.state.Err = nil
		if s.state.Duration == 0 {
			s.state.Duration = song.Duration
		}

	case domain.SongPausedEvent:
		s.state.IsPlaying = false
		s.state.Position = e.Position

	case domain.SongStoppedEvent:
		s.state.CurrentSong = nil
		s.state.IsPlaying = false
		s.state.IsLoading = false
		s.state.Position = 0
		s.state.Duration = 0
		s.state.Err = nil

	case domain.SongCompletedEvent:
		s.state.IsPlaying = false

	case domain.PlaybackProgressEvent:
		s.state.Position = e.Position
		s.state.Duration = e.Duration

	case domain.PlaybackErrorEvent:
		// Sticky until cleared by a later successful operation. CurrentSong
		// stays populated so surfaces can show what failed.
		s.state.IsPlaying = false
		s.state.IsLoading = false
		s.state.Err = e.Err

	case domain.DeviceListUpdatedEvent:
		s.state.ActiveDevice = nil
		for _, device := range e.Devices {
			if device.IsActiveOutput {
				active := device
				s.state.ActiveDevice = &active
				break
			}
		}
	}

	snapshot := s.state
	subs := make([]chan domain.PlaybackState, 0, len(s.stateSubs))
	for _, ch := range s.stateSubs {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snapshot:
		default:
			s.logger.Warn("dropping state update for slow observer")
		}
	}
}

// onPreferredSet fans the persisted preference out to preferred-device
// observers.
func (s *SessionService) onPreferredSet(event domain.Event) {
	e, ok := event.(domain.PreferredDeviceSetEvent)
	if !ok {
		return
	}

	s.mu.RLock()
	subs := make([]chan *domain.AudioDevice, 0, len(s.preferredSubs))
	for _, ch := range s.preferredSubs {
		subs = append(subs, ch)
	}
	s.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- e.Device:
		default:
			s.logger.Warn("dropping preferred-device update for slow observer")
		}
	}
}
