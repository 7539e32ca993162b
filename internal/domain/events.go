// Package domain defines events for the event-driven architecture.
// Events enable loose coupling between the playback core, device routing,
// analytics, and any UI surface observing the session.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Playback events
	EventSongStarted      EventType = "song.started"
	EventSongPaused       EventType = "song.paused"
	EventSongStopped      EventType = "song.stopped"
	EventSongCompleted    EventType = "song.completed"
	EventSongChanged      EventType = "song.changed"
	EventPlaybackProgress EventType = "playback.progress"
	EventPlaybackError    EventType = "playback.error"

	// Listening segment events (input to analytics)
	EventSegmentClosed EventType = "segment.closed"

	// Device routing events
	EventDeviceListUpdated   EventType = "device.list_updated"
	EventDiscoveryStateEvent EventType = "device.discovery_state"
	EventDeviceError         EventType = "device.error"
	EventPreferredDeviceSet  EventType = "device.preferred_set"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// SongStartedEvent is published when playback of a song starts or resumes.
// StartedAt is the wall-clock start of the current listening segment; the
// analytics aggregator uses it to guard the live total against month rollover.
type SongStartedEvent struct {
	baseEvent
	Song      Song
	StartedAt time.Time
}

// Type returns the event type.
func (e SongStartedEvent) Type() EventType { return EventSongStarted }

// NewSongStartedEvent creates a new SongStartedEvent.
func NewSongStartedEvent(song Song, startedAt time.Time) SongStartedEvent {
	return SongStartedEvent{baseEvent: newBaseEvent(), Song: song, StartedAt: startedAt}
}

// SongPausedEvent is published when playback is paused.
type SongPausedEvent struct {
	baseEvent
	Song     Song
	Position time.Duration
}

// Type returns the event type.
func (e SongPausedEvent) Type() EventType { return EventSongPaused }

// NewSongPausedEvent creates a new SongPausedEvent.
func NewSongPausedEvent(song Song, position time.Duration) SongPausedEvent {
	return SongPausedEvent{baseEvent: newBaseEvent(), Song: song, Position: position}
}

// SongStoppedEvent is published when playback is stopped and the transport
// released.
type SongStoppedEvent struct {
	baseEvent
	Song Song
}

// Type returns the event type.
func (e SongStoppedEvent) Type() EventType { return EventSongStopped }

// NewSongStoppedEvent creates a new SongStoppedEvent.
func NewSongStoppedEvent(song Song) SongStoppedEvent {
	return SongStoppedEvent{baseEvent: newBaseEvent(), Song: song}
}

// SongCompletedEvent is published when a song finishes playing naturally.
// The playback engine auto-advances after publishing this.
type SongCompletedEvent struct {
	baseEvent
	Song Song
}

// Type returns the event type.
func (e SongCompletedEvent) Type() EventType { return EventSongCompleted }

// NewSongCompletedEvent creates a new SongCompletedEvent.
func NewSongCompletedEvent(song Song) SongCompletedEvent {
	return SongCompletedEvent{baseEvent: newBaseEvent(), Song: song}
}

// SongChangedEvent is published when the current song changes, together with
// the queue index it changed to. Position is reset to zero atomically with
// this event; observers never see the new song with the old position.
type SongChangedEvent struct {
	baseEvent
	Song  Song
	Index int
}

// Type returns the event type.
func (e SongChangedEvent) Type() EventType { return EventSongChanged }

// NewSongChangedEvent creates a new SongChangedEvent.
func NewSongChangedEvent(song Song, index int) SongChangedEvent {
	return SongChangedEvent{baseEvent: newBaseEvent(), Song: song, Index: index}
}

// PlaybackProgressEvent is published roughly once per second while playing.
type PlaybackProgressEvent struct {
	baseEvent
	Position time.Duration
	Duration time.Duration
}

// Type returns the event type.
func (e PlaybackProgressEvent) Type() EventType { return EventPlaybackProgress }

// NewPlaybackProgressEvent creates a new PlaybackProgressEvent.
func NewPlaybackProgressEvent(position, duration time.Duration) PlaybackProgressEvent {
	return PlaybackProgressEvent{baseEvent: newBaseEvent(), Position: position, Duration: duration}
}

// PlaybackErrorEvent is published when the transport fails to load or play a
// song. The engine does not auto-advance after an error.
type PlaybackErrorEvent struct {
	baseEvent
	Song Song
	Err  error
}

// Type returns the event type.
func (e PlaybackErrorEvent) Type() EventType { return EventPlaybackError }

// NewPlaybackErrorEvent creates a new PlaybackErrorEvent.
func NewPlaybackErrorEvent(song Song, err error) PlaybackErrorEvent {
	return PlaybackErrorEvent{baseEvent: newBaseEvent(), Song: song, Err: err}
}

// SegmentClosedEvent is published when one continuous listening segment ends
// (pause, stop, manual skip, or natural completion). Listened is the measured
// listening duration of the segment, not the track length. This event is the
// sole source of play-history rows.
type SegmentClosedEvent struct {
	baseEvent
	Song      Song
	StartedAt time.Time
	Listened  time.Duration
}

// Type returns the event type.
func (e SegmentClosedEvent) Type() EventType { return EventSegmentClosed }

// NewSegmentClosedEvent creates a new SegmentClosedEvent.
func NewSegmentClosedEvent(song Song, startedAt time.Time, listened time.Duration) SegmentClosedEvent {
	return SegmentClosedEvent{baseEvent: newBaseEvent(), Song: song, StartedAt: startedAt, Listened: listened}
}

// DeviceListUpdatedEvent is published whenever the reconciled device list
// changes. Devices is sorted, deduplicated, and safe to display as-is.
type DeviceListUpdatedEvent struct {
	baseEvent
	Devices []AudioDevice
}

// Type returns the event type.
func (e DeviceListUpdatedEvent) Type() EventType { return EventDeviceListUpdated }

// NewDeviceListUpdatedEvent creates a new DeviceListUpdatedEvent.
func NewDeviceListUpdatedEvent(devices []AudioDevice) DeviceListUpdatedEvent {
	return DeviceListUpdatedEvent{baseEvent: newBaseEvent(), Devices: devices}
}

// DiscoveryStateEvent is published when Bluetooth discovery starts or stops.
type DiscoveryStateEvent struct {
	baseEvent
	Discovering bool
}

// Type returns the event type.
func (e DiscoveryStateEvent) Type() EventType { return EventDiscoveryStateEvent }

// NewDiscoveryStateEvent creates a new DiscoveryStateEvent.
func NewDiscoveryStateEvent(discovering bool) DiscoveryStateEvent {
	return DiscoveryStateEvent{baseEvent: newBaseEvent(), Discovering: discovering}
}

// DeviceErrorEvent is published for routing and discovery failures. Message
// is a one-line, user-facing error string; the device list itself is left
// intact.
type DeviceErrorEvent struct {
	baseEvent
	Message string
	Err     error
}

// Type returns the event type.
func (e DeviceErrorEvent) Type() EventType { return EventDeviceError }

// NewDeviceErrorEvent creates a new DeviceErrorEvent.
func NewDeviceErrorEvent(message string, err error) DeviceErrorEvent {
	return DeviceErrorEvent{baseEvent: newBaseEvent(), Message: message, Err: err}
}

// PreferredDeviceSetEvent is published after the preferred device has been
// durably persisted. Device is nil when the preference was cleared.
type PreferredDeviceSetEvent struct {
	baseEvent
	Device *AudioDevice
}

// Type returns the event type.
func (e PreferredDeviceSetEvent) Type() EventType { return EventPreferredDeviceSet }

// NewPreferredDeviceSetEvent creates a new PreferredDeviceSetEvent.
func NewPreferredDeviceSetEvent(device *AudioDevice) PreferredDeviceSetEvent {
	return PreferredDeviceSetEvent{baseEvent: newBaseEvent(), Device: device}
}

// ScanEvent is one item on the Bluetooth discovery stream. Platform callbacks
// are translated into these typed events at the adapter boundary and consumed
// by the device reconciliation engine in a single receive loop.
type ScanEvent struct {
	Kind    ScanEventKind
	Device  AudioDevice   // set for ScanDeviceFound
	Address string        // set for ScanBondChanged
	Bond    PairingStatus // set for ScanBondChanged
}

// ScanEventKind discriminates ScanEvent payloads.
type ScanEventKind int

const (
	ScanDiscoveryStarted ScanEventKind = iota
	ScanDeviceFound
	ScanDiscoveryFinished
	ScanBondChanged
)
