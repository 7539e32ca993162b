package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mockaudio "github.com/auralis-music/auralis/internal/adapter/audio/mock"
	mockdevices "github.com/auralis-music/auralis/internal/adapter/devices/mock"
	"github.com/auralis-music/auralis/internal/adapter/eventbus"
	"github.com/auralis-music/auralis/internal/adapter/repository/memory"
	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/logger"
)

// sessionFixture bundles the coordinator with every collaborator the tests
// script against.
type sessionFixture struct {
	session  *SessionService
	playback *PlaybackService
	devices  *DeviceService
	engine   *mockaudio.Engine
	system   *mockdevices.SystemAudio
	settings *memory.SettingsRepository
	songs    *memory.SongRepository
	bus      *eventbus.SyncEventBus
}

func newTestSessionService(t *testing.T) *sessionFixture {
	t.Helper()

	engine := mockaudio.NewEngine()
	bus := eventbus.NewSyncEventBus()
	songs := memory.NewSongRepository()
	settings := memory.NewSettingsRepository()
	system := mockdevices.NewSystemAudio()
	bluetooth := mockdevices.NewBluetooth()

	playback := newPlaybackService(logger.NewTestLogger(), engine, bus, songs, testTick)
	devices := NewDeviceService(logger.NewTestLogger(), system, bluetooth, mockdevices.NewCapabilities(), bus)
	session := NewSessionService(logger.NewTestLogger(), playback, devices, settings, bus)
	session.settleDelay = 5 * time.Millisecond

	t.Cleanup(func() {
		session.Shutdown()
		require.NoError(t, playback.Shutdown())
		require.NoError(t, devices.Close())
		require.NoError(t, bus.Close())
	})

	return &sessionFixture{
		session:  session,
		playback: playback,
		devices:  devices,
		engine:   engine,
		system:   system,
		settings: settings,
		songs:    songs,
		bus:      bus,
	}
}

func recvState(t *testing.T, ch <-chan domain.PlaybackState) domain.PlaybackState {
	t.Helper()

	select {
	case state, ok := <-ch:
		require.True(t, ok, "state stream closed")
		return state
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for state snapshot")
		return domain.PlaybackState{}
	}
}

func recvPreferred(t *testing.T, ch <-chan *domain.AudioDevice) *domain.AudioDevice {
	t.Helper()

	select {
	case device, ok := <-ch:
		require.True(t, ok, "preferred stream closed")
		return device
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for preferred device")
		return nil
	}
}

func TestSessionService_BroadcastSameSequenceToAllObservers(t *testing.T) {
	f := newTestSessionService(t)
	queue := seedSongs(t, f.songs, "one")

	chA, cancelA := f.session.Subscribe()
	defer cancelA()
	chB, cancelB := f.session.Subscribe()
	defer cancelB()

	require.NoError(t, f.session.Play(queue[0], queue))

	// Both observers see the identical ordered prefix: the initial snapshot,
	// the song change, the playing transition.
	for i := 0; i < 3; i++ {
		a := recvState(t, chA)
		b := recvState(t, chB)
		assert.Equal(t, a, b)
	}
}

func TestSessionService_SongChangeSnapshotIsAtomic(t *testing.T) {
	f := newTestSessionService(t)
	queue := seedSongs(t, f.songs, "one", "two")

	require.NoError(t, f.session.Play(queue[0], queue))
	waitForState(t, f.playback, func(s domain.PlaybackState) bool { return s.IsPlaying })

	ch, cancel := f.session.Subscribe()
	defer cancel()

	// Get well into the first track, then skip
	require.NoError(t, f.engine.SimulateProgress(30*time.Second))
	require.NoError(t, f.session.Next())

	// No observer may ever see the new song with the old position: the first
	// snapshot carrying the new song already has position zero.
	for {
		state := recvState(t, ch)
		if state.CurrentSong == nil || state.CurrentSong.ID != queue[1].ID {
			continue
		}
		assert.Equal(t, time.Duration(0), state.Position)
		assert.True(t, state.IsLoading)
		break
	}
}

func TestSessionService_PauseAndResume(t *testing.T) {
	f := newTestSessionService(t)
	queue := seedSongs(t, f.songs, "one")

	// Pause with nothing loaded is a quiet no-op
	require.NoError(t, f.session.Pause())

	require.NoError(t, f.session.Play(queue[0], queue))
	waitForState(t, f.playback, func(s domain.PlaybackState) bool { return s.IsPlaying })

	require.NoError(t, f.session.Pause())
	assert.False(t, f.session.State().IsPlaying)

	require.NoError(t, f.session.Resume())
	assert.True(t, f.session.State().IsPlaying)

	// Resume while already playing is idempotent
	require.NoError(t, f.session.Resume())
	assert.True(t, f.session.State().IsPlaying)
}

func TestSessionService_PendingQueueConsumedOnce(t *testing.T) {
	f := newTestSessionService(t)
	queue := seedSongs(t, f.songs, "one", "two")

	f.session.SetPending(queue[1], queue)

	require.NoError(t, f.session.Resume())
	state := waitForState(t, f.playback, func(s domain.PlaybackState) bool { return s.IsPlaying })
	assert.Equal(t, queue[1].ID, state.CurrentSong.ID)

	require.NoError(t, f.session.Stop())

	// The handoff was consumed by the first resume
	assert.ErrorIs(t, f.session.Resume(), domain.ErrNoSongLoaded)
}

func TestSessionService_ResumeWithNothingPending(t *testing.T) {
	f := newTestSessionService(t)

	assert.ErrorIs(t, f.session.Resume(), domain.ErrNoSongLoaded)
}

func TestSessionService_SetPreferredDevicePersistsThenRoutes(t *testing.T) {
	f := newTestSessionService(t)

	speaker := systemDevice(3, "Speaker", domain.DeviceBuiltinSpeaker, false)
	f.system.SetDevices([]domain.AudioDevice{speaker})
	require.NoError(t, f.devices.RefreshSystemDevices())

	require.NoError(t, f.session.SetPreferredDevice(&speaker))

	// The choice is durable across restarts
	name, err := f.settings.GetString("device.preferred.name", "")
	require.NoError(t, err)
	assert.Equal(t, "Speaker", name)
	systemID, err := f.settings.GetInt("device.preferred.system_id", -1)
	require.NoError(t, err)
	assert.Equal(t, 3, systemID)
	typeName, err := f.settings.GetString("device.preferred.type", "")
	require.NoError(t, err)
	assert.Equal(t, "builtin_speaker", typeName)

	// Live audio was routed
	require.NotNil(t, f.system.LastRouted())
	assert.Equal(t, 3, *f.system.LastRouted())

	// After the settle delay the list is refreshed and the session state
	// reflects the actual active output
	require.Eventually(t, func() bool {
		state := f.session.State()
		return state.ActiveDevice != nil && state.ActiveDevice.Name == "Speaker"
	}, time.Second, time.Millisecond)
}

func TestSessionService_RoutingFailureKeepsPreferenceDurable(t *testing.T) {
	f := newTestSessionService(t)

	f.system.SetRouteError(domain.ErrDeviceNotConnectable)

	speaker := systemDevice(8, "Stubborn Speaker", domain.DeviceBuiltinSpeaker, false)
	require.NoError(t, f.session.SetPreferredDevice(&speaker))

	// Routing failed but the persisted preference survived
	restored, err := f.session.PreferredDevice()
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, "Stubborn Speaker", restored.Name)
}

func TestSessionService_PreferredDeviceRoundTrip(t *testing.T) {
	f := newTestSessionService(t)

	buds := domain.AudioDevice{
		Name:          "Buds",
		Type:          domain.DeviceBluetoothA2DP,
		Address:       "AA:BB:CC:DD:EE:FF",
		Source:        domain.SourceBluetoothDiscovery,
		IsConnectable: true,
	}
	require.NoError(t, f.session.SetPreferredDevice(&buds))

	restored, err := f.session.PreferredDevice()
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, "Buds", restored.Name)
	assert.Equal(t, domain.DeviceBluetoothA2DP, restored.Type)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", restored.Address)
	assert.Equal(t, domain.SourceBluetoothDiscovery, restored.Source)
	assert.Nil(t, restored.SystemID)

	// Clearing removes every persisted field
	require.NoError(t, f.session.SetPreferredDevice(nil))
	restored, err = f.session.PreferredDevice()
	require.NoError(t, err)
	assert.Nil(t, restored)
}

func TestSessionService_PreferredObserversSeeChanges(t *testing.T) {
	f := newTestSessionService(t)

	ch, cancel := f.session.SubscribePreferred()
	defer cancel()

	// Current value arrives first: nothing persisted yet
	assert.Nil(t, recvPreferred(t, ch))

	speaker := systemDevice(2, "Speaker", domain.DeviceBuiltinSpeaker, false)
	require.NoError(t, f.session.SetPreferredDevice(&speaker))

	device := recvPreferred(t, ch)
	require.NotNil(t, device)
	assert.Equal(t, "Speaker", device.Name)

	require.NoError(t, f.session.SetPreferredDevice(nil))
	assert.Nil(t, recvPreferred(t, ch))
}

func TestSessionService_SelectingPairedDevicePersistsPreference(t *testing.T) {
	f := newTestSessionService(t)

	speaker := systemDevice(5, "Speaker", domain.DeviceBuiltinSpeaker, false)
	f.system.SetDevices([]domain.AudioDevice{speaker})
	require.NoError(t, f.devices.RefreshSystemDevices())

	// A tap on an already-selectable device flows through the coordinator
	require.NoError(t, f.devices.SelectDevice(speaker.Key()))

	require.Eventually(t, func() bool {
		name, err := f.settings.GetString("device.preferred.name", "")
		return err == nil && name == "Speaker"
	}, time.Second, time.Millisecond)

	require.NotNil(t, f.system.LastRouted())
	assert.Equal(t, 5, *f.system.LastRouted())
}
