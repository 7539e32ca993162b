package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mockaudio "github.com/auralis-music/auralis/internal/adapter/audio/mock"
	"github.com/auralis-music/auralis/internal/adapter/eventbus"
	"github.com/auralis-music/auralis/internal/adapter/repository/memory"
	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/logger"
	"github.com/auralis-music/auralis/internal/testutil"
)

const testTick = 10 * time.Millisecond

func newTestPlaybackService(t *testing.T) (*PlaybackService, *mockaudio.Engine, *eventbus.SyncEventBus, *memory.SongRepository) {
	t.Helper()

	engine := mockaudio.NewEngine()
	bus := eventbus.NewSyncEventBus()
	songs := memory.NewSongRepository()

	service := newPlaybackService(logger.NewTestLogger(), engine, bus, songs, testTick)
	t.Cleanup(func() {
		require.NoError(t, service.Shutdown())
		require.NoError(t, bus.Close())
	})
	return service, engine, bus, songs
}

func seedSongs(t *testing.T, songs *memory.SongRepository, titles ...string) []domain.Song {
	t.Helper()

	out := make([]domain.Song, 0, len(titles))
	for _, title := range titles {
		song, err := songs.Add(domain.Song{
			Title:     title,
			Artist:    "Test Artist",
			FilePath:  "/music/" + title + ".mp3",
			DateAdded: time.Now(),
		})
		require.NoError(t, err)
		out = append(out, song)
	}
	return out
}

func waitForState(t *testing.T, service *PlaybackService, cond func(domain.PlaybackState) bool) domain.PlaybackState {
	t.Helper()

	var state domain.PlaybackState
	require.Eventually(t, func() bool {
		state = service.State()
		return cond(state)
	}, time.Second, time.Millisecond)
	return state
}

func TestPlaybackService_PlaySong_AutoStarts(t *testing.T) {
	service, engine, _, songs := newTestPlaybackService(t)
	queue := seedSongs(t, songs, "one", "two", "three")

	require.NoError(t, service.PlaySong(queue[1], queue))

	state := waitForState(t, service, func(s domain.PlaybackState) bool { return s.IsPlaying })
	assert.Equal(t, queue[1].ID, state.CurrentSong.ID)
	assert.Equal(t, mockaudio.DefaultDuration, state.Duration)
	assert.False(t, state.IsLoading)
	assert.NoError(t, state.Err)
	assert.Equal(t, queue[1].FilePath, engine.LoadedPath())

	// The queue index follows the requested song
	assert.Equal(t, 1, service.Queue().Index)

	// Play start is persisted as lastPlayed
	stored, err := songs.GetByID(queue[1].ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastPlayed)
}

func TestPlaybackService_PlaySong_LoadFailure(t *testing.T) {
	service, engine, bus, songs := newTestPlaybackService(t)
	queue := seedSongs(t, songs, "broken")

	var mu sync.Mutex
	var errorEvent domain.PlaybackErrorEvent
	bus.Subscribe(domain.EventPlaybackError, func(e domain.Event) {
		mu.Lock()
		errorEvent = e.(domain.PlaybackErrorEvent)
		mu.Unlock()
	})

	engine.SetFailLoad(true)
	require.NoError(t, service.PlaySong(queue[0], queue))

	state := waitForState(t, service, func(s domain.PlaybackState) bool { return s.Err != nil })
	assert.False(t, state.IsPlaying)
	assert.False(t, state.IsLoading)

	// The failed song stays visible so surfaces can show what failed
	require.NotNil(t, state.CurrentSong)
	assert.Equal(t, queue[0].ID, state.CurrentSong.ID)

	mu.Lock()
	assert.Error(t, errorEvent.Err)
	mu.Unlock()
}

func TestPlaybackService_SupersededLoadIsDiscarded(t *testing.T) {
	service, engine, _, songs := newTestPlaybackService(t)
	queue := seedSongs(t, songs, "first", "second")

	engine.SetLoadDelay(30 * time.Millisecond)
	require.NoError(t, service.PlaySong(queue[0], queue))
	require.NoError(t, service.PlaySong(queue[1], queue))

	state := waitForState(t, service, func(s domain.PlaybackState) bool { return s.IsPlaying })
	assert.Equal(t, queue[1].ID, state.CurrentSong.ID)

	// The abandoned load never resurrects the first song
	engine.SetLoadDelay(0)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, queue[1].FilePath, engine.LoadedPath())
	assert.Equal(t, queue[1].ID, service.State().CurrentSong.ID)
}

func TestPlaybackService_TogglePlayPause(t *testing.T) {
	service, _, bus, songs := newTestPlaybackService(t)
	queue := seedSongs(t, songs, "one")

	var mu sync.Mutex
	var pausedEvent domain.SongPausedEvent
	bus.Subscribe(domain.EventSongPaused, func(e domain.Event) {
		mu.Lock()
		pausedEvent = e.(domain.SongPausedEvent)
		mu.Unlock()
	})

	require.NoError(t, service.PlaySong(queue[0], queue))
	waitForState(t, service, func(s domain.PlaybackState) bool { return s.IsPlaying })

	require.NoError(t, service.TogglePlayPause())
	assert.False(t, service.State().IsPlaying)
	mu.Lock()
	assert.Equal(t, queue[0].ID, pausedEvent.Song.ID)
	mu.Unlock()

	require.NoError(t, service.TogglePlayPause())
	assert.True(t, service.State().IsPlaying)
}

func TestPlaybackService_TogglePlayPause_NoSong(t *testing.T) {
	service, _, _, _ := newTestPlaybackService(t)

	assert.ErrorIs(t, service.TogglePlayPause(), domain.ErrNoSongLoaded)
}

func TestPlaybackService_QueueWraparound(t *testing.T) {
	service, _, _, songs := newTestPlaybackService(t)
	queue := seedSongs(t, songs, "one", "two", "three")

	require.NoError(t, service.PlaySong(queue[2], queue))
	waitForState(t, service, func(s domain.PlaybackState) bool { return s.IsPlaying })

	// Next from the last index wraps to the first
	require.NoError(t, service.PlayNext())
	state := waitForState(t, service, func(s domain.PlaybackState) bool {
		return s.IsPlaying && s.CurrentSong.ID == queue[0].ID
	})
	assert.Equal(t, 0, service.Queue().Index)
	assert.Equal(t, queue[0].ID, state.CurrentSong.ID)

	// Previous from the first index (early in the track) wraps to the last
	require.NoError(t, service.PlayPrevious())
	waitForState(t, service, func(s domain.PlaybackState) bool {
		return s.IsPlaying && s.CurrentSong.ID == queue[2].ID
	})
	assert.Equal(t, 2, service.Queue().Index)
}

func TestPlaybackService_PreviousRestartsAfterThreshold(t *testing.T) {
	service, _, _, songs := newTestPlaybackService(t)
	queue := seedSongs(t, songs, "one", "two", "three")

	require.NoError(t, service.PlaySong(queue[1], queue))
	waitForState(t, service, func(s domain.PlaybackState) bool { return s.IsPlaying })

	require.NoError(t, service.SeekTo(5*time.Second))

	require.NoError(t, service.PlayPrevious())

	// Past three seconds: restart, not a queue mutation
	state := service.State()
	assert.Equal(t, queue[1].ID, state.CurrentSong.ID)
	assert.Equal(t, time.Duration(0), state.Position)
	assert.Equal(t, 1, service.Queue().Index)
}

func TestPlaybackService_SeekClamps(t *testing.T) {
	service, engine, _, songs := newTestPlaybackService(t)
	queue := seedSongs(t, songs, "one")

	require.NoError(t, service.PlaySong(queue[0], queue))
	waitForState(t, service, func(s domain.PlaybackState) bool { return s.IsPlaying })

	require.NoError(t, service.SeekTo(-5*time.Second))
	assert.Equal(t, time.Duration(0), service.State().Position)

	require.NoError(t, service.SeekTo(10*time.Hour))
	assert.Equal(t, mockaudio.DefaultDuration, service.State().Position)

	position, err := engine.Position()
	require.NoError(t, err)
	assert.Equal(t, mockaudio.DefaultDuration, position)
}

func TestPlaybackService_Stop_ResetsState(t *testing.T) {
	service, _, _, songs := newTestPlaybackService(t)
	queue := seedSongs(t, songs, "one", "two")

	require.NoError(t, service.PlaySong(queue[0], queue))
	waitForState(t, service, func(s domain.PlaybackState) bool { return s.IsPlaying })

	require.NoError(t, service.StopPlayback())

	state := service.State()
	assert.Nil(t, state.CurrentSong)
	assert.False(t, state.IsPlaying)
	assert.Equal(t, time.Duration(0), state.Position)
	assert.Equal(t, time.Duration(0), state.Duration)
	assert.NoError(t, state.Err)
	assert.Empty(t, service.Queue().Songs)
}

func TestPlaybackService_NaturalCompletionAutoAdvances(t *testing.T) {
	service, engine, bus, songs := newTestPlaybackService(t)
	queue := seedSongs(t, songs, "one", "two")

	var mu sync.Mutex
	var completed []int64
	bus.Subscribe(domain.EventSongCompleted, func(e domain.Event) {
		mu.Lock()
		completed = append(completed, e.(domain.SongCompletedEvent).Song.ID)
		mu.Unlock()
	})

	engine.SetNextDuration(40 * time.Millisecond)
	require.NoError(t, service.PlaySong(queue[0], queue))
	waitForState(t, service, func(s domain.PlaybackState) bool { return s.IsPlaying })

	// Run the track out; the tick loop notices the stopped transport
	require.NoError(t, engine.SimulateProgress(40*time.Millisecond))

	state := waitForState(t, service, func(s domain.PlaybackState) bool {
		return s.IsPlaying && s.CurrentSong != nil && s.CurrentSong.ID == queue[1].ID
	})
	assert.Equal(t, queue[1].ID, state.CurrentSong.ID)
	assert.Equal(t, 1, service.Queue().Index)

	mu.Lock()
	assert.Equal(t, []int64{queue[0].ID}, completed)
	mu.Unlock()
}

func TestPlaybackService_ErrorDoesNotAutoAdvance(t *testing.T) {
	service, engine, _, songs := newTestPlaybackService(t)
	queue := seedSongs(t, songs, "one", "two")

	require.NoError(t, service.PlaySong(queue[0], queue))
	waitForState(t, service, func(s domain.PlaybackState) bool { return s.IsPlaying })

	engine.SetFailLoad(true)
	require.NoError(t, service.PlayNext())

	state := waitForState(t, service, func(s domain.PlaybackState) bool { return s.Err != nil })
	assert.False(t, state.IsPlaying)
	require.NotNil(t, state.CurrentSong)
	assert.Equal(t, queue[1].ID, state.CurrentSong.ID)

	// The error state is sticky; no further song change happens on its own
	time.Sleep(5 * testTick)
	assert.Equal(t, queue[1].ID, service.State().CurrentSong.ID)
	assert.Error(t, service.State().Err)
}

func TestPlaybackService_SegmentClosedOnPause(t *testing.T) {
	service, engine, bus, songs := newTestPlaybackService(t)
	queue := seedSongs(t, songs, "one")

	var mu sync.Mutex
	var segments []domain.SegmentClosedEvent
	bus.Subscribe(domain.EventSegmentClosed, func(e domain.Event) {
		mu.Lock()
		segments = append(segments, e.(domain.SegmentClosedEvent))
		mu.Unlock()
	})

	require.NoError(t, service.PlaySong(queue[0], queue))
	waitForState(t, service, func(s domain.PlaybackState) bool { return s.IsPlaying })

	require.NoError(t, engine.SimulateProgress(30*time.Second))
	waitForState(t, service, func(s domain.PlaybackState) bool { return s.Position == 30*time.Second })

	require.NoError(t, service.TogglePlayPause())

	mu.Lock()
	require.Len(t, segments, 1)
	assert.Equal(t, queue[0].ID, segments[0].Song.ID)
	assert.Equal(t, 30*time.Second, segments[0].Listened)
	mu.Unlock()
}

func TestPlaybackService_SeekDoesNotInflateSegment(t *testing.T) {
	service, engine, bus, songs := newTestPlaybackService(t)
	queue := seedSongs(t, songs, "one")

	var mu sync.Mutex
	var segments []domain.SegmentClosedEvent
	bus.Subscribe(domain.EventSegmentClosed, func(e domain.Event) {
		mu.Lock()
		segments = append(segments, e.(domain.SegmentClosedEvent))
		mu.Unlock()
	})

	require.NoError(t, service.PlaySong(queue[0], queue))
	waitForState(t, service, func(s domain.PlaybackState) bool { return s.IsPlaying })

	// Listen 10s, jump forward a minute, listen 5s more
	require.NoError(t, engine.SimulateProgress(10*time.Second))
	waitForState(t, service, func(s domain.PlaybackState) bool { return s.Position == 10*time.Second })
	require.NoError(t, service.SeekTo(70*time.Second))
	require.NoError(t, engine.SimulateProgress(5*time.Second))
	waitForState(t, service, func(s domain.PlaybackState) bool { return s.Position == 75*time.Second })

	require.NoError(t, service.TogglePlayPause())

	mu.Lock()
	require.Len(t, segments, 1)
	assert.Equal(t, 15*time.Second, segments[0].Listened)
	mu.Unlock()
}

func TestPlaybackService_EmptyQueueAdvance(t *testing.T) {
	service, _, _, _ := newTestPlaybackService(t)

	assert.ErrorIs(t, service.PlayNext(), domain.ErrQueueEmpty)
	assert.ErrorIs(t, service.PlayPrevious(), domain.ErrQueueEmpty)
}

func TestPlaybackService_ShutdownReleasesResources(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	engine := mockaudio.NewEngine()
	bus := eventbus.NewSyncEventBus()
	songs := memory.NewSongRepository()
	service := newPlaybackService(logger.NewTestLogger(), engine, bus, songs, testTick)

	queue := seedSongs(t, songs, "one")
	require.NoError(t, service.PlaySong(queue[0], queue))
	waitForState(t, service, func(s domain.PlaybackState) bool { return s.IsPlaying })

	require.NoError(t, service.Shutdown())
	require.NoError(t, bus.Close())
	assert.False(t, service.State().IsPlaying)
}
