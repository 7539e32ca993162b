package service

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/ports"
)

// topListSize bounds the monthly top-songs and top-artists tables.
const topListSize = 5

// AnalyticsService converts the append-only play history plus live
// in-progress listening into monthly statistics (the "Sound Capsule").
//
// It is the sole writer of play-history rows: the playback engine publishes a
// segment-closed event whenever one continuous listening segment ends, and
// the row is inserted synchronously inside that delivery, so listened time is
// durable before the segment-ending operation completes.
//
// All operations are thread-safe via sync.RWMutex.
type AnalyticsService struct {
	// Dependencies (injected)
	logger  *slog.Logger
	history ports.PlayHistoryRepository
	songs   ports.SongRepository
	bus     ports.EventBus

	// Live playback tracking for the running total
	liveSong    *domain.Song
	liveStart   time.Time
	liveElapsed time.Duration

	busSubs []domain.SubscriptionID

	// Concurrency control
	mu  sync.RWMutex
	now func() time.Time
}

// NewAnalyticsService creates the analytics aggregator and subscribes it to
// the playback event stream.
func NewAnalyticsService(
	logger *slog.Logger,
	history ports.PlayHistoryRepository,
	songs ports.SongRepository,
	bus ports.EventBus,
) *AnalyticsService {
	service := &AnalyticsService{
		logger:  logger,
		history: history,
		songs:   songs,
		bus:     bus,
		now:     time.Now,
	}

	service.busSubs = append(service.busSubs,
		bus.Subscribe(domain.EventSegmentClosed, service.onSegmentClosed),
		bus.Subscribe(domain.EventSongStarted, service.onSongStarted),
		bus.Subscribe(domain.EventPlaybackProgress, service.onProgress),
		bus.Subscribe(domain.EventSongPaused, service.onPlaybackIdle),
		bus.Subscribe(domain.EventSongStopped, service.onPlaybackIdle),
		bus.Subscribe(domain.EventSongCompleted, service.onPlaybackIdle),
	)

	logger.Debug("analytics service initialized")
	return service
}

// MonthlyCapsule computes the full statistics record for a month. A month
// with no history rows returns HasData=false with empty aggregates, which is
// a valid state, not an error.
func (s *AnalyticsService) MonthlyCapsule(monthKey string) (domain.MonthlyAnalytics, error) {
	capsule := domain.MonthlyAnalytics{MonthKey: monthKey}

	total, err := s.history.TotalTimeForMonth(monthKey)
	if errors.Is(err, domain.ErrNoMonthData) {
		return capsule, nil
	}
	if err != nil {
		return capsule, err
	}
	capsule.HasData = true
	capsule.TotalTime = total

	topSongs, err := s.history.TopSongsForMonth(monthKey)
	if err != nil {
		return capsule, err
	}
	capsule.TopSongs = rankSongs(topSongs)
	for i := range capsule.TopSongs {
		// Aggregates that did not join the library carry no title
		if capsule.TopSongs[i].Title == "" {
			if song, err := s.songs.GetByID(capsule.TopSongs[i].SongID); err == nil {
				capsule.TopSongs[i].Title = song.Title
			}
		}
	}

	topArtists, err := s.history.TopArtistsForMonth(monthKey)
	if err != nil {
		return capsule, err
	}
	capsule.TopArtists = rankArtists(topArtists)

	rows, err := s.history.RawHistoryForMonth(monthKey)
	if err != nil {
		return capsule, err
	}
	capsule.DayStreaks = s.computeStreaks(rows)

	return capsule, nil
}

// LiveMonthlyTotal returns the month's persisted total plus the elapsed time
// of the currently playing track. Live time counts only when the current
// track's own start month equals the queried month, so a track straddling a
// month rollover never leaks into the new month.
func (s *AnalyticsService) LiveMonthlyTotal(monthKey string) (time.Duration, error) {
	total, err := s.history.TotalTimeForMonth(monthKey)
	if err != nil && !errors.Is(err, domain.ErrNoMonthData) {
		return 0, err
	}

	s.mu.RLock()
	if s.liveSong != nil && domain.MonthKeyFor(s.liveStart) == monthKey {
		total += s.liveElapsed
	}
	s.mu.RUnlock()

	return total, nil
}

// AvailableMonths lists every month with recorded history, newest first.
func (s *AnalyticsService) AvailableMonths() ([]string, error) {
	return s.history.DistinctMonths()
}

// Shutdown unwinds the event subscriptions.
func (s *AnalyticsService) Shutdown() {
	for _, id := range s.busSubs {
		s.bus.Unsubscribe(id)
	}
	s.busSubs = nil
}

// onSegmentClosed persists one listening segment as a history row.
func (s *AnalyticsService) onSegmentClosed(event domain.Event) {
	e, ok := event.(domain.SegmentClosedEvent)
	if !ok {
		return
	}

	entry := domain.PlayHistoryEntry{
		Timestamp: e.StartedAt,
		SongID:    e.Song.ID,
		Artist:    e.Song.Artist,
		MonthKey:  domain.MonthKeyFor(e.StartedAt),
		Duration:  e.Listened,
	}
	if _, err := s.history.Insert(entry); err != nil {
		s.logger.Error("failed to record listening segment",
			slog.Int64("song_id", e.Song.ID), slog.Any("error", err))
	}
}

// onSongStarted begins live tracking for the running total.
func (s *AnalyticsService) onSongStarted(event domain.Event) {
	e, ok := event.(domain.SongStartedEvent)
	if !ok {
		return
	}

	s.mu.Lock()
	song := e.Song
	s.liveSong = &song
	s.liveStart = e.StartedAt
	s.liveElapsed = 0
	s.mu.Unlock()
}

// onProgress recomputes the live elapsed time reactively on every tick.
func (s *AnalyticsService) onProgress(event domain.Event) {
	if _, ok := event.(domain.PlaybackProgressEvent); !ok {
		return
	}

	s.mu.Lock()
	if s.liveSong != nil {
		s.liveElapsed = s.now().Sub(s.liveStart)
	}
	s.mu.Unlock()
}

// onPlaybackIdle clears live tracking; the closed segment is already durable.
func (s *AnalyticsService) onPlaybackIdle(domain.Event) {
	s.mu.Lock()
	s.liveSong = nil
	s.liveElapsed = 0
	s.mu.Unlock()
}

// computeStreaks finds, per song, the longest run of consecutive UTC calendar
// days with at least one play. Runs shorter than two days don't qualify.
// Results are sorted by (streak length desc, last day desc).
func (s *AnalyticsService) computeStreaks(rows []domain.PlayHistoryEntry) []domain.SongStreak {
	daysBySong := make(map[int64]map[time.Time]bool)
	for _, row := range rows {
		day := domain.DayFor(row.Timestamp)
		if daysBySong[row.SongID] == nil {
			daysBySong[row.SongID] = make(map[time.Time]bool)
		}
		daysBySong[row.SongID][day] = true
	}

	streaks := make([]domain.SongStreak, 0)
	for songID, daySet := range daysBySong {
		days := make([]time.Time, 0, len(daySet))
		for day := range daySet {
			days = append(days, day)
		}
		sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

		bestLen, bestEnd := 0, time.Time{}
		runLen, runEnd := 1, days[0]
		for i := 1; i < len(days); i++ {
			if days[i].Sub(days[i-1]) == 24*time.Hour {
				runLen++
			} else {
				runLen = 1
			}
			runEnd = days[i]
			if runLen >= bestLen {
				bestLen, bestEnd = runLen, runEnd
			}
		}
		if len(days) == 1 {
			bestLen, bestEnd = 1, days[0]
		}
		if bestLen < 2 {
			continue
		}

		streak := domain.SongStreak{SongID: songID, StreakDays: bestLen, LastDay: bestEnd}
		if song, err := s.songs.GetByID(songID); err == nil {
			streak.Title = song.Title
			streak.Artist = song.Artist
		}
		streaks = append(streaks, streak)
	}

	sort.Slice(streaks, func(i, j int) bool {
		if streaks[i].StreakDays != streaks[j].StreakDays {
			return streaks[i].StreakDays > streaks[j].StreakDays
		}
		return streaks[i].LastDay.After(streaks[j].LastDay)
	})
	return streaks
}

// rankSongs orders song aggregates by (play count desc, duration desc, title
// asc) and truncates to the top five. The title tiebreak keeps ranking
// deterministic when count and duration both tie.
func rankSongs(songs []domain.RankedSong) []domain.RankedSong {
	ranked := make([]domain.RankedSong, len(songs))
	copy(ranked, songs)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].PlayCount != ranked[j].PlayCount {
			return ranked[i].PlayCount > ranked[j].PlayCount
		}
		if ranked[i].Duration != ranked[j].Duration {
			return ranked[i].Duration > ranked[j].Duration
		}
		return strings.ToLower(ranked[i].Title) < strings.ToLower(ranked[j].Title)
	})

	if len(ranked) > topListSize {
		ranked = ranked[:topListSize]
	}
	return ranked
}

// rankArtists orders artist aggregates by (play count desc, duration desc,
// name asc) and truncates to the top five.
func rankArtists(artists []domain.RankedArtist) []domain.RankedArtist {
	ranked := make([]domain.RankedArtist, len(artists))
	copy(ranked, artists)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].PlayCount != ranked[j].PlayCount {
			return ranked[i].PlayCount > ranked[j].PlayCount
		}
		if ranked[i].Duration != ranked[j].Duration {
			return ranked[i].Duration > ranked[j].Duration
		}
		return strings.ToLower(ranked[i].Artist) < strings.ToLower(ranked[j].Artist)
	})

	if len(ranked) > topListSize {
		ranked = ranked[:topListSize]
	}
	return ranked
}
