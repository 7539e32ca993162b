package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/ports"
)

// PlayHistoryRepository is an in-memory implementation of
// ports.PlayHistoryRepository.
//
// Thread-safe: All operations protected by sync.RWMutex.
type PlayHistoryRepository struct {
	mu      sync.RWMutex
	entries []domain.PlayHistoryEntry
	nextID  int64
}

// NewPlayHistoryRepository creates an empty in-memory history repository.
func NewPlayHistoryRepository() *PlayHistoryRepository {
	return &PlayHistoryRepository{nextID: 1}
}

// Insert appends one listening segment and returns it with its ID.
func (r *PlayHistoryRepository) Insert(entry domain.PlayHistoryEntry) (domain.PlayHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = r.nextID
	r.nextID++
	r.entries = append(r.entries, entry)
	return entry, nil
}

// TotalTimeForMonth sums listened duration over a month.
func (r *PlayHistoryRepository) TotalTimeForMonth(monthKey string) (time.Duration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total time.Duration
	found := false
	for _, e := range r.entries {
		if e.MonthKey == monthKey {
			total += e.Duration
			found = true
		}
	}
	if !found {
		return 0, domain.ErrNoMonthData
	}
	return total, nil
}

// TopSongsForMonth returns per-song aggregates for a month, unranked.
func (r *PlayHistoryRepository) TopSongsForMonth(monthKey string) ([]domain.RankedSong, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bySong := make(map[int64]*domain.RankedSong)
	order := make([]int64, 0)
	for _, e := range r.entries {
		if e.MonthKey != monthKey {
			continue
		}
		agg, ok := bySong[e.SongID]
		if !ok {
			agg = &domain.RankedSong{SongID: e.SongID, Artist: e.Artist}
			bySong[e.SongID] = agg
			order = append(order, e.SongID)
		}
		agg.PlayCount++
		agg.Duration += e.Duration
	}

	out := make([]domain.RankedSong, 0, len(order))
	for _, id := range order {
		out = append(out, *bySong[id])
	}
	return out, nil
}

// TopArtistsForMonth returns per-artist aggregates for a month, unranked.
func (r *PlayHistoryRepository) TopArtistsForMonth(monthKey string) ([]domain.RankedArtist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byArtist := make(map[string]*domain.RankedArtist)
	order := make([]string, 0)
	for _, e := range r.entries {
		if e.MonthKey != monthKey {
			continue
		}
		agg, ok := byArtist[e.Artist]
		if !ok {
			agg = &domain.RankedArtist{Artist: e.Artist}
			byArtist[e.Artist] = agg
			order = append(order, e.Artist)
		}
		agg.PlayCount++
		agg.Duration += e.Duration
	}

	out := make([]domain.RankedArtist, 0, len(order))
	for _, artist := range order {
		out = append(out, *byArtist[artist])
	}
	return out, nil
}

// RawHistoryForMonth returns a month's rows ordered by timestamp.
func (r *PlayHistoryRepository) RawHistoryForMonth(monthKey string) ([]domain.PlayHistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.PlayHistoryEntry, 0)
	for _, e := range r.entries {
		if e.MonthKey == monthKey {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// DistinctMonths returns every month key with at least one row, newest first.
func (r *PlayHistoryRepository) DistinctMonths() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	months := make([]string, 0)
	for _, e := range r.entries {
		if !seen[e.MonthKey] {
			seen[e.MonthKey] = true
			months = append(months, e.MonthKey)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months, nil
}

// deleteBySong removes all rows for a song (cascade from SongRepository).
func (r *PlayHistoryRepository) deleteBySong(songID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.SongID != songID {
			kept = append(kept, e)
		}
	}
	r.entries = kept
}

// Verify that PlayHistoryRepository implements the PlayHistoryRepository interface
var _ ports.PlayHistoryRepository = (*PlayHistoryRepository)(nil)
