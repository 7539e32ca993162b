// Package ports defines repository interfaces for data persistence abstraction.
// These interfaces enable the repository pattern and allow swapping persistence mechanisms.
package ports

import (
	"time"

	"github.com/auralis-music/auralis/internal/domain"
)

// SongRepository handles persistence of the song library.
//
// Thread-safety: Implementations must be thread-safe.
type SongRepository interface {
	// GetAll returns every song in the library ordered by date added.
	GetAll() ([]domain.Song, error)

	// GetByID returns the song with the given ID, or domain.ErrSongNotFound.
	GetByID(id int64) (*domain.Song, error)

	// Add inserts a song and returns it with its assigned ID.
	Add(song domain.Song) (domain.Song, error)

	// Delete removes a song. Dependent play-history rows are removed in the
	// same operation (cascade).
	Delete(id int64) error

	// UpdateLastPlayed records when playback of the song last started.
	UpdateLastPlayed(id int64, playedAt time.Time) error

	// ToggleFavorite flips the favorite flag and returns the new value.
	ToggleFavorite(id int64) (bool, error)
}

// PlayHistoryRepository handles the append-only play-history log and its
// monthly aggregates. Writes must be durable by the time Insert returns, so
// listening time survives an immediate process kill.
//
// Thread-safety: Implementations must be thread-safe; reads may run
// concurrently with playback writes.
type PlayHistoryRepository interface {
	// Insert appends one listening segment and returns it with its ID.
	Insert(entry domain.PlayHistoryEntry) (domain.PlayHistoryEntry, error)

	// TotalTimeForMonth sums listened duration over a month. A month with no
	// rows returns (0, domain.ErrNoMonthData).
	TotalTimeForMonth(monthKey string) (time.Duration, error)

	// TopSongsForMonth returns per-song aggregates for a month, unranked.
	TopSongsForMonth(monthKey string) ([]domain.RankedSong, error)

	// TopArtistsForMonth returns per-artist aggregates for a month, unranked.
	TopArtistsForMonth(monthKey string) ([]domain.RankedArtist, error)

	// RawHistoryForMonth returns a month's rows ordered by timestamp.
	RawHistoryForMonth(monthKey string) ([]domain.PlayHistoryEntry, error)

	// DistinctMonths returns every month key with at least one row, newest first.
	DistinctMonths() ([]string, error)
}

// SettingsRepository is a durable key-value store for small preferences:
// the serialized preferred audio device and the auth token pair.
//
// Thread-safety: Implementations must be thread-safe.
type SettingsRepository interface {
	// SetString stores a string value under key.
	SetString(key, value string) error

	// GetString retrieves a value, returning fallback when the key is absent.
	GetString(key, fallback string) (string, error)

	// SetInt stores an integer value under key.
	SetInt(key string, value int) error

	// GetInt retrieves an integer, returning fallback when the key is absent.
	GetInt(key string, fallback int) (int, error)

	// Remove deletes a key. Removing an absent key is a no-op.
	Remove(key string) error
}
