// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the Auralis music player.
package domain

import (
	"fmt"
	"time"
)

// Song is a persisted library entry. Songs are created on local import or when
// a chart song is materialized from the server, and deleted only on explicit
// user removal (which cascades to dependent play-history rows).
type Song struct {
	// ID is assigned by the repository on insert (0 means not yet persisted)
	ID int64

	// Title is the song title (from metadata or filename)
	Title string

	// Artist is the performing artist name
	Artist string

	// Duration is the total length of the track
	Duration time.Duration

	// FilePath is the local path or stream URL of the audio source
	FilePath string

	// ArtworkPath references cover art, if any
	ArtworkPath string

	// DateAdded is when the song entered the library
	DateAdded time.Time

	// LastPlayed is when playback of this song last started (nil if never)
	LastPlayed *time.Time

	// IsFavorited is toggled by the user
	IsFavorited bool

	// IsFromServer marks songs materialized from the remote charts
	IsFromServer bool
}

// PlaybackQueue is an ordered sequence of songs plus the current index.
// It is owned exclusively by the playback engine; callers only ever receive
// copies via Snapshot.
type PlaybackQueue struct {
	Songs []Song
	Index int
}

// Snapshot returns an independent copy of the queue.
func (q PlaybackQueue) Snapshot() PlaybackQueue {
	songs := make([]Song, len(q.Songs))
	copy(songs, q.Songs)
	return PlaybackQueue{Songs: songs, Index: q.Index}
}

// Current returns the song at the current index, or nil if the queue is
// empty or the index is out of range.
func (q PlaybackQueue) Current() *Song {
	if q.Index < 0 || q.Index >= len(q.Songs) {
		return nil
	}
	song := q.Songs[q.Index]
	return &song
}

// PlaybackState is the single source of truth for "what is playing now".
// One instance is owned by the session coordinator and published to all
// observers as an immutable snapshot.
type PlaybackState struct {
	// CurrentSong is the song loaded in the transport (nil if none)
	CurrentSong *Song

	// IsPlaying reports whether the transport is actively playing
	IsPlaying bool

	// Position is the playback position within the current song
	Position time.Duration

	// Duration is the total duration of the current song
	Duration time.Duration

	// IsLoading is true between a play request and the transport being ready
	IsLoading bool

	// Err holds the most recent playback error until cleared by a successful
	// operation. The session never crashes on a playback error.
	Err error

	// ActiveDevice is the audio output the OS reports as active (nil if unknown)
	ActiveDevice *AudioDevice
}

// PlayHistoryEntry is an append-only fact recording one listening segment.
// Rows are never mutated; they are deleted only via cascade when their song
// is removed from the library.
type PlayHistoryEntry struct {
	ID        int64
	Timestamp time.Time
	SongID    int64
	Artist    string

	// MonthKey buckets the entry for analytics ("YYYY-MM"). It is computed in
	// UTC at write time; see MonthKeyFor.
	MonthKey string

	// Duration is how long the user actually listened during this segment
	Duration time.Duration
}

// MonthKeyFor returns the "YYYY-MM" analytics bucket for a timestamp.
//
// Month bucketing and streak day boundaries both use UTC so that a play near
// local midnight can never land in a different month than its streak day.
func MonthKeyFor(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%04d-%02d", u.Year(), int(u.Month()))
}

// DayFor normalizes a timestamp to its UTC calendar day (midnight).
// Streak detection compares these normalized days.
func DayFor(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// RankedSong is one row of a month's top-songs table.
type RankedSong struct {
	SongID    int64
	Title     string
	Artist    string
	PlayCount int
	Duration  time.Duration
}

// RankedArtist is one row of a month's top-artists table.
type RankedArtist struct {
	Artist    string
	PlayCount int
	Duration  time.Duration
}

// SongStreak records the longest run of consecutive calendar days on which a
// song was played. Runs shorter than two days do not qualify.
type SongStreak struct {
	SongID int64
	Title  string
	Artist string

	// StreakDays is the length of the longest run
	StreakDays int

	// LastDay is the final UTC day of that run
	LastDay time.Time
}

// MonthlyAnalytics is the derived "Sound Capsule" for one month. It is
// recomputed on demand and never persisted.
//
// HasData distinguishes "no history rows for this month" from a month whose
// aggregates merely sum to zero; downstream consumers must check it before
// rendering statistics.
type MonthlyAnalytics struct {
	MonthKey   string
	TotalTime  time.Duration
	TopSongs   []RankedSong
	TopArtists []RankedArtist
	DayStreaks []SongStreak
	HasData    bool
}

// PendingQueue is the minimal cross-surface handoff of "song + queue the user
// just requested". A surface sets it, the session coordinator consumes it once.
type PendingQueue struct {
	Song  Song
	Queue []Song
}
