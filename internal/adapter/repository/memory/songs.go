// Package memory provides in-memory implementations of the repository ports.
// Services are tested against these; production wiring uses the sqlite
// implementations.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/ports"
)

// SongRepository is an in-memory implementation of ports.SongRepository.
//
// Thread-safe: All operations protected by sync.RWMutex.
type SongRepository struct {
	mu     sync.RWMutex
	songs  map[int64]domain.Song
	nextID int64

	// history is linked so Delete can cascade like the sqlite foreign key.
	history *PlayHistoryRepository
}

// NewSongRepository creates an empty in-memory song repository.
func NewSongRepository() *SongRepository {
	return &SongRepository{
		songs:  make(map[int64]domain.Song),
		nextID: 1,
	}
}

// LinkHistory attaches a history repository so song deletion cascades.
func (r *SongRepository) LinkHistory(history *PlayHistoryRepository) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = history
}

// GetAll returns every song ordered by date added, newest first.
func (r *SongRepository) GetAll() ([]domain.Song, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	songs := make([]domain.Song, 0, len(r.songs))
	for _, song := range r.songs {
		songs = append(songs, song)
	}
	sort.Slice(songs, func(i, j int) bool {
		return songs[i].DateAdded.After(songs[j].DateAdded)
	})
	return songs, nil
}

// GetByID returns the song with the given ID.
func (r *SongRepository) GetByID(id int64) (*domain.Song, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	song, ok := r.songs[id]
	if !ok {
		return nil, domain.ErrSongNotFound
	}
	return &song, nil
}

// Add inserts a song and returns it with its assigned ID.
func (r *SongRepository) Add(song domain.Song) (domain.Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	song.ID = r.nextID
	r.nextID++
	r.songs[song.ID] = song
	return song, nil
}

// Delete removes a song and cascades to its history rows.
func (r *SongRepository) Delete(id int64) error {
	r.mu.Lock()
	history := r.history
	_, ok := r.songs[id]
	if ok {
		delete(r.songs, id)
	}
	r.mu.Unlock()

	if !ok {
		return domain.ErrSongNotFound
	}
	if history != nil {
		history.deleteBySong(id)
	}
	return nil
}

// UpdateLastPlayed records when playback of the song last started.
func (r *SongRepository) UpdateLastPlayed(id int64, playedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	song, ok := r.songs[id]
	if !ok {
		return domain.ErrSongNotFound
	}
	song.LastPlayed = &playedAt
	r.songs[id] = song
	return nil
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (r *SongRepository) ToggleFavorite(id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	song, ok := r.songs[id]
	if !ok {
		return false, domain.ErrSongNotFound
	}
	song.IsFavorited = !song.IsFavorited
	r.songs[id] = song
	return song.IsFavorited, nil
}

// Verify that SongRepository implements the SongRepository interface
var _ ports.SongRepository = (*SongRepository)(nil)
