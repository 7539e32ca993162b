package service

import (
	"log/slog"
	"time"

	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/ports"
)

// LibraryService manages the persisted song library: local file imports,
// lookup, favorites, and removal.
type LibraryService struct {
	logger   *slog.Logger
	songs    ports.SongRepository
	metadata ports.MetadataReader
	now      func() time.Time
}

// NewLibraryService creates a library service.
func NewLibraryService(logger *slog.Logger, songs ports.SongRepository, metadata ports.MetadataReader) *LibraryService {
	return &LibraryService{
		logger:   logger,
		songs:    songs,
		metadata: metadata,
		now:      time.Now,
	}
}

// ImportFile reads metadata from a local audio file and inserts it into the
// library.
func (s *LibraryService) ImportFile(path string) (domain.Song, error) {
	if path == "" {
		return domain.Song{}, domain.ErrInvalidFilePath
	}

	song, err := s.metadata.ReadMetadata(path)
	if err != nil {
		return domain.Song{}, domain.NewLoadError(path, err)
	}

	song.DateAdded = s.now()
	added, err := s.songs.Add(*song)
	if err != nil {
		return domain.Song{}, err
	}

	s.logger.Info("imported song",
		slog.Int64("id", added.ID),
		slog.String("title", added.Title),
		slog.String("artist", added.Artist))
	return added, nil
}

// Songs returns the full library ordered by date added.
func (s *LibraryService) Songs() ([]domain.Song, error) {
	return s.songs.GetAll()
}

// Song returns a single library entry by ID.
func (s *LibraryService) Song(id int64) (*domain.Song, error) {
	return s.songs.GetByID(id)
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (s *LibraryService) ToggleFavorite(id int64) (bool, error) {
	return s.songs.ToggleFavorite(id)
}

// Remove deletes a song; its play-history rows are removed in the same
// operation.
func (s *LibraryService) Remove(id int64) error {
	if err := s.songs.Delete(id); err != nil {
		return err
	}
	s.logger.Info("removed song", slog.Int64("id", id))
	return nil
}
