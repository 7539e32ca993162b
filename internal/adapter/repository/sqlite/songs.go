package sqlite

import (
	"database/sql"
	"errors"
	"time"

	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/ports"
)

// SongRepository implements ports.SongRepository on sqlite.
type SongRepository struct {
	db *DB
}

// NewSongRepository creates a song repository over the shared connection.
func NewSongRepository(db *DB) *SongRepository {
	return &SongRepository{db: db}
}

type songRow struct {
	ID           int64        `db:"id"`
	Title        string       `db:"title"`
	Artist       string       `db:"artist"`
	DurationMs   int64        `db:"duration_ms"`
	FilePath     string       `db:"file_path"`
	ArtworkPath  string       `db:"artwork_path"`
	DateAdded    time.Time    `db:"date_added"`
	LastPlayed   sql.NullTime `db:"last_played"`
	IsFavorited  bool         `db:"is_favorited"`
	IsFromServer bool         `db:"is_from_server"`
}

func (r songRow) toDomain() domain.Song {
	song := domain.Song{
		ID:           r.ID,
		Title:        r.Title,
		Artist:       r.Artist,
		Duration:     time.Duration(r.DurationMs) * time.Millisecond,
		FilePath:     r.FilePath,
		ArtworkPath:  r.ArtworkPath,
		DateAdded:    r.DateAdded,
		IsFavorited:  r.IsFavorited,
		IsFromServer: r.IsFromServer,
	}
	if r.LastPlayed.Valid {
		t := r.LastPlayed.Time
		song.LastPlayed = &t
	}
	return song
}

// GetAll returns every song ordered by date added, newest first.
func (r *SongRepository) GetAll() ([]domain.Song, error) {
	var rows []songRow
	err := r.db.conn.Select(&rows, `SELECT * FROM songs ORDER BY date_added DESC`)
	if err != nil {
		return nil, domain.NewRepositoryError("get_all", "songs", "query failed", err)
	}

	songs := make([]domain.Song, 0, len(rows))
	for _, row := range rows {
		songs = append(songs, row.toDomain())
	}
	return songs, nil
}

// GetByID returns the song with the given ID.
func (r *SongRepository) GetByID(id int64) (*domain.Song, error) {
	var row songRow
	err := r.db.conn.Get(&row, `SELECT * FROM songs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSongNotFound
	}
	if err != nil {
		return nil, domain.NewRepositoryError("get_by_id", "songs", "query failed", err)
	}

	song := row.toDomain()
	return &song, nil
}

// Add inserts a song and returns it with its assigned ID.
func (r *SongRepository) Add(song domain.Song) (domain.Song, error) {
	res, err := r.db.conn.Exec(`
		INSERT INTO songs (title, artist, duration_ms, file_path, artwork_path, date_added, is_favorited, is_from_server)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		song.Title, song.Artist, song.Duration.Milliseconds(), song.FilePath,
		song.ArtworkPath, song.DateAdded, song.IsFavorited, song.IsFromServer)
	if err != nil {
		return domain.Song{}, domain.NewRepositoryError("insert", "songs", "insert failed", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Song{}, domain.NewRepositoryError("insert", "songs", "no insert id", err)
	}

	song.ID = id
	return song, nil
}

// Delete removes a song. Play-history rows cascade via the foreign key.
func (r *SongRepository) Delete(id int64) error {
	res, err := r.db.conn.Exec(`DELETE FROM songs WHERE id = ?`, id)
	if err != nil {
		return domain.NewRepositoryError("delete", "songs", "delete failed", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrSongNotFound
	}
	return nil
}

// UpdateLastPlayed records when playback of the song last started.
func (r *SongRepository) UpdateLastPlayed(id int64, playedAt time.Time) error {
	_, err := r.db.conn.Exec(`UPDATE songs SET last_played = ? WHERE id = ?`, playedAt, id)
	if err != nil {
		return domain.NewRepositoryError("update_last_played", "songs", "update failed", err)
	}
	return nil
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (r *SongRepository) ToggleFavorite(id int64) (bool, error) {
	res, err := r.db.conn.Exec(`UPDATE songs SET is_favorited = NOT is_favorited WHERE id = ?`, id)
	if err != nil {
		return false, domain.NewRepositoryError("toggle_favorite", "songs", "update failed", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, domain.ErrSongNotFound
	}

	var favorited bool
	if err := r.db.conn.Get(&favorited, `SELECT is_favorited FROM songs WHERE id = ?`, id); err != nil {
		return false, domain.NewRepositoryError("toggle_favorite", "songs", "readback failed", err)
	}
	return favorited, nil
}

// Verify that SongRepository implements the SongRepository interface
var _ ports.SongRepository = (*SongRepository)(nil)
