package sqlite

import (
	"time"

	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/ports"
)

// PlayHistoryRepository implements ports.PlayHistoryRepository on sqlite.
// Inserts commit before returning, so a listening segment is durable the
// moment the playback layer reports it closed.
type PlayHistoryRepository struct {
	db *DB
}

// NewPlayHistoryRepository creates a play-history repository over the shared
// connection.
func NewPlayHistoryRepository(db *DB) *PlayHistoryRepository {
	return &PlayHistoryRepository{db: db}
}

type historyRow struct {
	ID         int64     `db:"id"`
	Timestamp  time.Time `db:"timestamp"`
	SongID     int64     `db:"song_id"`
	Artist     string    `db:"artist"`
	MonthKey   string    `db:"month_key"`
	DurationMs int64     `db:"duration_ms"`
}

func (r historyRow) toDomain() domain.PlayHistoryEntry {
	return domain.PlayHistoryEntry{
		ID:        r.ID,
		Timestamp: r.Timestamp,
		SongID:    r.SongID,
		Artist:    r.Artist,
		MonthKey:  r.MonthKey,
		Duration:  time.Duration(r.DurationMs) * time.Millisecond,
	}
}

// Insert appends one listening segment and returns it with its ID.
func (r *PlayHistoryRepository) Insert(entry domain.PlayHistoryEntry) (domain.PlayHistoryEntry, error) {
	res, err := r.db.conn.Exec(`
		INSERT INTO play_history (timestamp, song_id, artist, month_key, duration_ms)
		VALUES (?, ?, ?, ?, ?)`,
		entry.Timestamp, entry.SongID, entry.Artist, entry.MonthKey, entry.Duration.Milliseconds())
	if err != nil {
		return domain.PlayHistoryEntry{}, domain.NewRepositoryError("insert", "history", "insert failed", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.PlayHistoryEntry{}, domain.NewRepositoryError("insert", "history", "no insert id", err)
	}

	entry.ID = id
	return entry, nil
}

// TotalTimeForMonth sums listened duration over a month.
func (r *PlayHistoryRepository) TotalTimeForMonth(monthKey string) (time.Duration, error) {
	var row struct {
		Rows    int64 `db:"n"`
		TotalMs int64 `db:"total_ms"`
	}
	err := r.db.conn.Get(&row, `
		SELECT COUNT(*) AS n, COALESCE(SUM(duration_ms), 0) AS total_ms
		FROM play_history WHERE month_key = ?`, monthKey)
	if err != nil {
		return 0, domain.NewRepositoryError("total_time", "history", "query failed", err)
	}
	if row.Rows == 0 {
		return 0, domain.ErrNoMonthData
	}
	return time.Duration(row.TotalMs) * time.Millisecond, nil
}

// TopSongsForMonth returns per-song aggregates for a month, unranked.
// Title and artist come from the songs table when the song still exists.
func (r *PlayHistoryRepository) TopSongsForMonth(monthKey string) ([]domain.RankedSong, error) {
	var rows []struct {
		SongID     int64  `db:"song_id"`
		Title      string `db:"title"`
		Artist     string `db:"artist"`
		PlayCount  int    `db:"play_count"`
		DurationMs int64  `db:"duration_ms"`
	}
	err := r.db.conn.Select(&rows, `
		SELECT h.song_id AS song_id,
		       COALESCE(s.title, '') AS title,
		       h.artist AS artist,
		       COUNT(*) AS play_count,
		       SUM(h.duration_ms) AS duration_ms
		FROM play_history h
		LEFT JOIN songs s ON s.id = h.song_id
		WHERE h.month_key = ?
		GROUP BY h.song_id`, monthKey)
	if err != nil {
		return nil, domain.NewRepositoryError("top_songs", "history", "query failed", err)
	}

	out := make([]domain.RankedSong, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.RankedSong{
			SongID:    row.SongID,
			Title:     row.Title,
			Artist:    row.Artist,
			PlayCount: row.PlayCount,
			Duration:  time.Duration(row.DurationMs) * time.Millisecond,
		})
	}
	return out, nil
}

// TopArtistsForMonth returns per-artist aggregates for a month, unranked.
func (r *PlayHistoryRepository) TopArtistsForMonth(monthKey string) ([]domain.RankedArtist, error) {
	var rows []struct {
		Artist     string `db:"artist"`
		PlayCount  int    `db:"play_count"`
		DurationMs int64  `db:"duration_ms"`
	}
	err := r.db.conn.Select(&rows, `
		SELECT artist, COUNT(*) AS play_count, SUM(duration_ms) AS duration_ms
		FROM play_history
		WHERE month_key = ?
		GROUP BY artist`, monthKey)
	if err != nil {
		return nil, domain.NewRepositoryError("top_artists", "history", "query failed", err)
	}

	out := make([]domain.RankedArtist, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.RankedArtist{
			Artist:    row.Artist,
			PlayCount: row.PlayCount,
			Duration:  time.Duration(row.DurationMs) * time.Millisecond,
		})
	}
	return out, nil
}

// RawHistoryForMonth returns a month's rows ordered by timestamp.
func (r *PlayHistoryRepository) RawHistoryForMonth(monthKey string) ([]domain.PlayHistoryEntry, error) {
	var rows []historyRow
	err := r.db.conn.Select(&rows, `
		SELECT * FROM play_history WHERE month_key = ? ORDER BY timestamp ASC`, monthKey)
	if err != nil {
		return nil, domain.NewRepositoryError("raw_history", "history", "query failed", err)
	}

	out := make([]domain.PlayHistoryEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// DistinctMonths returns every month key with at least one row, newest first.
func (r *PlayHistoryRepository) DistinctMonths() ([]string, error) {
	var months []string
	err := r.db.conn.Select(&months, `
		SELECT DISTINCT month_key FROM play_history ORDER BY month_key DESC`)
	if err != nil {
		return nil, domain.NewRepositoryError("distinct_months", "history", "query failed", err)
	}
	return months, nil
}

// Verify that PlayHistoryRepository implements the PlayHistoryRepository interface
var _ ports.PlayHistoryRepository = (*PlayHistoryRepository)(nil)
