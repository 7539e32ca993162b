// Package sqlite provides sqlite-backed implementations of the repository ports.
package sqlite

import (
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/auralis-music/auralis/internal/domain"
)

// DB wraps the sqlite connection shared by the repositories.
type DB struct {
	conn   *sqlx.DB
	logger *slog.Logger
}

// Open opens (or creates) the database file and runs migrations.
func Open(path string, logger *slog.Logger) (*DB, error) {
	conn, err := sqlx.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, domain.NewRepositoryError("open", "db", "failed to open database", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, domain.NewRepositoryError("open", "db", "failed to ping database", err)
	}

	db := &DB{conn: conn, logger: logger}
	if err := db.migrate(); err != nil {
		return nil, err
	}

	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS songs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		file_path TEXT NOT NULL,
		artwork_path TEXT NOT NULL DEFAULT '',
		date_added DATETIME NOT NULL,
		last_played DATETIME,
		is_favorited BOOLEAN NOT NULL DEFAULT 0,
		is_from_server BOOLEAN NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS play_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		song_id INTEGER NOT NULL,
		artist TEXT NOT NULL,
		month_key TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		FOREIGN KEY(song_id) REFERENCES songs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_play_history_month ON play_history(month_key);
	CREATE INDEX IF NOT EXISTS idx_play_history_song ON play_history(song_id);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	if _, err := db.conn.Exec(schema); err != nil {
		return domain.NewRepositoryError("migrate", "db", "failed to create tables", err)
	}
	return nil
}
