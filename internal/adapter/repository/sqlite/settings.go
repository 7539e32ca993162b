package sqlite

import (
	"database/sql"
	"errors"
	"strconv"

	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/ports"
)

// SettingsRepository implements ports.SettingsRepository on the sqlite
// settings table.
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a settings repository over the shared
// connection.
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// SetString stores a string value under key.
func (r *SettingsRepository) SetString(key, value string) error {
	_, err := r.db.conn.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return domain.NewRepositoryError("set", "settings", "upsert failed", err)
	}
	return nil
}

// GetString retrieves a value, returning fallback when the key is absent.
func (r *SettingsRepository) GetString(key, fallback string) (string, error) {
	var value string
	err := r.db.conn.Get(&value, `SELECT value FROM settings WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return fallback, domain.NewRepositoryError("get", "settings", "query failed", err)
	}
	return value, nil
}

// SetInt stores an integer value under key.
func (r *SettingsRepository) SetInt(key string, value int) error {
	return r.SetString(key, strconv.Itoa(value))
}

// GetInt retrieves an integer, returning fallback when the key is absent or
// unparseable.
func (r *SettingsRepository) GetInt(key string, fallback int) (int, error) {
	raw, err := r.GetString(key, "")
	if err != nil {
		return fallback, err
	}
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, nil
	}
	return value, nil
}

// Remove deletes a key. Removing an absent key is a no-op.
func (r *SettingsRepository) Remove(key string) error {
	if _, err := r.db.conn.Exec(`DELETE FROM settings WHERE key = ?`, key); err != nil {
		return domain.NewRepositoryError("remove", "settings", "delete failed", err)
	}
	return nil
}

// Verify that SettingsRepository implements the SettingsRepository interface
var _ ports.SettingsRepository = (*SettingsRepository)(nil)
