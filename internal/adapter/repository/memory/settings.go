package memory

import (
	"strconv"
	"sync"

	"github.com/auralis-music/auralis/internal/ports"
)

// SettingsRepository is an in-memory implementation of
// ports.SettingsRepository.
//
// Thread-safe: All operations protected by sync.RWMutex.
type SettingsRepository struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewSettingsRepository creates an empty in-memory settings repository.
func NewSettingsRepository() *SettingsRepository {
	return &SettingsRepository{values: make(map[string]string)}
}

// SetString stores a string value under key.
func (r *SettingsRepository) SetString(key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}

// GetString retrieves a value, returning fallback when the key is absent.
func (r *SettingsRepository) GetString(key, fallback string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if value, ok := r.values[key]; ok {
		return value, nil
	}
	return fallback, nil
}

// SetInt stores an integer value under key.
func (r *SettingsRepository) SetInt(key string, value int) error {
	return r.SetString(key, strconv.Itoa(value))
}

// GetInt retrieves an integer, returning fallback when the key is absent or
// unparseable.
func (r *SettingsRepository) GetInt(key string, fallback int) (int, error) {
	raw, err := r.GetString(key, "")
	if err != nil || raw == "" {
		return fallback, err
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback, nil
	}
	return value, nil
}

// Remove deletes a key. Removing an absent key is a no-op.
func (r *SettingsRepository) Remove(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.values, key)
	return nil
}

// Verify that SettingsRepository implements the SettingsRepository interface
var _ ports.SettingsRepository = (*SettingsRepository)(nil)
