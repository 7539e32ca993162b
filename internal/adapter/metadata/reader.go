// Package metadata implements the MetadataReader port using dhowden/tag.
package metadata

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"

	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/ports"
)

// Reader extracts song metadata from local audio files.
type Reader struct{}

// NewReader creates a new tag-based metadata reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadMetadata returns an unpersisted Song populated from the file's tags.
// Files without usable tags fall back to the file name as title. Duration is
// left zero here; the transport reports the authoritative duration on load.
func (r *Reader) ReadMetadata(path string) (*domain.Song, error) {
	if path == "" {
		return nil, domain.ErrInvalidFilePath
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, domain.NewLoadError(path, err)
	}
	defer f.Close()

	song := &domain.Song{
		FilePath:  path,
		Title:     titleFromPath(path),
		Artist:    "Unknown Artist",
		DateAdded: time.Now(),
	}

	meta, err := tag.ReadFrom(f)
	if err != nil {
		// Untagged files are importable; identity comes from the file name.
		return song, nil
	}

	if t := strings.TrimSpace(meta.Title()); t != "" {
		song.Title = t
	}
	if a := strings.TrimSpace(meta.Artist()); a != "" {
		song.Artist = a
	}

	return song, nil
}

// titleFromPath derives a display title from the file name.
func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Verify that Reader implements the MetadataReader interface
var _ ports.MetadataReader = (*Reader)(nil)
