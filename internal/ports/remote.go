// Package ports defines boundaries to server-backed services.
package ports

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"github.com/auralis-music/auralis/internal/domain"
)

// ChartSong is a song as described by the remote charts service, before it is
// materialized into the local library.
type ChartSong struct {
	ServerID   int64
	Title      string
	Artist     string
	DurationMs int64
	StreamURL  string
	ArtworkURL string
}

// Materialize converts the chart record into an unpersisted library song.
func (c ChartSong) Materialize(now time.Time) domain.Song {
	return domain.Song{
		Title:        c.Title,
		Artist:       c.Artist,
		Duration:     time.Duration(c.DurationMs) * time.Millisecond,
		FilePath:     c.StreamURL,
		ArtworkPath:  c.ArtworkURL,
		DateAdded:    now,
		IsFromServer: true,
	}
}

// ChartService returns typed chart records from the remote backend. Errors
// are mapped to *domain.NetworkError, distinguishing connectivity failures
// from server errors.
type ChartService interface {
	// TopCharts fetches the current top chart songs.
	TopCharts(ctx context.Context) ([]ChartSong, error)

	// ChartsByCountry fetches the chart for a country code.
	ChartsByCountry(ctx context.Context, country string) ([]ChartSong, error)
}

// Profile is the authenticated user's remote profile record.
type Profile struct {
	ID       int64
	Username string
	Email    string
}

// ProfileService returns the authenticated user's profile.
type ProfileService interface {
	// CurrentProfile fetches the profile for the stored credentials.
	CurrentProfile(ctx context.Context) (*Profile, error)
}

// CredentialProvider is the opaque auth boundary. Login and refresh flows
// live behind it; the core only attaches tokens to outgoing requests and
// persists the pair across restarts.
type CredentialProvider interface {
	// Token returns the current token pair, or nil when logged out.
	Token() (*oauth2.Token, error)

	// Store durably saves a token pair.
	Store(token *oauth2.Token) error

	// Clear removes the stored pair (logout).
	Clear() error
}
