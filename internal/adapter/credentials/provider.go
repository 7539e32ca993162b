// Package credentials persists the auth token pair in the settings store.
// Login and refresh flows happen outside the core; this provider only keeps
// the opaque pair across restarts.
package credentials

import (
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/auralis-music/auralis/internal/ports"
)

// Settings keys for the stored token pair.
const (
	keyAccessToken  = "auth.access_token"
	keyRefreshToken = "auth.refresh_token"
	keyTokenExpiry  = "auth.token_expiry"
)

// Provider implements ports.CredentialProvider over a settings repository.
//
// Thread-safe: All operations protected by sync.Mutex.
type Provider struct {
	mu       sync.Mutex
	settings ports.SettingsRepository
}

// NewProvider creates a credential provider backed by settings.
func NewProvider(settings ports.SettingsRepository) *Provider {
	return &Provider{settings: settings}
}

// Token returns the stored token pair, or nil when logged out.
func (p *Provider) Token() (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	access, err := p.settings.GetString(keyAccessToken, "")
	if err != nil {
		return nil, err
	}
	if access == "" {
		return nil, nil
	}

	refresh, err := p.settings.GetString(keyRefreshToken, "")
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{AccessToken: access, RefreshToken: refresh}
	expiry, err := p.settings.GetString(keyTokenExpiry, "")
	if err != nil {
		return nil, err
	}
	if expiry != "" {
		if parsed, parseErr := time.Parse(time.RFC3339, expiry); parseErr == nil {
			token.Expiry = parsed
		}
	}
	return token, nil
}

// Store durably saves a token pair.
func (p *Provider) Store(token *oauth2.Token) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.settings.SetString(keyAccessToken, token.AccessToken); err != nil {
		return err
	}
	if err := p.settings.SetString(keyRefreshToken, token.RefreshToken); err != nil {
		return err
	}

	expiry := ""
	if !token.Expiry.IsZero() {
		expiry = token.Expiry.UTC().Format(time.RFC3339)
	}
	return p.settings.SetString(keyTokenExpiry, expiry)
}

// Clear removes the stored pair (logout).
func (p *Provider) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, key := range []string{keyAccessToken, keyRefreshToken, keyTokenExpiry} {
		if err := p.settings.Remove(key); err != nil {
			return err
		}
	}
	return nil
}

// Verify that Provider implements the CredentialProvider interface
var _ ports.CredentialProvider = (*Provider)(nil)
