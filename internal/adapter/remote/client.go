// Package remote implements the chart and profile ports against the Auralis
// HTTP backend.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/ports"
)

const (
	defaultTimeout = 15 * time.Second

	// requestsPerSecond caps outgoing calls so a chart refresh loop cannot
	// hammer the backend.
	requestsPerSecond = 5
	requestBurst      = 10
)

// Client talks to the backend's JSON API. All failures are reported as
// *domain.NetworkError so callers can distinguish connectivity problems from
// server errors.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	credentials ports.CredentialProvider
	logger      *slog.Logger
}

// NewClient creates a backend client. credentials may be nil for anonymous
// endpoints only.
func NewClient(baseURL string, credentials ports.CredentialProvider, logger *slog.Logger) *Client {
	return &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		credentials: credentials,
		logger:      logger,
	}
}

type chartSongPayload struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	DurationMs int64  `json:"duration_ms"`
	StreamURL  string `json:"stream_url"`
	ArtworkURL string `json:"artwork_url"`
}

func (p chartSongPayload) toPort() ports.ChartSong {
	return ports.ChartSong{
		ServerID:   p.ID,
		Title:      p.Title,
		Artist:     p.Artist,
		DurationMs: p.DurationMs,
		StreamURL:  p.StreamURL,
		ArtworkURL: p.ArtworkURL,
	}
}

// TopCharts fetches the current top chart songs.
func (c *Client) TopCharts(ctx context.Context) ([]ports.ChartSong, error) {
	var payload []chartSongPayload
	if err := c.getJSON(ctx, "fetch_charts", "/v1/charts/top", &payload); err != nil {
		return nil, err
	}

	songs := make([]ports.ChartSong, 0, len(payload))
	for _, p := range payload {
		songs = append(songs, p.toPort())
	}
	return songs, nil
}

// ChartsByCountry fetches the chart for a country code.
func (c *Client) ChartsByCountry(ctx context.Context, country string) ([]ports.ChartSong, error) {
	var payload []chartSongPayload
	path := fmt.Sprintf("/v1/charts/country/%s", country)
	if err := c.getJSON(ctx, "fetch_country_charts", path, &payload); err != nil {
		return nil, err
	}

	songs := make([]ports.ChartSong, 0, len(payload))
	for _, p := range payload {
		songs = append(songs, p.toPort())
	}
	return songs, nil
}

// CurrentProfile fetches the profile for the stored credentials.
func (c *Client) CurrentProfile(ctx context.Context) (*ports.Profile, error) {
	var payload struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := c.getJSON(ctx, "fetch_profile", "/v1/me", &payload); err != nil {
		return nil, err
	}
	return &ports.Profile{ID: payload.ID, Username: payload.Username, Email: payload.Email}, nil
}

// getJSON performs a rate-limited authenticated GET and decodes the body.
func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.NewNetworkError(op, 0, true, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return domain.NewNetworkError(op, 0, true, err)
	}
	req.Header.Set("Accept", "application/json")

	if c.credentials != nil {
		token, err := c.credentials.Token()
		if err != nil {
			return domain.NewNetworkError(op, 0, true, err)
		}
		if token != nil {
			token.SetAuthHeader(req)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The request never reached the server or timed out.
		return domain.NewNetworkError(op, 0, true, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close response body", "op", op, "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.NewNetworkError(op, resp.StatusCode, false,
			fmt.Errorf("unexpected status: %s", string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewNetworkError(op, resp.StatusCode, false, err)
	}
	return nil
}

// Verify that Client implements the remote service interfaces
var (
	_ ports.ChartService   = (*Client)(nil)
	_ ports.ProfileService = (*Client)(nil)
)
