package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auralis-music/auralis/internal/adapter/credentials"
	"github.com/auralis-music/auralis/internal/adapter/repository/memory"
	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/logger"

	"golang.org/x/oauth2"
)

const chartsJSON = `[
	{"id": 1, "title": "Hit One", "artist": "Artist A", "duration_ms": 180000,
	 "stream_url": "https://cdn.example.com/1", "artwork_url": "https://cdn.example.com/1.jpg"},
	{"id": 2, "title": "Hit Two", "artist": "Artist B", "duration_ms": 210000,
	 "stream_url": "https://cdn.example.com/2", "artwork_url": ""}
]`

func TestClient_TopCharts(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chartsJSON))
	}))
	defer server.Close()

	settings := memory.NewSettingsRepository()
	provider := credentials.NewProvider(settings)
	require.NoError(t, provider.Store(&oauth2.Token{AccessToken: "secret", TokenType: "Bearer"}))

	client := NewClient(server.URL, provider, logger.NewTestLogger())

	songs, err := client.TopCharts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/v1/charts/top", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)

	require.Len(t, songs, 2)
	assert.Equal(t, int64(1), songs[0].ServerID)
	assert.Equal(t, "Hit One", songs[0].Title)
	assert.Equal(t, int64(180000), songs[0].DurationMs)
	assert.Equal(t, "https://cdn.example.com/1", songs[0].StreamURL)
}

func TestClient_TopChartsWithoutCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, logger.NewTestLogger())

	songs, err := client.TopCharts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, songs)
}

func TestClient_ChartsByCountry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/charts/country/de", r.URL.Path)
		_, _ = w.Write([]byte(chartsJSON))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, logger.NewTestLogger())

	songs, err := client.ChartsByCountry(context.Background(), "de")
	require.NoError(t, err)
	assert.Len(t, songs, 2)
}

func TestClient_CurrentProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/me", r.URL.Path)
		_, _ = w.Write([]byte(`{"id": 7, "username": "listener", "email": "listener@example.com"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, logger.NewTestLogger())

	profile, err := client.CurrentProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), profile.ID)
	assert.Equal(t, "listener", profile.Username)
}

func TestClient_ServerErrorIsNotConnectivity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, logger.NewTestLogger())

	_, err := client.TopCharts(context.Background())
	require.Error(t, err)

	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusInternalServerError, netErr.StatusCode)
	assert.False(t, netErr.Connectivity)
	assert.False(t, domain.IsConnectivity(err))
}

func TestClient_UnreachableServerIsConnectivity(t *testing.T) {
	// A closed server refuses the connection outright
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, nil, logger.NewTestLogger())

	_, err := client.TopCharts(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsConnectivity(err))
}

func TestClient_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not": "a list"`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, logger.NewTestLogger())

	_, err := client.TopCharts(context.Background())
	require.Error(t, err)

	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.False(t, netErr.Connectivity)
}
