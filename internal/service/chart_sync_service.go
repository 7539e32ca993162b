package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/ports"
)

// ChartSyncService materializes chart songs from the remote backend into the
// local library so they can be queued and counted like any local song.
type ChartSyncService struct {
	logger *slog.Logger
	charts ports.ChartService
	songs  ports.SongRepository
	now    func() time.Time
}

// NewChartSyncService creates a chart sync service.
func NewChartSyncService(logger *slog.Logger, charts ports.ChartService, songs ports.SongRepository) *ChartSyncService {
	return &ChartSyncService{
		logger: logger,
		charts: charts,
		songs:  songs,
		now:    time.Now,
	}
}

// SyncTopCharts fetches the current top charts and inserts any song not
// already in the library. It returns the newly materialized songs.
func (s *ChartSyncService) SyncTopCharts(ctx context.Context) ([]domain.Song, error) {
	chartSongs, err := s.charts.TopCharts(ctx)
	if err != nil {
		if domain.IsConnectivity(err) {
			s.logger.Warn("chart sync skipped, no connectivity", slog.Any("error", err))
		}
		return nil, err
	}
	return s.materialize(chartSongs)
}

// SyncCountryCharts fetches and materializes the chart for a country code.
func (s *ChartSyncService) SyncCountryCharts(ctx context.Context, country string) ([]domain.Song, error) {
	chartSongs, err := s.charts.ChartsByCountry(ctx, country)
	if err != nil {
		return nil, err
	}
	return s.materialize(chartSongs)
}

// materialize inserts chart records that are not yet in the library. The
// stream URL is the dedup key: a chart song's URL is stable across fetches.
func (s *ChartSyncService) materialize(chartSongs []ports.ChartSong) ([]domain.Song, error) {
	existing, err := s.songs.GetAll()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, song := range existing {
		known[song.FilePath] = true
	}

	added := make([]domain.Song, 0)
	for _, chartSong := range chartSongs {
		if chartSong.StreamURL == "" || known[chartSong.StreamURL] {
			continue
		}

		song, err := s.songs.Add(chartSong.Materialize(s.now()))
		if err != nil {
			return added, err
		}
		known[song.FilePath] = true
		added = append(added, song)
	}

	s.logger.Info("chart sync complete",
		slog.Int("fetched", len(chartSongs)),
		slog.Int("added", len(added)))
	return added, nil
}
