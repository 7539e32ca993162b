package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/auralis-music/auralis/internal/domain"
	"github.com/auralis-music/auralis/internal/ports"
)

// CapsuleExportService writes a month's Sound Capsule as CSV: a header block
// with the month and total time, then labeled Top Songs, Top Artists, Day
// Streaks, and Detailed Play History tables. encoding/csv handles field
// escaping, so free-text titles and artists are safe as-is.
type CapsuleExportService struct {
	logger    *slog.Logger
	analytics *AnalyticsService
	history   ports.PlayHistoryRepository
	songs     ports.SongRepository
}

// NewCapsuleExportService creates a capsule export service.
func NewCapsuleExportService(
	logger *slog.Logger,
	analytics *AnalyticsService,
	history ports.PlayHistoryRepository,
	songs ports.SongRepository,
) *CapsuleExportService {
	return &CapsuleExportService{
		logger:    logger,
		analytics: analytics,
		history:   history,
		songs:     songs,
	}
}

// Export writes the capsule for monthKey to w. A month without data exports
// just the header block with a zero total.
func (s *CapsuleExportService) Export(w io.Writer, monthKey string) error {
	capsule, err := s.analytics.MonthlyCapsule(monthKey)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)

	// Header block
	records := [][]string{
		{"Sound Capsule"},
		{"Month", capsule.MonthKey},
		{"Total Time Listened", formatDuration(capsule.TotalTime)},
		{},
	}
	for _, record := range records {
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	if err := s.writeTopSongs(cw, capsule.TopSongs); err != nil {
		return err
	}
	if err := s.writeTopArtists(cw, capsule.TopArtists); err != nil {
		return err
	}
	if err := s.writeStreaks(cw, capsule.DayStreaks); err != nil {
		return err
	}
	if err := s.writeHistory(cw, monthKey); err != nil {
		return err
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	s.logger.Info("capsule exported", slog.String("month", monthKey))
	return nil
}

func (s *CapsuleExportService) writeTopSongs(cw *csv.Writer, songs []domain.RankedSong) error {
	if err := cw.Write([]string{"Top Songs"}); err != nil {
		return err
	}
	if err := cw.Write([]string{"Rank", "Title", "Artist", "Plays", "Time Listened"}); err != nil {
		return err
	}
	for i, song := range songs {
		record := []string{
			strconv.Itoa(i + 1),
			song.Title,
			song.Artist,
			strconv.Itoa(song.PlayCount),
			formatDuration(song.Duration),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return cw.Write(nil)
}

func (s *CapsuleExportService) writeTopArtists(cw *csv.Writer, artists []domain.RankedArtist) error {
	if err := cw.Write([]string{"Top Artists"}); err != nil {
		return err
	}
	if err := cw.Write([]string{"Rank", "Artist", "Plays", "Time Listened"}); err != nil {
		return err
	}
	for i, artist := range artists {
		record := []string{
			strconv.Itoa(i + 1),
			artist.Artist,
			strconv.Itoa(artist.PlayCount),
			formatDuration(artist.Duration),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return cw.Write(nil)
}

func (s *CapsuleExportService) writeStreaks(cw *csv.Writer, streaks []domain.SongStreak) error {
	if err := cw.Write([]string{"Day Streaks"}); err != nil {
		return err
	}
	if err := cw.Write([]string{"Title", "Artist", "Days", "Last Day"}); err != nil {
		return err
	}
	for _, streak := range streaks {
		record := []string{
			streak.Title,
			streak.Artist,
			strconv.Itoa(streak.StreakDays),
			streak.LastDay.Format("2006-01-02"),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return cw.Write(nil)
}

func (s *CapsuleExportService) writeHistory(cw *csv.Writer, monthKey string) error {
	rows, err := s.history.RawHistoryForMonth(monthKey)
	if err != nil {
		return err
	}

	if err := cw.Write([]string{"Detailed Play History"}); err != nil {
		return err
	}
	if err := cw.Write([]string{"Played At", "Title", "Artist", "Duration"}); err != nil {
		return err
	}
	for _, row := range rows {
		title := ""
		if song, lookupErr := s.songs.GetByID(row.SongID); lookupErr == nil {
			title = song.Title
		}
		record := []string{
			row.Timestamp.UTC().Format(time.RFC3339),
			title,
			row.Artist,
			formatDuration(row.Duration),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// formatDuration renders a duration as H:MM:SS.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	sec := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
}
