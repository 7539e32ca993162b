// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"

	beepengine "github.com/auralis-music/auralis/internal/adapter/audio/beep"
	mockaudio "github.com/auralis-music/auralis/internal/adapter/audio/mock"
	"github.com/auralis-music/auralis/internal/adapter/credentials"
	"github.com/auralis-music/auralis/internal/adapter/devices/local"
	"github.com/auralis-music/auralis/internal/adapter/eventbus"
	"github.com/auralis-music/auralis/internal/adapter/metadata"
	"github.com/auralis-music/auralis/internal/adapter/remote"
	"github.com/auralis-music/auralis/internal/adapter/repository/sqlite"
	"github.com/auralis-music/auralis/internal/logger"
	"github.com/auralis-music/auralis/internal/ports"
	"github.com/auralis-music/auralis/internal/service"
)

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
type Application struct {
	// Core dependencies
	logger *slog.Logger
	config Config

	// Infrastructure
	db          *sqlite.DB
	eventBus    ports.EventBus
	audioEngine ports.AudioEngine

	// Services
	playbackService  *service.PlaybackService
	deviceService    *service.DeviceService
	sessionService   *service.SessionService
	analyticsService *service.AnalyticsService
	libraryService   *service.LibraryService
	chartSyncService *service.ChartSyncService
	exportService    *service.CapsuleExportService
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
func NewApplication(config Config) (*Application, error) {
	app := &Application{config: config}

	loggerCfg := logger.DefaultConfig()
	if config.Log.Format != "" {
		loggerCfg.Format = config.Log.Format
	}
	app.logger = logger.NewLogger(loggerCfg)
	app.logger.Info("initializing application",
		slog.String("database", config.Database.Path),
		slog.String("audio_engine", config.Audio.Engine))

	// Event bus
	syncBus := eventbus.NewSyncEventBus()
	syncBus.SetLogger(app.logger.With(slog.String("component", "eventbus")))
	app.eventBus = syncBus

	// Audio engine
	if config.Audio.Engine == "mock" {
		app.audioEngine = mockaudio.NewEngine()
	} else {
		engine := beepengine.NewEngine()
		engine.SetLogger(app.logger.With(slog.String("engine", "beep")))
		app.audioEngine = engine
	}

	// Persistence
	db, err := sqlite.Open(config.Database.Path, app.logger.With(slog.String("component", "sqlite")))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	app.db = db
	songRepo := sqlite.NewSongRepository(db)
	historyRepo := sqlite.NewPlayHistoryRepository(db)
	settingsRepo := sqlite.NewSettingsRepository(db)

	// Remote backend
	credentialProvider := credentials.NewProvider(settingsRepo)
	chartClient := remote.NewClient(
		config.Charts.BaseURL,
		credentialProvider,
		app.logger.With(slog.String("component", "charts")),
	)

	// Services
	app.playbackService = service.NewPlaybackService(
		app.logger.With(slog.String("service", "playback")),
		app.audioEngine,
		app.eventBus,
		songRepo,
	)

	app.deviceService = service.NewDeviceService(
		app.logger.With(slog.String("service", "devices")),
		local.NewSystemAudio(),
		local.NewBluetooth(),
		local.NewCapabilities(),
		app.eventBus,
	)

	app.analyticsService = service.NewAnalyticsService(
		app.logger.With(slog.String("service", "analytics")),
		historyRepo,
		songRepo,
		app.eventBus,
	)

	app.sessionService = service.NewSessionService(
		app.logger.With(slog.String("service", "session")),
		app.playbackService,
		app.deviceService,
		settingsRepo,
		app.eventBus,
	)

	app.libraryService = service.NewLibraryService(
		app.logger.With(slog.String("service", "library")),
		songRepo,
		metadata.NewReader(),
	)

	app.chartSyncService = service.NewChartSyncService(
		app.logger.With(slog.String("service", "chart_sync")),
		chartClient,
		songRepo,
	)

	app.exportService = service.NewCapsuleExportService(
		app.logger.With(slog.String("service", "capsule_export")),
		app.analyticsService,
		historyRepo,
		songRepo,
	)

	return app, nil
}

// Session returns the session coordinator, the entry point for playback
// control and observation.
func (a *Application) Session() *service.SessionService { return a.sessionService }

// Devices returns the device reconciliation engine.
func (a *Application) Devices() *service.DeviceService { return a.deviceService }

// Library returns the song library service.
func (a *Application) Library() *service.LibraryService { return a.libraryService }

// Analytics returns the listening analytics aggregator.
func (a *Application) Analytics() *service.AnalyticsService { return a.analyticsService }

// ChartSync returns the remote chart materializer.
func (a *Application) ChartSync() *service.ChartSyncService { return a.chartSyncService }

// CapsuleExport returns the CSV exporter.
func (a *Application) CapsuleExport() *service.CapsuleExportService { return a.exportService }

// Run performs startup work and blocks until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	a.logger.Info("Auralis player core started")

	if err := a.deviceService.RefreshSystemDevices(); err != nil {
		a.logger.Warn("initial device refresh failed", slog.Any("error", err))
	}

	// Restore the routing preference from the previous session.
	if preferred, err := a.sessionService.PreferredDevice(); err != nil {
		a.logger.Warn("failed to load preferred device", slog.Any("error", err))
	} else if preferred != nil {
		if err := a.sessionService.SetPreferredDevice(preferred); err != nil {
			a.logger.Warn("failed to restore preferred device", slog.Any("error", err))
		}
	}

	if a.config.Charts.SyncOnStart {
		if _, err := a.chartSyncService.SyncTopCharts(ctx); err != nil {
			a.logger.Warn("chart sync on start failed", slog.Any("error", err))
		}
	}

	<-ctx.Done()
	return nil
}

// Shutdown gracefully shuts down the application.
// This should be called via deferring in main.go.
func (a *Application) Shutdown() {
	a.logger.Info("shutting down application")

	if a.sessionService != nil {
		a.sessionService.Shutdown()
	}
	if a.analyticsService != nil {
		a.analyticsService.Shutdown()
	}
	if a.playbackService != nil {
		if err := a.playbackService.Shutdown(); err != nil {
			a.logger.Warn("failed to shutdown playback service", slog.Any("error", err))
		}
	}
	if a.deviceService != nil {
		if err := a.deviceService.Close(); err != nil {
			a.logger.Warn("failed to close device service", slog.Any("error", err))
		}
	}
	if a.audioEngine != nil {
		if err := a.audioEngine.Close(); err != nil {
			a.logger.Warn("failed to close audio engine", slog.Any("error", err))
		}
	}
	if a.eventBus != nil {
		if err := a.eventBus.Close(); err != nil {
			a.logger.Warn("failed to close event bus", slog.Any("error", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close database", slog.Any("error", err))
		}
	}

	a.logger.Info("application shutdown complete")
}
