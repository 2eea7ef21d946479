// Package app wires configuration, storage, clients, and services into a
// runnable application. It is the shared core used by cmd/folio-server.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/folio/internal/clients/coingecko"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/ratelimit"
	"github.com/bobmcallan/folio/internal/services/history"
	"github.com/bobmcallan/folio/internal/storage"
)

// App holds all initialized clients and services.
type App struct {
	Config         *common.Config
	Logger         *common.Logger
	Storage        interfaces.StorageManager
	MarketClient   interfaces.MarketDataClient
	Limiter        *ratelimit.Limiter
	HistoryService interfaces.HistoryService
	StartupTime    time.Time

	schedulerCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, the market-data client, and the history
// service. configPath may be empty, in which case FOLIO_CONFIG and then the
// binary directory are checked.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("FOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "folio.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/folio.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage paths to the binary directory
	if config.Storage.Cache.Path != "" && !filepath.IsAbs(config.Storage.Cache.Path) {
		config.Storage.Cache.Path = filepath.Join(binDir, config.Storage.Cache.Path)
	}
	if config.Storage.Snapshots.Path != "" && !filepath.IsAbs(config.Storage.Snapshots.Path) {
		config.Storage.Snapshots.Path = filepath.Join(binDir, config.Storage.Snapshots.Path)
	}

	logger := common.NewLogger(config.Logging.Level)

	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	cg := config.Clients.CoinGecko
	clientOpts := []coingecko.ClientOption{
		coingecko.WithLogger(logger),
		coingecko.WithTimeout(cg.RequestTimeout()),
	}
	if cg.BaseURL != "" {
		clientOpts = append(clientOpts, coingecko.WithBaseURL(cg.BaseURL))
	}
	if cg.APIKey != "" {
		clientOpts = append(clientOpts, coingecko.WithAPIKey(cg.APIKey))
	} else {
		logger.Warn().Msg("CoinGecko API key not configured - public rate limits apply")
	}
	marketClient := coingecko.NewClient(clientOpts...)

	limiter := ratelimit.New(cg.MaxPerWindow, cg.Window(), logger)

	historyService := history.NewService(marketClient, storageManager, limiter, logger)

	a := &App{
		Config:         config,
		Logger:         logger,
		Storage:        storageManager,
		MarketClient:   marketClient,
		Limiter:        limiter,
		HistoryService: historyService,
		StartupTime:    startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// Close releases all resources held by the App.
// Shutdown order: cancel scheduler, close limiter, close storage.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	if a.Limiter != nil {
		a.Limiter.Close()
		a.Limiter = nil
	}
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}

// StartSnapshotScheduler launches the background daily snapshot recorder
// when enabled in config.
func (a *App) StartSnapshotScheduler() {
	if !a.Config.Scheduler.SnapshotsEnabled {
		a.Logger.Info().Msg("Snapshot scheduler disabled")
		return
	}

	interval := time.Duration(a.Config.Scheduler.CheckIntervalMins) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.schedulerCancel = cancel
	go startSnapshotScheduler(ctx, a.HistoryService, a.Storage, a.Logger, interval)
}
