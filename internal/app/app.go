// Package app wires configuration, storage, clients, and services into a
// runnable daemon core.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/quiverhq/quiver/internal/clients/brapi"
	"github.com/quiverhq/quiver/internal/clients/tesouro"
	"github.com/quiverhq/quiver/internal/clients/yahoo"
	"github.com/quiverhq/quiver/internal/common"
	"github.com/quiverhq/quiver/internal/interfaces"
	"github.com/quiverhq/quiver/internal/models"
	"github.com/quiverhq/quiver/internal/services/metrics"
	"github.com/quiverhq/quiver/internal/services/pricehistory"
	"github.com/quiverhq/quiver/internal/storage"
	"github.com/quiverhq/quiver/internal/throttle"
)

// App holds all initialized services and clients.
type App struct {
	Config              *common.Config
	Logger              *common.Logger
	Storage             interfaces.StorageManager
	PriceHistoryService interfaces.PriceHistoryService
	MetricsService      interfaces.MetricsService
	StartupTime         time.Time

	refreshStop func()
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, clients, and services. configPath may be
// empty, in which case QUIVER_CONFIG and then the binary directory are
// checked.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("QUIVER_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "quiver.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/quiver.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage path to the binary directory
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := storage.NewManager(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	yahooClient := yahoo.NewClient(
		yahoo.WithBaseURL(config.Clients.Yahoo.BaseURL),
		yahoo.WithTimeout(config.Clients.Yahoo.GetTimeout()),
		yahoo.WithRateLimit(config.Clients.Yahoo.RateLimit),
		yahoo.WithLogger(logger),
	)

	brapiClient := brapi.NewClient(config.Clients.Brapi.Token,
		brapi.WithBaseURL(config.Clients.Brapi.BaseURL),
		brapi.WithTimeout(config.Clients.Brapi.GetTimeout()),
		brapi.WithRateLimit(config.Clients.Brapi.RateLimit),
		brapi.WithLogger(logger),
	)

	tesouroClient := tesouro.NewClient(config.Clients.Tesouro.URLs,
		tesouro.WithTimeout(config.Clients.Tesouro.GetTimeout()),
		tesouro.WithLogger(logger),
	)

	thr := throttle.New(config.Fetch.MaxConcurrent, config.Fetch.GetMinDelay())
	cooldown := throttle.NewCooldownCache(config.Fetch.GetCooldown())

	priceService := pricehistory.NewService(
		storageManager,
		pricehistory.NewEquityChain(yahooClient, brapiClient),
		pricehistory.NewFixedIncomeChain(tesouroClient),
		brapi.NewFallbackResolver(brapiClient),
		thr,
		cooldown,
		logger,
	)

	metricsService := metrics.NewService(storageManager, logger, config.Fetch.SplitDedupWindowDays)

	logger.Info().
		Str("version", common.GetVersion()).
		Str("environment", config.Environment).
		Dur("startup", time.Since(startupStart)).
		Msg("Quiver initialized")

	return &App{
		Config:              config,
		Logger:              logger,
		Storage:             storageManager,
		PriceHistoryService: priceService,
		MetricsService:      metricsService,
		StartupTime:         time.Now(),
	}, nil
}

// Shutdown stops background jobs and closes storage.
func (a *App) Shutdown(ctx context.Context) error {
	if a.refreshStop != nil {
		a.refreshStop()
	}
	if err := a.Storage.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	a.Logger.Info().Msg("Quiver shut down")
	return nil
}

// inferMarket classifies a ledger ticker for adapter-chain routing.
// Treasury title names carry the "Tesouro" prefix; everything else routes
// to the equity chain.
func inferMarket(ticker string) models.Market {
	if strings.HasPrefix(strings.ToLower(ticker), "tesouro ") {
		return models.MarketFixedIncome
	}
	return models.MarketStocks
}
