// Package app wires configuration, clients, storage, and services into
// a single application core shared by the server entrypoint and tests.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prakhar82/stock-analyzer/internal/clients/nse"
	"github.com/prakhar82/stock-analyzer/internal/clients/screener"
	"github.com/prakhar82/stock-analyzer/internal/common"
	"github.com/prakhar82/stock-analyzer/internal/interfaces"
	"github.com/prakhar82/stock-analyzer/internal/services/chart"
	"github.com/prakhar82/stock-analyzer/internal/services/oracle"
	"github.com/prakhar82/stock-analyzer/internal/services/portfolio"
	"github.com/prakhar82/stock-analyzer/internal/services/report"
	"github.com/prakhar82/stock-analyzer/internal/storage"
)

// App holds all initialized clients and services.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Ledger           interfaces.LedgerStore
	NSEClient        interfaces.NSEClient
	ScreenerClient   interfaces.ScreenerClient
	PriceOracle      interfaces.PriceOracle
	PortfolioService interfaces.PortfolioService
	ReportService    interfaces.ReportService
	ChartService     interfaces.ChartService
	StartupTime      time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes the application from a config file. configPath may
// be empty, in which case ANALYZER_CONFIG and the binary directory are
// checked before falling back to defaults.
func NewApp(configPath string) (*App, error) {
	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("ANALYZER_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "analyzer.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/analyzer.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative data path to the binary directory so the server
	// is self-contained regardless of working directory.
	if config.Storage.DataPath != "" && !filepath.IsAbs(config.Storage.DataPath) {
		config.Storage.DataPath = filepath.Join(binDir, config.Storage.DataPath)
	}

	logger := common.NewLogger(config.Logging.Level)

	ledger, err := storage.NewFileLedgerStore(logger, config.Storage.DataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger store: %w", err)
	}

	nseClient := nse.NewClient(
		nse.WithBaseURL(config.Clients.NSE.BaseURL),
		nse.WithRateLimit(config.Clients.NSE.RateLimit),
		nse.WithTimeout(config.Clients.NSE.GetTimeout()),
		nse.WithLogger(logger),
	)

	screenerClient := screener.NewClient(
		screener.WithBaseURL(config.Clients.Screener.BaseURL),
		screener.WithTimeout(config.Clients.Screener.GetTimeout()),
		screener.WithLogger(logger),
	)

	priceOracle := oracle.NewService(nseClient, screenerClient, logger,
		oracle.WithCacheTTL(config.Cache.GetQuoteTTL()),
		oracle.WithSourceTimeout(config.Clients.NSE.GetTimeout()),
	)

	portfolioService := portfolio.NewService(ledger, priceOracle, logger,
		portfolio.WithSummaryTTL(config.Cache.GetSummaryTTL()),
		portfolio.WithSummaryEntries(config.Cache.SummaryEntries),
	)

	reportService := report.NewService(ledger, priceOracle, logger)
	chartService := chart.NewService(nseClient, priceOracle, logger)

	logger.Info().
		Str("environment", config.Environment).
		Str("data_path", config.Storage.DataPath).
		Msg("Application initialized")

	return &App{
		Config:           config,
		Logger:           logger,
		Ledger:           ledger,
		NSEClient:        nseClient,
		ScreenerClient:   screenerClient,
		PriceOracle:      priceOracle,
		PortfolioService: portfolioService,
		ReportService:    reportService,
		ChartService:     chartService,
		StartupTime:      time.Now(),
	}, nil
}

// Close releases application resources.
func (a *App) Close() {
	a.Logger.Info().Msg("Application shutdown complete")
}
