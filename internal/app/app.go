package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/vire-recon/internal/clients/eodhd"
	"github.com/bobmcallan/vire-recon/internal/clients/gemini"
	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/interfaces"
	"github.com/bobmcallan/vire-recon/internal/services/classify"
	"github.com/bobmcallan/vire-recon/internal/services/pipeline"
	"github.com/bobmcallan/vire-recon/internal/services/report"
	"github.com/bobmcallan/vire-recon/internal/storage"
)

// App holds all initialized services and clients.
// It is the shared core used by both cmd/recon-server and cmd/recon.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	EODHDClient      interfaces.EODHDClient
	GeminiClient     interfaces.GeminiClient
	Lookups          []interfaces.ClassificationLookup
	ReconcileService interfaces.ReconcileService
	ReportService    interfaces.ReportService
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

// resolveConfigPath checks the provided path, RECON_CONFIG, then the binary
// directory, then config/recon.toml for development.
func resolveConfigPath(configPath, binDir string) string {
	if configPath == "" {
		configPath = os.Getenv("RECON_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "recon.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/recon.toml"
		}
	}
	return configPath
}

// NewApp loads configuration and initializes storage, clients and services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	binDir := getBinaryDir()
	_ = common.LoadVersionFile(binDir)

	config, err := common.LoadConfig(resolveConfigPath(configPath, binDir))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage path to binary directory
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}

	return NewAppWithConfig(config, common.NewLoggerFromConfig(config.Logging))
}

// NewAppWithConfig initializes the App from an already loaded config.
func NewAppWithConfig(config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()
	ctx := context.Background()

	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a := &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		StartupTime: startupStart,
	}

	if key := config.Clients.EODHD.APIKey; key != "" {
		a.EODHDClient = eodhd.NewClient(key,
			eodhd.WithBaseURL(config.Clients.EODHD.BaseURL),
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
			eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
		)
	} else if config.Classify.UseMarketData {
		logger.Warn().Msg("EODHD API key not configured - market data classification disabled")
	}

	if key := config.Clients.Gemini.APIKey; key != "" {
		client, err := gemini.NewClient(ctx, key,
			gemini.WithLogger(logger),
			gemini.WithModel(config.Clients.Gemini.Model),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
		} else {
			a.GeminiClient = client
		}
	} else if config.Classify.UseSemantic {
		logger.Warn().Msg("Gemini API key not configured - semantic classification disabled")
	}

	a.Lookups = buildLookups(config, a.EODHDClient, a.GeminiClient)

	p, err := pipeline.New(config, a.Lookups, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	a.ReconcileService = pipeline.NewService(p, storageManager, logger)
	a.ReportService = report.NewService(storageManager, logger)

	logger.Info().
		Int("lookups", len(a.Lookups)).
		Str("reporting_currency", config.ReportingCurrency).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// buildLookups returns the external classification chain: market data first,
// then the semantic classifier. Sources without a client are left out.
func buildLookups(config *common.Config, eodhdClient interfaces.EODHDClient, geminiClient interfaces.GeminiClient) []interfaces.ClassificationLookup {
	var lookups []interfaces.ClassificationLookup
	if config.Classify.UseMarketData && eodhdClient != nil {
		lookups = append(lookups, classify.NewMarketDataLookup(eodhdClient, config.Clients.EODHD.Exchanges))
	}
	if config.Classify.UseSemantic && geminiClient != nil {
		lookups = append(lookups, classify.NewSemanticLookup(geminiClient))
	}
	return lookups
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}
