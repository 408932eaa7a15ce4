// Package app provides the application initialization and lifecycle management
package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/repovault/internal/config"
	"github.com/tildaslashalef/repovault/internal/database"
	"github.com/tildaslashalef/repovault/internal/github"
	"github.com/tildaslashalef/repovault/internal/loggy"
	"github.com/tildaslashalef/repovault/internal/storage"
	"github.com/tildaslashalef/repovault/internal/sync"
)

// App represents the application instance with its dependencies
type App struct {
	Config   *config.Config
	Settings *config.SettingsService
	Client   *github.Client
	Vault    *storage.Vault
	Sync     *sync.Service
	SyncRuns sync.Repository
}

// New initializes a new application instance with all its dependencies
func New() (*App, error) {
	cfg, err := initConfig()
	if err != nil {
		return nil, err
	}

	if err := initLogger(cfg); err != nil {
		return nil, err
	}

	loggy.Info("Application initializing",
		"version", os.Getenv("VERSION"),
		"log_level", cfg.Logging.Level,
	)

	if err := database.InitDB(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	db, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	application, err := initServices(cfg, db)
	if err != nil {
		return nil, err
	}

	loggy.Info("Application initialized successfully")
	return application, nil
}

// initConfig loads and sets up the application configuration
func initConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv("", "")
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	config.Set(cfg)
	return cfg, nil
}

// initLogger initializes the logging system
func initLogger(cfg *config.Config) error {
	err := loggy.Init(loggy.Config{
		Level:      config.ParseLogLevel(cfg.Logging.Level),
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// initServices initializes all application services
func initServices(cfg *config.Config, db *sql.DB) (*App, error) {
	logger := loggy.GetGlobalLogger()
	ctx := context.Background()

	settingsService := config.NewSettingsService(db, cfg, logger)
	if err := settingsService.LoadVaultSettings(ctx); err != nil {
		loggy.Warn("Failed to load vault settings from database", "error", err)
		// continue with env config only
	}

	application := &App{
		Config:   cfg,
		Settings: settingsService,
		Client:   github.NewClient(&cfg.GitHub, logger),
		SyncRuns: sync.NewSQLRepository(db, logger),
	}

	// the sync service needs a vault root; commands guard against it
	// being unset
	if cfg.Vault.Path != "" {
		vault, err := storage.NewVault(cfg.Vault.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open vault: %w", err)
		}
		application.Vault = vault

		store := sync.NewStateStore(vault, cfg.Vault.StateFile, logger)
		application.Sync = sync.NewService(
			cfg,
			application.Client,
			store,
			vault,
			application.SyncRuns,
			sync.NewLogNotifier(logger),
			logger,
		)
	}

	return application, nil
}

// Shutdown gracefully shuts down the application
func (app *App) Shutdown() error {
	loggy.Info("Shutting down application")

	if err := database.CloseDB(); err != nil {
		loggy.Error("Error closing database connection", "error", err)
	}

	return nil
}

// FromContext retrieves the App instance from the CLI context
func FromContext(c *cli.Context) (*App, error) {
	if c.App.Metadata == nil {
		return nil, fmt.Errorf("app metadata not found in context")
	}

	application, ok := c.App.Metadata["app"].(*App)
	if !ok {
		return nil, fmt.Errorf("app instance not found in context")
	}

	return application, nil
}
