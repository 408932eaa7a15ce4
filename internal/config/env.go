package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// LoadFromEnv loads configuration from environment variables
// Parameters:
// - configDir: Directory containing config files (or empty for default)
// - configFilePath: Path to .env file (or empty for default)
func LoadFromEnv(configDir string, configFilePath string) (*Config, error) {
	// Load empty configuration
	cfg := New()

	// If configDir is empty, use the default
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".repovault")

		if err := os.MkdirAll(configDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	// Default database path is in the config directory
	cfg.Database.Path = filepath.Join(configDir, "repovault.db")

	// Default log path is in the config directory
	defaultLogPath := filepath.Join(configDir, "repovault.log")

	// Use provided config file path or default
	if configFilePath == "" {
		configFilePath = filepath.Join(configDir, ".env")
	}

	// Check if ENV_FILE_PATH is set to load from a custom .env file
	envFilePath := getEnvString("ENV_FILE_PATH", "")
	if envFilePath != "" {
		// User specified a custom env file path
		if err := godotenv.Load(envFilePath); err != nil {
			return nil, fmt.Errorf("failed to load env file from %s: %w", envFilePath, err)
		}
	} else {
		// Try to load from config directory first, then the current
		// directory as a fallback. Missing files are fine; the
		// environment itself may carry everything.
		if err := godotenv.Load(configFilePath); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg.configDir = configDir

	// GitHub remote configuration. The repo spec accepts either a bare
	// owner/name or a full URL.
	repoSpec := getEnvString("REPOVAULT_REPO", "")
	if repoSpec != "" {
		owner, repo, err := ParseRepoSpec(repoSpec)
		if err != nil {
			return nil, fmt.Errorf("invalid REPOVAULT_REPO: %w", err)
		}
		cfg.GitHub.Owner = owner
		cfg.GitHub.Repo = repo
	}

	cfg.GitHub.Branch = getEnvString("REPOVAULT_BRANCH", "main")
	cfg.GitHub.Token = getEnvString("REPOVAULT_TOKEN", "")
	cfg.GitHub.APIURL = getEnvString("REPOVAULT_API_URL", "https://api.github.com")
	cfg.GitHub.RawURL = getEnvString("REPOVAULT_RAW_URL", "https://raw.githubusercontent.com")
	cfg.GitHub.RequestTimeout = getEnvDuration("REPOVAULT_REQUEST_TIMEOUT", 30*time.Second)
	cfg.GitHub.RequestsPerMinute = getEnvInt("REPOVAULT_REQUESTS_PER_MINUTE", 300)
	cfg.GitHub.BurstLimit = getEnvInt("REPOVAULT_BURST_LIMIT", 10)

	// Vault configuration
	cfg.Vault.Path = getEnvString("REPOVAULT_VAULT_PATH", "")
	cfg.Vault.StateFile = getEnvString("REPOVAULT_STATE_FILE", filepath.Join(".repovault", "state.json"))
	cfg.Vault.AutoSync = getEnvBool("REPOVAULT_AUTO_SYNC", false)

	// Database configuration
	cfg.Database.Path = getEnvString("REPOVAULT_DB_PATH", cfg.Database.Path)
	cfg.Database.JournalMode = getEnvString("REPOVAULT_DB_JOURNAL_MODE", "WAL")
	cfg.Database.SynchronousMode = getEnvString("REPOVAULT_DB_SYNCHRONOUS", "NORMAL")
	cfg.Database.BusyTimeout = getEnvInt("REPOVAULT_DB_BUSY_TIMEOUT", 5000)
	cfg.Database.CacheSize = getEnvInt("REPOVAULT_DB_CACHE_SIZE", -64000)
	cfg.Database.ForeignKeys = getEnvBool("REPOVAULT_DB_FOREIGN_KEYS", true)
	cfg.Database.ConnMaxLife = getEnvDuration("REPOVAULT_DB_CONN_MAX_LIFE", time.Hour)
	cfg.Database.QueryTimeout = getEnvDuration("REPOVAULT_DB_QUERY_TIMEOUT", 30*time.Second)

	// Logging configuration
	cfg.Logging.Level = getEnvString("REPOVAULT_LOG_LEVEL", "info")
	cfg.Logging.Format = getEnvString("REPOVAULT_LOG_FORMAT", "text")
	cfg.Logging.Output = getEnvString("REPOVAULT_LOG_OUTPUT", defaultLogPath)
	cfg.Logging.AddSource = getEnvBool("REPOVAULT_LOG_ADD_SOURCE", false)
	cfg.Logging.TimeFormat = getEnvString("REPOVAULT_LOG_TIME_FORMAT", time.RFC3339)

	return cfg, nil
}

// ConfigDir returns the directory the configuration was loaded from
func (c *Config) ConfigDir() string {
	return c.configDir
}
