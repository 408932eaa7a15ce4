package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	// Global configuration instance
	globalConfig *Config
	configMutex  sync.RWMutex
)

// Get returns the global configuration instance
// If the configuration has not been initialized, it will return an error
func Get() (*Config, error) {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if globalConfig == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}

	return globalConfig, nil
}

// Set sets the global configuration instance
func Set(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()

	globalConfig = cfg
}

// Config represents the complete application configuration
type Config struct {
	GitHub    GitHubConfig
	Vault     VaultConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
	configDir string // Internal: Directory where config was loaded from
}

// GitHubConfig represents the remote repository configuration
type GitHubConfig struct {
	Owner          string        // Repository owner
	Repo           string        // Repository name
	Branch         string        // Branch to mirror (defaults to "main")
	Token          string        // Personal Access Token
	APIURL         string        // GitHub API base URL
	RawURL         string        // Raw content mirror base URL
	RequestTimeout time.Duration // Request timeout for GitHub API

	// Rate limiting
	RequestsPerMinute int
	BurstLimit        int
}

// VaultConfig represents the local vault the repository is mirrored into
type VaultConfig struct {
	Path      string // Root directory of the vault
	StateFile string // Sync state document path, relative to the vault root
	AutoSync  bool   // Run a sync automatically on startup
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Path            string        // Path to the SQLite database file
	JournalMode     string        // Journal mode (WAL recommended)
	SynchronousMode string        // Synchronous mode
	BusyTimeout     int           // Busy timeout in milliseconds
	CacheSize       int           // Cache size in KiB
	ForeignKeys     bool          // Whether to enforce foreign key constraints
	ConnMaxLife     time.Duration // Maximum connection lifetime
	QueryTimeout    time.Duration // Query timeout
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string // debug, info, warn, error
	Format     string // text or json
	Output     string // stdout, stderr, or file path
	AddSource  bool   // Include source code position in logs
	TimeFormat string // Time format for logs (empty uses RFC3339)
}

// New returns a new empty Config
func New() *Config {
	return &Config{
		GitHub:   GitHubConfig{},
		Vault:    VaultConfig{},
		Database: DatabaseConfig{},
		Logging:  LoggingConfig{},
	}
}

// IsRepoConfigured reports whether the remote repository identity and
// credential are present. Syncing fails fast without them.
func (c *Config) IsRepoConfigured() bool {
	return c.GitHub.Owner != "" && c.GitHub.Repo != "" && c.GitHub.Token != ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.validateGitHub(); err != nil {
		return fmt.Errorf("github config: %w", err)
	}

	if err := c.validateVault(); err != nil {
		return fmt.Errorf("vault config: %w", err)
	}

	if err := c.validateDatabase(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}

	if err := c.validateLogging(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// ParseLogLevel parses a log level string to a slog.Level
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none":
		// Set to a very high level that won't be triggered
		return slog.Level(9999)
	default:
		return slog.LevelInfo
	}
}

func (c *Config) validateGitHub() error {
	if c.GitHub.Branch == "" {
		c.GitHub.Branch = "main"
	}

	if c.GitHub.APIURL == "" {
		c.GitHub.APIURL = "https://api.github.com"
	}

	if c.GitHub.RawURL == "" {
		c.GitHub.RawURL = "https://raw.githubusercontent.com"
	}

	if c.GitHub.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}

	if c.GitHub.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests_per_minute must be positive")
	}

	if c.GitHub.BurstLimit <= 0 {
		return fmt.Errorf("burst_limit must be positive")
	}

	return nil
}

func (c *Config) validateVault() error {
	if c.Vault.Path == "" {
		return fmt.Errorf("vault path cannot be empty")
	}

	if c.Vault.StateFile == "" {
		c.Vault.StateFile = filepath.Join(".repovault", "state.json")
	}

	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	// Create the directory if it doesn't exist
	dir := filepath.Dir(c.Database.Path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory for database: %w", err)
		}
	}

	// Check if directory is writable
	if err := checkDirectoryWritable(dir); err != nil {
		return fmt.Errorf("database directory: %w", err)
	}

	if c.Database.BusyTimeout <= 0 {
		return fmt.Errorf("busy timeout must be positive")
	}

	if c.Database.ConnMaxLife <= 0 {
		return fmt.Errorf("connection max life must be positive")
	}

	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("query timeout must be positive")
	}

	return nil
}

func (c *Config) validateLogging() error {
	// Validate logging level
	level := strings.ToLower(c.Logging.Level)
	if level != "debug" && level != "info" && level != "warn" && level != "error" && level != "none" {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate format
	format := strings.ToLower(c.Logging.Format)
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// getEnvString returns a string from the environment variable
func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns an int from the environment variable
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool returns a bool from the environment variable
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration returns a time.Duration from the environment variable
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// checkDirectoryWritable tests if a directory is writable
func checkDirectoryWritable(dir string) error {
	// Create a temporary file to test write permissions
	testFile := filepath.Join(dir, fmt.Sprintf("test_write_%d", time.Now().UnixNano()))
	f, err := os.Create(testFile)
	if err != nil {
		return fmt.Errorf("directory not writable: %w", err)
	}

	// Clean up
	f.Close()
	os.Remove(testFile)

	return nil
}
