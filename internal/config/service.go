package config

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/tildaslashalef/repovault/internal/loggy"
)

// SettingsService provides operations for managing application settings
type SettingsService struct {
	repo   SettingsRepository
	config *Config
	logger *loggy.Logger
}

// NewSettingsService creates a new settings service
func NewSettingsService(db *sql.DB, config *Config, logger *loggy.Logger) *SettingsService {
	repo := NewSQLSettingsRepository(db, logger)

	return &SettingsService{
		repo:   repo,
		config: config,
		logger: logger,
	}
}

// GetSetting retrieves a setting by key
func (s *SettingsService) GetSetting(ctx context.Context, key string) (string, error) {
	return s.repo.GetSetting(ctx, key)
}

// SetSetting sets a setting value
func (s *SettingsService) SetSetting(ctx context.Context, key, value string) error {
	return s.repo.SetSetting(ctx, key, value)
}

// GetRepository returns the underlying repository
func (s *SettingsService) GetRepository() SettingsRepository {
	return s.repo
}

// LoadVaultSettings loads persisted settings into the Config
func (s *SettingsService) LoadVaultSettings(ctx context.Context) error {
	return LoadVaultSettings(ctx, s.config, s.repo)
}

// SetRepo parses and persists the repository spec
func (s *SettingsService) SetRepo(ctx context.Context, spec string) error {
	owner, name, err := ParseRepoSpec(spec)
	if err != nil {
		return err
	}

	s.config.GitHub.Owner = owner
	s.config.GitHub.Repo = name

	return s.repo.SetSetting(ctx, SettingRepo, fmt.Sprintf("%s/%s", owner, name))
}

// SetBranch persists the branch name
func (s *SettingsService) SetBranch(ctx context.Context, branch string) error {
	if branch == "" {
		branch = "main"
	}
	s.config.GitHub.Branch = branch

	return s.repo.SetSetting(ctx, SettingBranch, branch)
}

// SetToken persists the access token with obfuscation
func (s *SettingsService) SetToken(ctx context.Context, token string) error {
	s.config.GitHub.Token = token

	return s.repo.SetSetting(ctx, SettingToken, token)
}

// SetAutoSync persists the auto-run-on-startup flag
func (s *SettingsService) SetAutoSync(ctx context.Context, enabled bool) error {
	s.config.Vault.AutoSync = enabled

	return s.repo.SetSetting(ctx, SettingAutoSync, strconv.FormatBool(enabled))
}

// RecordLastRun stores the completion time of the most recent sync run.
// This is display-only state; the engine's own snapshot lives in the vault.
func (s *SettingsService) RecordLastRun(ctx context.Context, completedAt time.Time) error {
	return s.repo.SetSetting(ctx, SettingLastRunAt, completedAt.UTC().Format(time.RFC3339))
}

// LastRun returns the recorded completion time of the most recent run,
// or the zero time when no run has been recorded.
func (s *SettingsService) LastRun(ctx context.Context) (time.Time, error) {
	v, err := s.repo.GetSetting(ctx, SettingLastRunAt)
	if err != nil || v == "" {
		return time.Time{}, err
	}

	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing last run timestamp: %w", err)
	}

	return t, nil
}
