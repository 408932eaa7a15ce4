package config

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/tildaslashalef/repovault/internal/loggy"
	"github.com/tildaslashalef/repovault/internal/ulid"
)

// Settings keys persisted in the database. The token is obfuscated at
// rest; everything else is stored verbatim.
const (
	SettingRepo      = "github.repo"
	SettingBranch    = "github.branch"
	SettingToken     = "github.token"
	SettingAutoSync  = "vault.auto_sync"
	SettingLastRunAt = "sync.last_run_at"
)

// SettingsRepository defines operations for managing settings in the database
type SettingsRepository interface {
	// GetSetting retrieves a setting by key
	GetSetting(ctx context.Context, key string) (string, error)

	// GetSettings retrieves multiple settings by prefix
	GetSettings(ctx context.Context, prefix string) (map[string]string, error)

	// SetSetting sets a setting value
	SetSetting(ctx context.Context, key, value string) error

	// DeleteSetting deletes a setting
	DeleteSetting(ctx context.Context, key string) error
}

// SQLSettingsRepository implements SettingsRepository using a SQL database
type SQLSettingsRepository struct {
	db     *sql.DB
	logger *loggy.Logger
}

// NewSQLSettingsRepository creates a new SQL settings repository
func NewSQLSettingsRepository(db *sql.DB, logger *loggy.Logger) SettingsRepository {
	return &SQLSettingsRepository{
		db:     db,
		logger: logger,
	}
}

// GetSetting retrieves a setting by key
func (r *SQLSettingsRepository) GetSetting(ctx context.Context, key string) (string, error) {
	q := squirrel.Select("value").
		From("settings").
		Where(squirrel.Eq{"key": key}).
		Limit(1)

	query, args, err := q.ToSql()
	if err != nil {
		return "", fmt.Errorf("building get setting query: %w", err)
	}

	var value string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil // Return empty string if not found
		}
		return "", fmt.Errorf("executing get setting query: %w", err)
	}

	// Decode if it's the token
	if key == SettingToken && value != "" {
		return deobfuscateToken(value)
	}

	return value, nil
}

// GetSettings retrieves multiple settings by prefix
func (r *SQLSettingsRepository) GetSettings(ctx context.Context, prefix string) (map[string]string, error) {
	q := squirrel.Select("key", "value").
		From("settings").
		Where(squirrel.Like{"key": prefix + "%"})

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building get settings query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing get settings query: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		err := rows.Scan(&key, &value)
		if err != nil {
			return nil, fmt.Errorf("scanning setting row: %w", err)
		}

		if key == SettingToken && value != "" {
			value, err = deobfuscateToken(value)
			if err != nil {
				r.logger.Warn("Failed to deobfuscate token", "error", err)
				continue
			}
		}

		settings[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating setting rows: %w", err)
	}

	return settings, nil
}

// SetSetting sets a setting value
func (r *SQLSettingsRepository) SetSetting(ctx context.Context, key, value string) error {
	// Check if the setting already exists
	existingValue, err := r.GetSetting(ctx, key)
	if err != nil {
		return fmt.Errorf("checking for existing setting: %w", err)
	}

	// Obfuscate the token before writing
	storeValue := value
	if key == SettingToken && value != "" {
		storeValue, err = obfuscateToken(value)
		if err != nil {
			return fmt.Errorf("obfuscating token: %w", err)
		}
	}

	now := time.Now().UTC()

	if existingValue == "" {
		id := ulid.SettingID()
		q := squirrel.Insert("settings").
			Columns("id", "key", "value", "created_at", "updated_at").
			Values(id, key, storeValue, now, now)

		query, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("building insert setting query: %w", err)
		}

		_, err = r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("executing insert setting query: %w", err)
		}
	} else {
		q := squirrel.Update("settings").
			Set("value", storeValue).
			Set("updated_at", now).
			Where(squirrel.Eq{"key": key})

		query, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("building update setting query: %w", err)
		}

		_, err = r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("executing update setting query: %w", err)
		}
	}

	return nil
}

// DeleteSetting deletes a setting
func (r *SQLSettingsRepository) DeleteSetting(ctx context.Context, key string) error {
	q := squirrel.Delete("settings").
		Where(squirrel.Eq{"key": key})

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("building delete setting query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("executing delete setting query: %w", err)
	}

	return nil
}

// LoadVaultSettings loads persisted settings into a Config object.
// Environment values win only when the database has nothing stored.
func LoadVaultSettings(ctx context.Context, cfg *Config, repo SettingsRepository) error {
	for _, prefix := range []string{"github.", "vault."} {
		settings, err := repo.GetSettings(ctx, prefix)
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}

		if spec, ok := settings[SettingRepo]; ok && spec != "" {
			owner, name, err := ParseRepoSpec(spec)
			if err == nil {
				cfg.GitHub.Owner = owner
				cfg.GitHub.Repo = name
			}
		}

		if branch, ok := settings[SettingBranch]; ok && branch != "" {
			cfg.GitHub.Branch = branch
		}

		if token, ok := settings[SettingToken]; ok && token != "" {
			cfg.GitHub.Token = token
		}

		if auto, ok := settings[SettingAutoSync]; ok && auto != "" {
			cfg.Vault.AutoSync = auto == "true"
		}
	}

	return nil
}

// Simple token obfuscation functions
// These provide basic obfuscation, not true encryption

// obfuscateToken performs basic token obfuscation
func obfuscateToken(token string) (string, error) {
	// Reverse the token
	runes := []rune(token)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	reversed := string(runes)

	// Base64 encode and add a marker
	encoded := base64.StdEncoding.EncodeToString([]byte(reversed))
	return "OBFS:" + encoded, nil
}

// deobfuscateToken reverses the obfuscation
func deobfuscateToken(obfuscated string) (string, error) {
	// Check if it's obfuscated
	if !strings.HasPrefix(obfuscated, "OBFS:") {
		return obfuscated, nil // Not obfuscated
	}

	encoded := strings.TrimPrefix(obfuscated, "OBFS:")

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding obfuscated token: %w", err)
	}

	// Reverse the string
	runes := []rune(string(decoded))
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}

	return string(runes), nil
}
