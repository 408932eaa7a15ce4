package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvString(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue string
		expected     string
	}{
		{
			name:         "env not set, return default",
			envValue:     "",
			defaultValue: "default",
			expected:     "default",
		},
		{
			name:         "env set, return env value",
			envValue:     "custom",
			defaultValue: "default",
			expected:     "custom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_STRING_VALUE"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
				defer os.Unsetenv(key)
			} else {
				os.Unsetenv(key)
			}

			result := getEnvString(key, tt.defaultValue)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		expected     bool
	}{
		{
			name:         "env not set, return default",
			envValue:     "",
			defaultValue: true,
			expected:     true,
		},
		{
			name:         "env set to true",
			envValue:     "true",
			defaultValue: false,
			expected:     true,
		},
		{
			name:         "env set to invalid value, return default",
			envValue:     "not-a-bool",
			defaultValue: false,
			expected:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VALUE"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
				defer os.Unsetenv(key)
			} else {
				os.Unsetenv(key)
			}

			result := getEnvBool(key, tt.defaultValue)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	key := "TEST_DURATION_VALUE"

	os.Setenv(key, "45s")
	defer os.Unsetenv(key)

	assert.Equal(t, 45*time.Second, getEnvDuration(key, time.Minute))

	os.Setenv(key, "garbage")
	assert.Equal(t, time.Minute, getEnvDuration(key, time.Minute))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("info"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("bogus"))
}

func TestValidateGitHubDefaults(t *testing.T) {
	cfg := New()
	cfg.GitHub.RequestTimeout = 30 * time.Second
	cfg.GitHub.RequestsPerMinute = 300
	cfg.GitHub.BurstLimit = 10

	err := cfg.validateGitHub()
	assert.NoError(t, err)
	assert.Equal(t, "main", cfg.GitHub.Branch)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIURL)
	assert.Equal(t, "https://raw.githubusercontent.com", cfg.GitHub.RawURL)
}

func TestIsRepoConfigured(t *testing.T) {
	cfg := New()
	assert.False(t, cfg.IsRepoConfigured())

	cfg.GitHub.Owner = "octocat"
	cfg.GitHub.Repo = "hello-world"
	assert.False(t, cfg.IsRepoConfigured())

	cfg.GitHub.Token = "ghp_token"
	assert.True(t, cfg.IsRepoConfigured())
}
