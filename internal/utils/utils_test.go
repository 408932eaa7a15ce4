package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name string
		size int64
		want string
	}{
		{"bytes", 512, "512 B"},
		{"kibibytes", 2048, "2.0 KiB"},
		{"mebibytes", 5 * 1024 * 1024, "5.0 MiB"},
		{"gibibytes", 3 * 1024 * 1024 * 1024, "3.0 GiB"},
		{"zero", 0, "0 B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBytes(tt.size))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"millis", 250 * time.Millisecond, "250ms"},
		{"seconds", 2500 * time.Millisecond, "2.5s"},
		{"minutes", 90 * time.Second, "1m30s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.d))
		})
	}
}

func TestFormatRelativeTime(t *testing.T) {
	assert.Equal(t, "never", FormatRelativeTime(time.Time{}))
	assert.Equal(t, "just now", FormatRelativeTime(time.Now()))
	assert.Equal(t, "5m ago", FormatRelativeTime(time.Now().Add(-5*time.Minute)))
	assert.Equal(t, "3h ago", FormatRelativeTime(time.Now().Add(-3*time.Hour)))
	assert.Equal(t, "2d ago", FormatRelativeTime(time.Now().Add(-49*time.Hour)))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "a long...", TruncateString("a long string here", 9))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))
	assert.Equal(t, "", TruncateString("anything", 0))
}
