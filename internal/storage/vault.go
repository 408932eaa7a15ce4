package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tildaslashalef/repovault/internal/loggy"
)

// binaryExtensions are file extensions written without any text
// handling. Everything else is treated as text.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".webp": true, ".ico": true,
	".mp3": true, ".wav": true, ".m4a": true, ".ogg": true, ".flac": true,
	".mp4": true, ".webm": true, ".ogv": true, ".mov": true, ".mkv": true,
	".pdf": true, ".zip": true, ".gz": true, ".tar": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true,
}

// IsBinaryPath reports whether a path looks like a binary asset,
// judged by extension alone
func IsBinaryPath(path string) bool {
	return binaryExtensions[strings.ToLower(filepath.Ext(path))]
}

// Vault is a filesystem-backed Adapter rooted at a single directory.
// All paths are resolved inside the root; escapes are rejected.
type Vault struct {
	root   string
	logger *loggy.Logger
}

// NewVault creates a Vault rooted at root, creating the directory
// if it does not exist
func NewVault(root string, logger *loggy.Logger) (*Vault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving vault root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating vault root: %w", err)
	}
	return &Vault{root: abs, logger: logger}, nil
}

// Root returns the absolute vault root directory
func (v *Vault) Root() string {
	return v.root
}

// resolve maps a vault-relative slash path to an absolute path,
// rejecting absolute inputs and anything escaping the root
func (v *Vault) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	if strings.HasPrefix(path, "/") || filepath.IsAbs(path) {
		return "", fmt.Errorf("absolute path %q not allowed", path)
	}
	cleaned := filepath.Clean(filepath.FromSlash(path))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the vault root", path)
	}
	return filepath.Join(v.root, cleaned), nil
}

func (v *Vault) Exists(path string) bool {
	full, err := v.resolve(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}

func (v *Vault) Read(path string) ([]byte, error) {
	full, err := v.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func (v *Vault) Write(path string, data []byte) error {
	full, err := v.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating parent directory for %s: %w", path, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	v.logger.Debug("wrote vault file", "path", path, "bytes", len(data), "binary", IsBinaryPath(path))
	return nil
}

func (v *Vault) Delete(path string) (bool, error) {
	full, err := v.resolve(path)
	if err != nil {
		return false, err
	}
	err = os.Remove(full)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("deleting %s: %w", path, err)
	}
	return true, nil
}

func (v *Vault) MkdirAll(path string) error {
	full, err := v.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(full, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}
	return nil
}
