// Package ulid wraps github.com/oklog/ulid/v2 with prefixed, time-ordered
// identifiers for database rows. ULIDs sort lexicographically by creation
// time, which keeps the sync-run history naturally ordered.
package ulid

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefixes for the different kinds of IDs in the application
const (
	// PrefixRun is used for sync-run IDs
	PrefixRun = "run"

	// PrefixSetting is used for settings row IDs
	PrefixSetting = "set"

	// PrefixSeparator separates the prefix from the ULID
	PrefixSeparator = "-"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// Generate creates a new ULID string with the current timestamp.
func Generate() string {
	entropyLock.Lock()
	defer entropyLock.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// GenerateWithPrefix creates a new ULID with the current timestamp and a
// prefix describing what the ID represents (e.g. "run" for a sync run).
func GenerateWithPrefix(prefix string) string {
	id := Generate()
	if prefix == "" {
		return id
	}
	return fmt.Sprintf("%s%s%s", prefix, PrefixSeparator, id)
}

// RunID generates a new sync-run ID
func RunID() string {
	return GenerateWithPrefix(PrefixRun)
}

// SettingID generates a new settings row ID
func SettingID() string {
	return GenerateWithPrefix(PrefixSetting)
}

// HasPrefix reports whether id carries the given prefix.
func HasPrefix(id, prefix string) bool {
	return strings.HasPrefix(id, prefix+PrefixSeparator)
}

// Strip removes any prefix from id, returning the bare ULID text.
func Strip(id string) string {
	if i := strings.LastIndex(id, PrefixSeparator); i >= 0 {
		return id[i+1:]
	}
	return id
}

// Parse validates the bare ULID portion of id.
func Parse(id string) (ulid.ULID, error) {
	return ulid.Parse(Strip(id))
}
