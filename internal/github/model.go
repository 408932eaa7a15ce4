package github

import "time"

// RemoteFile is a single blob entry from the repository tree.
type RemoteFile struct {
	// Path is the file path relative to the repository root
	Path string
	// SHA is the Git blob SHA identifying the file content
	SHA string
	// Size is the blob size in bytes
	Size int64
}

// Quota holds the current API rate limit window for the authenticated token
type Quota struct {
	// Limit is the total number of requests allowed per window
	Limit int
	// Remaining is the number of requests left in the current window
	Remaining int
	// ResetAt is when the current window resets
	ResetAt time.Time
}
