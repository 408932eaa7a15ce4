// Package sync implements the one-way reconciliation engine that
// mirrors a remote GitHub branch into the local vault
package sync

import (
	"time"
)

// RunType represents how a sync run was initiated
type RunType string

const (
	// RunTypeManual represents a manually initiated sync
	RunTypeManual RunType = "manual"
	// RunTypeStartup represents a sync triggered automatically at startup
	RunTypeStartup RunType = "startup"
)

// ChangeKind classifies a single path in the diff output
type ChangeKind string

const (
	// ChangeAdded means the path exists remotely but not in local state
	ChangeAdded ChangeKind = "added"
	// ChangeModified means the path exists in both with differing content
	ChangeModified ChangeKind = "modified"
	// ChangeDeleted means the path was tracked locally but is gone remotely
	ChangeDeleted ChangeKind = "deleted"
)

// FileChange is one entry of the diff between the remote manifest and
// local state. Ephemeral; consumed by the apply step.
type FileChange struct {
	Path string
	SHA  string
	Kind ChangeKind
}

// ErrorType classifies a run-level failure
type ErrorType string

const (
	// ErrorTypeConfigMissing means repository identity or token is not set
	ErrorTypeConfigMissing ErrorType = "config_missing"
	// ErrorTypeNetwork represents a transport level failure
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeAuth represents a rejected or insufficient credential
	ErrorTypeAuth ErrorType = "auth"
	// ErrorTypeRateLimit means the API quota is exhausted
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeNotFound means the repository or branch does not exist
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeTooLarge means every retrieval tier failed for a file
	ErrorTypeTooLarge ErrorType = "too_large"
	// ErrorTypeMalformed represents an undecodable API payload
	ErrorTypeMalformed ErrorType = "malformed"
	// ErrorTypeStorage represents a local read/write/delete failure
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeAlreadyRunning means a sync was rejected by the
	// single-flight guard
	ErrorTypeAlreadyRunning ErrorType = "already_running"
	// ErrorTypeUnknown represents an unclassified failure
	ErrorTypeUnknown ErrorType = "unknown"
)

// ErrorCategory classifies a per-file error in a run's error list
type ErrorCategory string

const (
	// CategoryNetwork represents a transport failure
	CategoryNetwork ErrorCategory = "network"
	// CategoryAuth represents a credential failure
	CategoryAuth ErrorCategory = "auth"
	// CategoryFile represents a per-file apply failure
	CategoryFile ErrorCategory = "file"
	// CategoryUnknown represents an unclassified failure
	CategoryUnknown ErrorCategory = "unknown"
)

// FileError records one failed file apply. Order follows the order
// failures were observed.
type FileError struct {
	Path     string        `json:"path"`
	Message  string        `json:"message"`
	Category ErrorCategory `json:"category"`
}

// SyncResult is the outcome of a single sync run, returned to every
// caller. Per-file errors never flip Success; only run-level failures
// (configuration, manifest fetch, state persist) do.
type SyncResult struct {
	Success       bool        `json:"success"`
	FilesAdded    int         `json:"files_added"`
	FilesModified int         `json:"files_modified"`
	FilesDeleted  int         `json:"files_deleted"`
	Errors        []FileError `json:"errors,omitempty"`
	ErrorType     ErrorType   `json:"error_type,omitempty"`
	ErrorMessage  string      `json:"error_message,omitempty"`
	StartedAt     time.Time   `json:"started_at"`
	CompletedAt   time.Time   `json:"completed_at"`
}

// Duration returns how long the run took
func (r *SyncResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// TotalChanged returns the number of files the run actually changed
func (r *SyncResult) TotalChanged() int {
	return r.FilesAdded + r.FilesModified + r.FilesDeleted
}

// SyncRun is one persisted history row for a completed run
type SyncRun struct {
	ID            string    `json:"id"`
	RunType       RunType   `json:"run_type"`
	Success       bool      `json:"success"`
	ErrorType     ErrorType `json:"error_type,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	FilesAdded    int       `json:"files_added"`
	FilesModified int       `json:"files_modified"`
	FilesDeleted  int       `json:"files_deleted"`
	FilesFailed   int       `json:"files_failed"`
	StartedAt     time.Time `json:"started_at"`
	CompletedAt   time.Time `json:"completed_at"`
}

// NewSyncRun builds a history row from a finished run's result
func NewSyncRun(runType RunType, result *SyncResult) *SyncRun {
	return &SyncRun{
		RunType:       runType,
		Success:       result.Success,
		ErrorType:     result.ErrorType,
		ErrorMessage:  result.ErrorMessage,
		FilesAdded:    result.FilesAdded,
		FilesModified: result.FilesModified,
		FilesDeleted:  result.FilesDeleted,
		FilesFailed:   len(result.Errors),
		StartedAt:     result.StartedAt,
		CompletedAt:   result.CompletedAt,
	}
}
