package sync

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/tildaslashalef/repovault/internal/github"
	"github.com/tildaslashalef/repovault/internal/loggy"
	"github.com/tildaslashalef/repovault/internal/storage"
)

// FileRecord tracks one synced file in the persisted state document
type FileRecord struct {
	Path string `json:"path"`
	SHA  string `json:"sha"`
	// LastModified is the local write time in unix milliseconds
	LastModified int64 `json:"lastModified"`
}

// State is the persisted snapshot of everything this engine has
// written to the vault. Files only ever tracks paths the engine itself
// created or modified; local-only files never appear here.
type State struct {
	// LastSyncTimestamp is the completion time of the last successful
	// run, unix milliseconds, zero before the first sync
	LastSyncTimestamp int64 `json:"lastSyncTimestamp"`
	// LastSyncReferenceID optionally records a remote reference for the
	// last run, kept for forward compatibility
	LastSyncReferenceID string                `json:"lastSyncReferenceId,omitempty"`
	Files               map[string]FileRecord `json:"files"`
}

// NewState returns an empty state document
func NewState() *State {
	return &State{Files: make(map[string]FileRecord)}
}

// RecordApplied upserts the record for a freshly written path
func (s *State) RecordApplied(path, sha string) {
	s.Files[path] = FileRecord{
		Path:         path,
		SHA:          sha,
		LastModified: time.Now().UnixMilli(),
	}
}

// RecordRemoved drops the record for path. Removing an untracked path
// is a no-op.
func (s *State) RecordRemoved(path string) {
	delete(s.Files, path)
}

// Stamp marks the completion of a run
func (s *State) Stamp(completedAt time.Time) {
	s.LastSyncTimestamp = completedAt.UnixMilli()
}

// StateStore loads, diffs and persists the state document through the
// vault storage adapter
type StateStore struct {
	adapter storage.Adapter
	path    string
	logger  *loggy.Logger
}

// NewStateStore creates a store persisting at the given vault-relative path
func NewStateStore(adapter storage.Adapter, path string, logger *loggy.Logger) *StateStore {
	return &StateStore{
		adapter: adapter,
		path:    path,
		logger:  logger,
	}
}

// Load reads the persisted state. It never fails: a missing or corrupt
// document yields a fresh empty state, since first-run and corruption
// are indistinguishable and both recover the same way.
func (s *StateStore) Load() *State {
	if !s.adapter.Exists(s.path) {
		return NewState()
	}

	data, err := s.adapter.Read(s.path)
	if err != nil {
		s.logger.Warn("state document unreadable, starting fresh", "path", s.path, "error", err)
		return NewState()
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("state document corrupt, starting fresh", "path", s.path, "error", err)
		return NewState()
	}
	if state.Files == nil {
		state.Files = make(map[string]FileRecord)
	}
	return &state
}

// Save writes the full document in one shot. Failures propagate; the
// caller decides whether that fails the run.
func (s *StateStore) Save(state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sync state: %w", err)
	}
	if err := s.adapter.Write(s.path, data); err != nil {
		return fmt.Errorf("persisting sync state: %w", err)
	}
	return nil
}

// Diff compares a fresh remote manifest against the state document and
// returns the change set. Added and modified entries follow the remote
// listing order; deleted entries follow sorted path order. Comparison
// is SHA equality, not content inspection.
func Diff(state *State, remote []github.RemoteFile) []FileChange {
	seen := make(map[string]struct{}, len(remote))
	changes := make([]FileChange, 0)

	for _, rf := range remote {
		seen[rf.Path] = struct{}{}
		rec, tracked := state.Files[rf.Path]
		switch {
		case !tracked:
			changes = append(changes, FileChange{Path: rf.Path, SHA: rf.SHA, Kind: ChangeAdded})
		case rec.SHA != rf.SHA:
			changes = append(changes, FileChange{Path: rf.Path, SHA: rf.SHA, Kind: ChangeModified})
		}
	}

	deleted := make([]string, 0)
	for path := range state.Files {
		if _, ok := seen[path]; !ok {
			deleted = append(deleted, path)
		}
	}
	sort.Strings(deleted)
	for _, path := range deleted {
		changes = append(changes, FileChange{Path: path, Kind: ChangeDeleted})
	}

	return changes
}
