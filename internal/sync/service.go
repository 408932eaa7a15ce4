package sync

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tildaslashalef/repovault/internal/config"
	"github.com/tildaslashalef/repovault/internal/github"
	"github.com/tildaslashalef/repovault/internal/loggy"
	"github.com/tildaslashalef/repovault/internal/storage"
)

const (
	// batchSize bounds how many file applies run concurrently
	batchSize = 10
	// progressThreshold is the change count above which per-batch
	// progress is reported
	progressThreshold = 20
)

// RemoteClient is the remote repository surface the orchestrator
// consumes. Satisfied by github.Client.
type RemoteClient interface {
	ListFiles(ctx context.Context) ([]github.RemoteFile, string, bool, error)
	FetchFileBytes(ctx context.Context, path, sha string) ([]byte, error)
	TestReachability(ctx context.Context) bool
	QuotaStatus(ctx context.Context) github.Quota
}

// Service is the sync orchestrator. It owns the single-flight guard
// and the end-to-end run state machine: manifest, load, diff, batched
// apply, persist, summarize.
type Service struct {
	cfg      *config.Config
	client   RemoteClient
	store    *StateStore
	vault    storage.Adapter
	runs     Repository
	notifier Notifier
	logger   *loggy.Logger

	syncing atomic.Bool
}

// NewService creates a sync orchestrator. The history repository and
// notifier may be nil; history recording and progress signalling are
// then skipped.
func NewService(
	cfg *config.Config,
	client RemoteClient,
	store *StateStore,
	vault storage.Adapter,
	runs Repository,
	notifier Notifier,
	logger *loggy.Logger,
) *Service {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &Service{
		cfg:      cfg,
		client:   client,
		store:    store,
		vault:    vault,
		runs:     runs,
		notifier: notifier,
		logger:   logger,
	}
}

// IsSyncing reports whether a run is currently in flight
func (s *Service) IsSyncing() bool {
	return s.syncing.Load()
}

// Run executes one full sync and returns its outcome. A second Run
// while one is in flight is rejected immediately; nothing is queued.
// Per-file failures are aggregated into the result without aborting
// the run.
func (s *Service) Run(ctx context.Context, runType RunType) *SyncResult {
	started := time.Now()

	// the guard must be taken before any I/O so overlapping runs
	// cannot interleave, and released on every exit path
	if !s.syncing.CompareAndSwap(false, true) {
		return &SyncResult{
			Success:      false,
			ErrorType:    ErrorTypeAlreadyRunning,
			ErrorMessage: "a sync is already in progress",
			StartedAt:    started,
			CompletedAt:  time.Now(),
		}
	}
	defer s.syncing.Store(false)

	if !s.cfg.IsRepoConfigured() {
		return s.finish(ctx, runType, &SyncResult{
			Success:      false,
			ErrorType:    ErrorTypeConfigMissing,
			ErrorMessage: "repository owner, name and token must be configured before syncing",
			StartedAt:    started,
		})
	}

	s.notifier.SyncStarted(runType)

	manifest, refID, truncated, err := s.client.ListFiles(ctx)
	if err != nil {
		return s.finish(ctx, runType, &SyncResult{
			Success:      false,
			ErrorType:    errorTypeFromRemote(err),
			ErrorMessage: err.Error(),
			StartedAt:    started,
		})
	}
	if truncated {
		s.logger.Warn("remote listing truncated, deletions will not be detected this run")
	}

	state := s.store.Load()

	changes := Diff(state, manifest)
	if truncated {
		// a partial manifest must not be read as mass deletion
		changes = dropDeletions(changes)
	}

	s.logger.Debug("computed change set",
		"remote_files", len(manifest),
		"tracked_files", len(state.Files),
		"changes", len(changes))

	result := &SyncResult{Success: true, StartedAt: started}

	if len(changes) == 0 {
		result.CompletedAt = time.Now()
		return s.finish(ctx, runType, result)
	}

	s.applyChanges(ctx, changes, state, result)

	completed := time.Now()
	state.Stamp(completed)
	if refID != "" {
		state.LastSyncReferenceID = refID
	}
	if err := s.store.Save(state); err != nil {
		// applied files stay on disk; without a durable state record
		// the next run re-downloads them, which is safe
		result.Success = false
		result.ErrorType = ErrorTypeStorage
		result.ErrorMessage = err.Error()
	}

	result.CompletedAt = completed
	return s.finish(ctx, runType, result)
}

// applyChanges walks the change set in fixed-size batches. Within a
// batch every file applies concurrently; batches run one after
// another, bounding in-flight network and storage operations.
func (s *Service) applyChanges(ctx context.Context, changes []FileChange, state *State, result *SyncResult) {
	total := len(changes)
	var mu sync.Mutex

	for offset := 0; offset < total; offset += batchSize {
		end := offset + batchSize
		if end > total {
			end = total
		}

		var wg sync.WaitGroup
		for _, change := range changes[offset:end] {
			wg.Add(1)
			go func(change FileChange) {
				defer wg.Done()
				s.applyOne(ctx, change, state, result, &mu)
			}(change)
		}
		wg.Wait()

		if total > progressThreshold {
			s.notifier.SyncProgress(end, total)
		}
	}
}

// applyOne applies a single file change. Failures are recorded on the
// result and never propagate; one file must not sink its batch.
func (s *Service) applyOne(ctx context.Context, change FileChange, state *State, result *SyncResult, mu *sync.Mutex) {
	switch change.Kind {
	case ChangeDeleted:
		existed, err := s.vault.Delete(change.Path)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			result.Errors = append(result.Errors, FileError{
				Path:     change.Path,
				Message:  fmt.Sprintf("deleting: %v", err),
				Category: CategoryFile,
			})
			return
		}
		// an already-absent file still gets its stale record cleaned,
		// but only a real deletion counts
		state.RecordRemoved(change.Path)
		if existed {
			result.FilesDeleted++
		}

	case ChangeAdded, ChangeModified:
		data, err := s.client.FetchFileBytes(ctx, change.Path, change.SHA)
		if err != nil {
			mu.Lock()
			defer mu.Unlock()
			result.Errors = append(result.Errors, FileError{
				Path:     change.Path,
				Message:  fmt.Sprintf("fetching: %v", err),
				Category: CategoryFile,
			})
			return
		}

		err = s.vault.Write(change.Path, data)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			result.Errors = append(result.Errors, FileError{
				Path:     change.Path,
				Message:  fmt.Sprintf("writing: %v", err),
				Category: CategoryFile,
			})
			return
		}

		state.RecordApplied(change.Path, change.SHA)
		if change.Kind == ChangeAdded {
			result.FilesAdded++
		} else {
			result.FilesModified++
		}
	}
}

// finish closes out a run: completion signal and best-effort history row
func (s *Service) finish(ctx context.Context, runType RunType, result *SyncResult) *SyncResult {
	if result.CompletedAt.IsZero() {
		result.CompletedAt = time.Now()
	}

	s.notifier.SyncCompleted(result)

	if s.runs != nil {
		if err := s.runs.CreateSyncRun(ctx, NewSyncRun(runType, result)); err != nil {
			s.logger.Warn("recording sync history failed", "error", err)
		}
	}
	return result
}

// dropDeletions strips deletion intents from a change set
func dropDeletions(changes []FileChange) []FileChange {
	kept := changes[:0]
	for _, c := range changes {
		if c.Kind != ChangeDeleted {
			kept = append(kept, c)
		}
	}
	return kept
}

// errorTypeFromRemote maps a remote client error to a run-level type
func errorTypeFromRemote(err error) ErrorType {
	switch github.KindOf(err) {
	case github.KindAuth:
		return ErrorTypeAuth
	case github.KindNotFound:
		return ErrorTypeNotFound
	case github.KindRateLimit:
		return ErrorTypeRateLimit
	case github.KindTooLarge:
		return ErrorTypeTooLarge
	case github.KindMalformed:
		return ErrorTypeMalformed
	case github.KindNetwork:
		return ErrorTypeNetwork
	default:
		return ErrorTypeUnknown
	}
}
