package sync

import (
	"github.com/tildaslashalef/repovault/internal/loggy"
)

// Notifier receives progress signals during a sync run. It is an
// observability side channel; implementations must not fail the run.
type Notifier interface {
	// SyncStarted fires once at the beginning of a run
	SyncStarted(runType RunType)
	// SyncProgress fires after each batch when the change set is large
	// enough to be worth reporting
	SyncProgress(done, total int)
	// SyncCompleted fires once with the final result, success or not
	SyncCompleted(result *SyncResult)
}

// LogNotifier reports progress through the structured log
type LogNotifier struct {
	logger *loggy.Logger
}

// NewLogNotifier creates a Notifier writing to the given logger
func NewLogNotifier(logger *loggy.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SyncStarted(runType RunType) {
	n.logger.Info("sync started", "run_type", runType)
}

func (n *LogNotifier) SyncProgress(done, total int) {
	n.logger.Info("sync progress", "done", done, "total", total)
}

func (n *LogNotifier) SyncCompleted(result *SyncResult) {
	if !result.Success {
		n.logger.Warn("sync failed",
			"error_type", result.ErrorType,
			"error", result.ErrorMessage,
			"duration", result.Duration())
		return
	}
	n.logger.Info("sync completed",
		"added", result.FilesAdded,
		"modified", result.FilesModified,
		"deleted", result.FilesDeleted,
		"failed", len(result.Errors),
		"duration", result.Duration())
}

// NoopNotifier discards all signals
type NoopNotifier struct{}

func (NoopNotifier) SyncStarted(RunType)       {}
func (NoopNotifier) SyncProgress(int, int)     {}
func (NoopNotifier) SyncCompleted(*SyncResult) {}
