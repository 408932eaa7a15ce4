package sync

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/tildaslashalef/repovault/internal/loggy"
	"github.com/tildaslashalef/repovault/internal/ulid"
)

// Repository defines storage operations for the sync run history
type Repository interface {
	// CreateSyncRun persists a finished run
	CreateSyncRun(ctx context.Context, run *SyncRun) error

	// GetSyncRuns retrieves history rows, newest first
	GetSyncRuns(ctx context.Context, limit, offset int) ([]*SyncRun, error)

	// GetLatestSyncRun retrieves the most recent run, or nil when no
	// run has happened yet
	GetLatestSyncRun(ctx context.Context) (*SyncRun, error)
}

// SQLRepository implements Repository on the sqlite database
type SQLRepository struct {
	db     *sql.DB
	logger *loggy.Logger
}

// NewSQLRepository creates a new SQL repository
func NewSQLRepository(db *sql.DB, logger *loggy.Logger) *SQLRepository {
	return &SQLRepository{
		db:     db,
		logger: logger,
	}
}

// CreateSyncRun persists a finished run
func (r *SQLRepository) CreateSyncRun(ctx context.Context, run *SyncRun) error {
	if run.ID == "" {
		run.ID = ulid.RunID()
	}

	q := squirrel.Insert("sync_runs").
		Columns(
			"id", "run_type", "success", "error_type", "error_message",
			"files_added", "files_modified", "files_deleted", "files_failed",
			"started_at", "completed_at",
		).
		Values(
			run.ID, string(run.RunType), run.Success, string(run.ErrorType), run.ErrorMessage,
			run.FilesAdded, run.FilesModified, run.FilesDeleted, run.FilesFailed,
			run.StartedAt.UTC().Format(time.RFC3339), run.CompletedAt.UTC().Format(time.RFC3339),
		)

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("building sync run insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting sync run: %w", err)
	}
	return nil
}

// GetSyncRuns retrieves history rows, newest first
func (r *SQLRepository) GetSyncRuns(ctx context.Context, limit, offset int) ([]*SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	q := squirrel.Select(
		"id", "run_type", "success", "error_type", "error_message",
		"files_added", "files_modified", "files_deleted", "files_failed",
		"started_at", "completed_at",
	).
		From("sync_runs").
		OrderBy("completed_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building sync run query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync runs: %w", err)
	}
	return runs, nil
}

// GetLatestSyncRun retrieves the most recent run, or nil when the
// history is empty
func (r *SQLRepository) GetLatestSyncRun(ctx context.Context) (*SyncRun, error) {
	runs, err := r.GetSyncRuns(ctx, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncRun(row rowScanner) (*SyncRun, error) {
	var (
		run                    SyncRun
		runType, errType       string
		startedAt, completedAt string
	)

	err := row.Scan(
		&run.ID, &runType, &run.Success, &errType, &run.ErrorMessage,
		&run.FilesAdded, &run.FilesModified, &run.FilesDeleted, &run.FilesFailed,
		&startedAt, &completedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning sync run: %w", err)
	}

	run.RunType = RunType(runType)
	run.ErrorType = ErrorType(errType)
	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		run.StartedAt = t
	}
	if t, err := time.Parse(time.RFC3339, completedAt); err == nil {
		run.CompletedAt = t
	}
	return &run, nil
}
