package history

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	"github.com/openmined/bucketsync/internal/client/sync"
	"github.com/openmined/bucketsync/internal/db"
)

const (
	DefaultLimit = 20
	MaxLimit     = 500
)

const schema = `
CREATE TABLE IF NOT EXISTS sync_runs (
	id            TEXT PRIMARY KEY,
	direction     TEXT NOT NULL,
	success       INTEGER NOT NULL,
	dry_run       INTEGER NOT NULL DEFAULT 0,
	downloaded    INTEGER NOT NULL DEFAULT 0,
	uploaded      INTEGER NOT NULL DEFAULT 0,
	deleted       INTEGER NOT NULL DEFAULT 0,
	unchanged     INTEGER NOT NULL DEFAULT 0,
	bytes         INTEGER NOT NULL DEFAULT 0,
	errors        TEXT NOT NULL DEFAULT '[]',
	duration_ms   INTEGER NOT NULL,
	started_at    INTEGER NOT NULL,
	finished_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sync_runs_finished_at ON sync_runs (finished_at DESC);
`

// Run is one recorded pull or push.
type Run struct {
	ID         string    `json:"id"`
	Direction  string    `json:"direction"`
	Success    bool      `json:"success"`
	DryRun     bool      `json:"dryRun,omitempty"`
	Downloaded int       `json:"downloaded"`
	Uploaded   int       `json:"uploaded"`
	Deleted    int       `json:"deleted"`
	Unchanged  int       `json:"unchanged"`
	Bytes      int64     `json:"bytes"`
	Errors     []string  `json:"errors"`
	DurationMs int64     `json:"durationMs"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// row mirrors sync_runs. Times are unix milliseconds so both sqlite drivers scan them the same way.
type row struct {
	ID         string `db:"id"`
	Direction  string `db:"direction"`
	Success    bool   `db:"success"`
	DryRun     bool   `db:"dry_run"`
	Downloaded int    `db:"downloaded"`
	Uploaded   int    `db:"uploaded"`
	Deleted    int    `db:"deleted"`
	Unchanged  int    `db:"unchanged"`
	Bytes      int64  `db:"bytes"`
	Errors     string `db:"errors"`
	DurationMs int64  `db:"duration_ms"`
	StartedAt  int64  `db:"started_at"`
	FinishedAt int64  `db:"finished_at"`
}

// Store persists sync runs in sqlite.
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	database, err := db.NewSqliteDB(db.WithPath(path), db.WithSchema(schema), db.WithMaxOpenConns(1))
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return &Store{db: database}, nil
}

// OpenMemory returns a store that lives only as long as the process.
func OpenMemory() (*Store, error) {
	database, err := db.NewSqliteDB(db.WithSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return &Store{db: database}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a finished run. Recording the same run id twice keeps the latest copy.
func (s *Store) Record(ctx context.Context, result *sync.SyncResult) error {
	if result == nil {
		return nil
	}

	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}
	errorsJSON, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("encode errors: %w", err)
	}

	finishedAt := result.StartedAt.Add(time.Duration(result.DurationMs) * time.Millisecond)
	r := &row{
		ID:         result.RunID,
		Direction:  string(result.Direction),
		Success:    result.Success,
		DryRun:     result.DryRun,
		Downloaded: result.DownloadedFiles,
		Uploaded:   result.UploadedFiles,
		Deleted:    result.DeletedFiles,
		Unchanged:  result.UnchangedFiles,
		Bytes:      result.BytesTransferred,
		Errors:     string(errorsJSON),
		DurationMs: result.DurationMs,
		StartedAt:  result.StartedAt.UnixMilli(),
		FinishedAt: finishedAt.UnixMilli(),
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO sync_runs (
			id, direction, success, dry_run, downloaded, uploaded, deleted, unchanged,
			bytes, errors, duration_ms, started_at, finished_at
		) VALUES (
			:id, :direction, :success, :dry_run, :downloaded, :uploaded, :deleted, :unchanged,
			:bytes, :errors, :duration_ms, :started_at, :finished_at
		)`, r)
	if err != nil {
		return fmt.Errorf("record run %s: %w", result.RunID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. Non-positive limits use DefaultLimit.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, direction, success, dry_run, downloaded, uploaded, deleted, unchanged,
			bytes, errors, duration_ms, started_at, finished_at
		FROM sync_runs
		ORDER BY finished_at DESC, started_at DESC
		LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	runs := make([]*Run, 0, len(rows))
	for _, r := range rows {
		run := &Run{
			ID:         r.ID,
			Direction:  r.Direction,
			Success:    r.Success,
			DryRun:     r.DryRun,
			Downloaded: r.Downloaded,
			Uploaded:   r.Uploaded,
			Deleted:    r.Deleted,
			Unchanged:  r.Unchanged,
			Bytes:      r.Bytes,
			DurationMs: r.DurationMs,
			StartedAt:  time.UnixMilli(r.StartedAt).UTC(),
			FinishedAt: time.UnixMilli(r.FinishedAt).UTC(),
		}
		if err := json.Unmarshal([]byte(r.Errors), &run.Errors); err != nil {
			return nil, fmt.Errorf("decode errors for run %s: %w", r.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}
