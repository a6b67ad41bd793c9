package sync

import (
	"time"

	"github.com/google/uuid"
)

// SyncResult is the outcome of one pull or push. Success is true only when the run
// finished with no recorded errors.
type SyncResult struct {
	RunID            string    `json:"runId"`
	Direction        Direction `json:"direction"`
	Success          bool      `json:"success"`
	DownloadedFiles  int       `json:"downloadedFiles,omitempty"`
	UploadedFiles    int       `json:"uploadedFiles,omitempty"`
	DeletedFiles     int       `json:"deletedFiles,omitempty"`
	UnchangedFiles   int       `json:"unchangedFiles"`
	BytesTransferred int64     `json:"bytesTransferred,omitempty"`
	Errors           []string  `json:"errors"`
	DurationMs       int64     `json:"durationMs"`
	StartedAt        time.Time `json:"startedAt"`

	DryRun           bool     `json:"dryRun,omitempty"`
	PlannedTransfers []string `json:"plannedTransfers,omitempty"`
	PlannedDeletes   []string `json:"plannedDeletes,omitempty"`
}

func newSyncResult(direction Direction) *SyncResult {
	return &SyncResult{
		RunID:     uuid.NewString(),
		Direction: direction,
		Errors:    []string{},
		StartedAt: time.Now(),
	}
}

func (r *SyncResult) addError(err error) {
	r.Errors = append(r.Errors, err.Error())
}

func (r *SyncResult) addFailures(failures []*TransferFailure) {
	for _, f := range failures {
		r.Errors = append(r.Errors, f.Error())
	}
}

// finish stamps the duration and derives Success from the recorded errors.
func (r *SyncResult) finish() *SyncResult {
	r.DurationMs = time.Since(r.StartedAt).Milliseconds()
	r.Success = len(r.Errors) == 0
	return r
}

// fail records a run-level error and marks the result unsuccessful.
func (r *SyncResult) fail(err error) *SyncResult {
	r.addError(err)
	r.finish()
	return r
}

// RunOption tweaks a single pull or push.
type RunOption func(*runOptions)

type runOptions struct {
	dryRun bool
}

// WithDryRun lists and diffs but performs no transfers or deletes.
func WithDryRun() RunOption {
	return func(o *runOptions) {
		o.dryRun = true
	}
}

func applyRunOptions(opts []RunOption) *runOptions {
	o := &runOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// runLogger tags every line of a run with its id and direction.
type runLogger struct {
	base Logger
	args []any
}

func newRunLogger(base Logger, result *SyncResult) *runLogger {
	return &runLogger{base: base, args: []any{"run", result.RunID, "direction", result.Direction}}
}

func (l *runLogger) with(args []any) []any {
	return append(args, l.args...)
}

func (l *runLogger) Debug(msg string, args ...any) { l.base.Debug(msg, l.with(args)...) }
func (l *runLogger) Info(msg string, args ...any)  { l.base.Info(msg, l.with(args)...) }
func (l *runLogger) Warn(msg string, args ...any)  { l.base.Warn(msg, l.with(args)...) }
func (l *runLogger) Error(msg string, args ...any) { l.base.Error(msg, l.with(args)...) }
