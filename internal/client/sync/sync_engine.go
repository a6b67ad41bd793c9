package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/openmined/bucketsync/internal/blob"
	"github.com/openmined/bucketsync/internal/utils"
)

var (
	ErrSyncAlreadyRunning = errors.New("sync already running")
)

// SyncEngine mirrors a bucket prefix into a workspace directory (pull) and back (push).
// Only one pull or push runs at a time per engine.
type SyncEngine struct {
	config    *Config
	store     blob.ObjectStore
	workspace *Workspace
	logger    Logger
	progress  *ProgressBroadcaster

	muSync sync.Mutex

	muPull sync.Mutex
	pull   *pullGeneration
}

func NewSyncEngine(config *Config, store blob.ObjectStore) (*SyncEngine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: object store is nil", ErrInvalidConfig)
	}

	workspace, err := NewWorkspace(config.WorkspaceDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return &SyncEngine{
		config:    config,
		store:     store,
		workspace: workspace,
		logger:    config.logger(),
		progress:  NewProgressBroadcaster(),
	}, nil
}

// WorkspacePath returns the resolved local root.
func (se *SyncEngine) WorkspacePath() string {
	return se.workspace.Root
}

// Subscribe returns a channel of progress events for every subsequent pull and push.
func (se *SyncEngine) Subscribe() <-chan SyncProgress {
	return se.progress.Subscribe()
}

func (se *SyncEngine) Unsubscribe(ch <-chan SyncProgress) {
	se.progress.Unsubscribe(ch)
}

func (se *SyncEngine) emitProgress(event SyncProgress) {
	if se.config.OnProgress != nil {
		se.config.OnProgress(event)
	}
	se.progress.Publish(event)
}

// Pull makes the workspace an exact mirror of the remote prefix. Listing and setup failures
// are returned as an error alongside an unsuccessful result; per-file failures only land in
// the result. A pull started here discards any finished background pull.
func (se *SyncEngine) Pull(ctx context.Context, opts ...RunOption) (*SyncResult, error) {
	if !se.muSync.TryLock() {
		return newSyncResult(DirectionPull).fail(ErrSyncAlreadyRunning), ErrSyncAlreadyRunning
	}
	defer se.muSync.Unlock()

	se.discardSettledPull()
	return se.runPull(ctx, applyRunOptions(opts))
}

// Push uploads new and changed local files. Remote objects missing locally are left alone
// unless Config.DeleteRemoteOnPush is set.
func (se *SyncEngine) Push(ctx context.Context, opts ...RunOption) (*SyncResult, error) {
	if !se.muSync.TryLock() {
		return newSyncResult(DirectionPush).fail(ErrSyncAlreadyRunning), ErrSyncAlreadyRunning
	}
	defer se.muSync.Unlock()

	return se.runPush(ctx, applyRunOptions(opts))
}

func (se *SyncEngine) runPull(ctx context.Context, opts *runOptions) (*SyncResult, error) {
	result := newSyncResult(DirectionPull)
	result.DryRun = opts.dryRun
	log := newRunLogger(se.logger, result)
	root := se.workspace.Root

	log.Info("sync start", "bucket", se.config.Bucket, "prefix", se.config.keyPrefix(), "workspace", root, "dryRun", opts.dryRun)

	if !opts.dryRun {
		if err := utils.EnsureDir(root); err != nil {
			return se.abort(log, result, fmt.Errorf("create workspace: %w", err))
		}
		if err := se.workspace.Lock(); err != nil {
			return se.abort(log, result, err)
		}
		defer se.releaseWorkspace(log)
	}

	filter, err := se.loadIgnoreFilter(log)
	if err != nil {
		return se.abort(log, result, err)
	}

	remote, err := ListRemote(ctx, se.store, se.config.keyPrefix(), filter, se.config.DownloadConcurrency, log)
	if err != nil {
		return se.abort(log, result, err)
	}

	local := &LocalListing{}
	if utils.DirExists(root) {
		local, err = ListLocal(ctx, root, filter, log)
		if err != nil {
			return se.abort(log, result, err)
		}
	}
	for _, skipped := range local.Skipped {
		result.addError(skipped)
	}

	remote, err = ConfirmETagFingerprints(ctx, se.store, remote, local.Digests(), se.config.DownloadConcurrency, log)
	if err != nil {
		return se.abort(log, result, err)
	}

	plan := Diff(remote, local.Entries)
	result.UnchangedFiles = plan.Unchanged
	log.Info("sync plan", "remote", len(remote), "local", len(local.Entries), "download", len(plan.ToTransfer), "delete", len(plan.ToDelete), "unchanged", plan.Unchanged)

	if opts.dryRun {
		result.PlannedTransfers = plan.ToTransfer
		result.PlannedDeletes = plan.ToDelete
		return se.complete(log, result), nil
	}

	if err := ctx.Err(); err != nil {
		return se.abort(log, result, err)
	}

	remoteByPath := make(map[string]*RemoteEntry, len(remote))
	for _, entry := range remote {
		remoteByPath[entry.RelativePath] = entry
	}
	downloads := make([]*TransferItem, 0, len(plan.ToTransfer))
	for _, relPath := range plan.ToTransfer {
		entry := remoteByPath[relPath]
		downloads = append(downloads, &TransferItem{
			RelativePath: relPath,
			Key:          entry.Key,
			Size:         entry.Size,
			Fingerprint:  entry.Fingerprint,
			ContentType:  entry.ContentType,
		})
	}

	var transferred atomic.Int64
	report, err := se.schedule(ctx, se.config.DownloadConcurrency, PhaseDownload, downloads, se.downloadOp(log, &transferred))
	result.BytesTransferred = transferred.Load()
	if err != nil {
		return se.abort(log, result, err)
	}
	result.DownloadedFiles = report.Completed
	result.addFailures(report.Failed)

	// deletes only start after every download has settled
	if err := ctx.Err(); err != nil {
		return se.abort(log, result, err)
	}

	deletes := make([]*TransferItem, 0, len(plan.ToDelete))
	for _, relPath := range plan.ToDelete {
		deletes = append(deletes, &TransferItem{RelativePath: relPath})
	}
	report, err = se.schedule(ctx, 1, PhaseCleanup, deletes, se.deleteLocalOp(log))
	if err != nil {
		return se.abort(log, result, err)
	}
	result.DeletedFiles = report.Completed
	result.addFailures(report.Failed)

	if err := ctx.Err(); err != nil {
		return se.abort(log, result, err)
	}
	return se.complete(log, result), nil
}

func (se *SyncEngine) runPush(ctx context.Context, opts *runOptions) (*SyncResult, error) {
	result := newSyncResult(DirectionPush)
	result.DryRun = opts.dryRun
	log := newRunLogger(se.logger, result)
	root := se.workspace.Root

	log.Info("sync start", "bucket", se.config.Bucket, "prefix", se.config.keyPrefix(), "workspace", root, "dryRun", opts.dryRun)

	if !utils.DirExists(root) {
		return se.abort(log, result, fmt.Errorf("local scan failed: %s: %w", root, fs.ErrNotExist))
	}
	if !opts.dryRun {
		if err := se.workspace.Lock(); err != nil {
			return se.abort(log, result, err)
		}
		defer se.releaseWorkspace(log)
	}

	filter, err := se.loadIgnoreFilter(log)
	if err != nil {
		return se.abort(log, result, err)
	}

	local, err := ListLocal(ctx, root, filter, log)
	if err != nil {
		return se.abort(log, result, err)
	}
	for _, skipped := range local.Skipped {
		result.addError(skipped)
	}

	remote, err := ListRemote(ctx, se.store, se.config.keyPrefix(), filter, se.config.UploadConcurrency, log)
	if err != nil {
		return se.abort(log, result, err)
	}
	remote, err = ConfirmETagFingerprints(ctx, se.store, remote, local.Digests(), se.config.UploadConcurrency, log)
	if err != nil {
		return se.abort(log, result, err)
	}

	plan := Diff(local.Entries, remote)
	if !se.config.DeleteRemoteOnPush {
		plan.ToDelete = []string{}
	}
	result.UnchangedFiles = plan.Unchanged
	log.Info("sync plan", "local", len(local.Entries), "remote", len(remote), "upload", len(plan.ToTransfer), "delete", len(plan.ToDelete), "unchanged", plan.Unchanged)

	if opts.dryRun {
		result.PlannedTransfers = plan.ToTransfer
		result.PlannedDeletes = plan.ToDelete
		return se.complete(log, result), nil
	}

	if err := ctx.Err(); err != nil {
		return se.abort(log, result, err)
	}

	localByPath := make(map[string]*WorkspaceEntry, len(local.Entries))
	for _, entry := range local.Entries {
		localByPath[entry.RelativePath] = entry
	}
	uploads := make([]*TransferItem, 0, len(plan.ToTransfer))
	for _, relPath := range plan.ToTransfer {
		entry := localByPath[relPath]
		uploads = append(uploads, &TransferItem{
			RelativePath: relPath,
			Key:          se.config.keyPrefix() + relPath,
			Size:         entry.Size,
			Fingerprint:  entry.Fingerprint,
			ContentType:  se.config.resolveContentType(relPath),
		})
	}

	var transferred atomic.Int64
	report, err := se.schedule(ctx, se.config.UploadConcurrency, PhaseUpload, uploads, se.uploadOp(log, &transferred))
	result.BytesTransferred = transferred.Load()
	if err != nil {
		return se.abort(log, result, err)
	}
	result.UploadedFiles = report.Completed
	result.addFailures(report.Failed)

	if len(plan.ToDelete) > 0 {
		if err := ctx.Err(); err != nil {
			return se.abort(log, result, err)
		}

		deletes := make([]*TransferItem, 0, len(plan.ToDelete))
		for _, relPath := range plan.ToDelete {
			deletes = append(deletes, &TransferItem{
				RelativePath: relPath,
				Key:          se.config.keyPrefix() + relPath,
			})
		}
		report, err = se.schedule(ctx, se.config.UploadConcurrency, PhaseCleanup, deletes, se.deleteRemoteOp(log))
		if err != nil {
			return se.abort(log, result, err)
		}
		result.DeletedFiles = report.Completed
		result.addFailures(report.Failed)
	}

	if err := ctx.Err(); err != nil {
		return se.abort(log, result, err)
	}
	return se.complete(log, result), nil
}

func (se *SyncEngine) schedule(ctx context.Context, concurrency int, phase Phase, items []*TransferItem, op TransferFunc) (*TransferReport, error) {
	if len(items) == 0 {
		return &TransferReport{}, nil
	}
	scheduler, err := NewTransferScheduler(concurrency, phase, se.emitProgress)
	if err != nil {
		return nil, err
	}
	return scheduler.Run(ctx, items, op), nil
}

func (se *SyncEngine) loadIgnoreFilter(log Logger) (*IgnoreFilter, error) {
	fileLines, err := ReadIgnoreFile(se.workspace.Root)
	if err != nil {
		return nil, err
	}
	filter := CompileIgnore(log, defaultIgnoreLines, fileLines, se.config.IgnorePatterns)
	log.Debug("ignore rules loaded", "rules", filter.Rules())
	return filter, nil
}

func (se *SyncEngine) releaseWorkspace(log Logger) {
	if err := se.workspace.Unlock(); err != nil {
		log.Warn("failed to unlock workspace", "error", err)
	}
}

func (se *SyncEngine) abort(log Logger, result *SyncResult, err error) (*SyncResult, error) {
	result.fail(err)
	log.Error("sync failed", "error", err, "duration", result.DurationMs)
	se.notifyComplete(result)
	return result, err
}

func (se *SyncEngine) complete(log Logger, result *SyncResult) *SyncResult {
	result.finish()
	log.Info("sync complete",
		"success", result.Success,
		"downloaded", result.DownloadedFiles,
		"uploaded", result.UploadedFiles,
		"deleted", result.DeletedFiles,
		"unchanged", result.UnchangedFiles,
		"errors", len(result.Errors),
		"bytes", humanize.Bytes(uint64(max(result.BytesTransferred, 0))),
		"duration", result.DurationMs,
	)
	se.notifyComplete(result)
	return result
}

func (se *SyncEngine) notifyComplete(result *SyncResult) {
	if se.config.OnComplete != nil {
		se.config.OnComplete(result)
	}
}

// RemoteURL returns the mirrored location as s3://bucket/prefix/.
func (se *SyncEngine) RemoteURL() string {
	return "s3://" + se.config.Bucket + "/" + se.config.keyPrefix()
}
