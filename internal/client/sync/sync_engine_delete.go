package sync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// deleteLocalOp removes a file the remote no longer has, then prunes empty parents.
// A file that is already gone counts as deleted.
func (se *SyncEngine) deleteLocalOp(log Logger) TransferFunc {
	return func(_ context.Context, item *TransferItem) error {
		localPath, err := se.workspace.LocalPath(item.RelativePath)
		if err != nil {
			log.Error("sync", "op", OpDeleteLocal, "path", item.RelativePath, "error", err)
			return err
		}

		err = os.Remove(localPath)
		switch {
		case err == nil:
			log.Info("sync", "op", OpDeleteLocal, "path", item.RelativePath)
		case errors.Is(err, os.ErrNotExist):
			log.Debug("sync", "op", OpDeleteLocal, "path", item.RelativePath, "message", "file was already deleted")
		default:
			err = fmt.Errorf("failed to delete file: %w", err)
			log.Error("sync", "op", OpDeleteLocal, "path", item.RelativePath, "error", err)
			return err
		}

		cleanupEmptyParentDirs(filepath.Dir(localPath), se.workspace.Root, log)
		return nil
	}
}

// deleteRemoteOp removes an object that no longer exists locally.
func (se *SyncEngine) deleteRemoteOp(log Logger) TransferFunc {
	return func(ctx context.Context, item *TransferItem) error {
		if err := validateRelPath(item.RelativePath); err != nil {
			log.Error("sync", "op", OpDeleteRemote, "path", item.RelativePath, "error", err)
			return err
		}

		if err := se.store.DeleteObject(ctx, item.Key); err != nil {
			log.Error("sync", "op", OpDeleteRemote, "path", item.RelativePath, "error", err)
			return fmt.Errorf("failed to delete object: %w", err)
		}

		log.Info("sync", "op", OpDeleteRemote, "path", item.RelativePath)
		return nil
	}
}
