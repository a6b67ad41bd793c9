package sync

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/openmined/bucketsync/internal/blob"
)

// downloadOp fetches one object into the workspace. The bytes are verified against the
// digest the response carries before they replace the local file.
func (se *SyncEngine) downloadOp(log Logger, transferred *atomic.Int64) TransferFunc {
	return func(ctx context.Context, item *TransferItem) error {
		localPath, err := se.workspace.LocalPath(item.RelativePath)
		if err != nil {
			log.Error("sync", "op", OpWriteLocal, "path", item.RelativePath, "error", err)
			return err
		}

		resp, err := se.store.GetObject(ctx, item.Key)
		if err != nil {
			log.Error("sync", "op", OpWriteLocal, "path", item.RelativePath, "error", err)
			return fmt.Errorf("download: %w", err)
		}
		defer resp.Body.Close()

		expected := responseDigest(resp)
		if expected == "" {
			log.Debug("sync", "op", OpWriteLocal, "path", item.RelativePath, "msg", "no content digest, skipping verification")
		}

		written, err := writeFileWithIntegrityCheck(se.workspace.TmpDir, localPath, resp.Body, expected)
		if err != nil {
			log.Error("sync", "op", OpWriteLocal, "path", item.RelativePath, "error", err)
			return fmt.Errorf("download: %w", err)
		}
		transferred.Add(written)

		// the workspace keeps no per-file metadata, so the stored type travels with the progress event
		if resp.ContentType != "" {
			item.ContentType = resp.ContentType
		}
		log.Debug("sync", "op", OpWriteLocal, "path", item.RelativePath, "size", humanize.Bytes(uint64(written)), "contentType", item.ContentType)
		return nil
	}
}

// responseDigest returns the MD5 a downloaded body must match. The md5 metadata written on upload
// wins over the ETag, which is only trusted for unencrypted single-part objects. Empty means unknown.
func responseDigest(resp *blob.GetObjectResponse) string {
	if md5 := resp.Metadata[MetaContentMD5]; isFingerprint(md5) {
		return md5
	}
	if !resp.Encrypted && isContentETag(resp.ETag) {
		return resp.ETag
	}
	return ""
}
