package sync

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/openmined/bucketsync/internal/blob"
)

// uploadOp puts one local file under the prefix. The listed fingerprint is stored as
// user metadata so later listings can compare even when the ETag is not a content digest.
func (se *SyncEngine) uploadOp(log Logger, transferred *atomic.Int64) TransferFunc {
	return func(ctx context.Context, item *TransferItem) error {
		localPath, err := se.workspace.LocalPath(item.RelativePath)
		if err != nil {
			log.Error("sync", "op", OpWriteRemote, "path", item.RelativePath, "error", err)
			return err
		}

		file, err := os.Open(localPath)
		if err != nil {
			log.Error("sync", "op", OpWriteRemote, "path", item.RelativePath, "error", err)
			return fmt.Errorf("upload: %w", err)
		}
		defer file.Close()

		info, err := file.Stat()
		if err != nil {
			return fmt.Errorf("upload: %w", err)
		}

		params := &blob.PutObjectParams{
			Key:         item.Key,
			Size:        info.Size(),
			ContentType: item.ContentType,
			Body:        file,
		}
		if isFingerprint(item.Fingerprint) {
			params.Metadata = map[string]string{MetaContentMD5: item.Fingerprint}
		}

		resp, err := se.store.PutObject(ctx, params)
		if err != nil {
			log.Error("sync", "op", OpWriteRemote, "path", item.RelativePath, "error", err)
			return fmt.Errorf("upload: %w", err)
		}
		transferred.Add(info.Size())

		log.Debug("sync", "op", OpWriteRemote, "path", item.RelativePath, "size", humanize.Bytes(uint64(info.Size())), "contentType", item.ContentType, "etag", resp.ETag)
		return nil
	}
}
