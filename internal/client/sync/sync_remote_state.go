package sync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/openmined/bucketsync/internal/blob"
	"golang.org/x/sync/errgroup"
)

// ListRemote pages through every object under prefix and returns one entry per file.
// Directory markers and ignored paths are dropped. Objects whose ETag is not a content
// digest get their fingerprint from the md5 user metadata via HEAD, fanned out up to headConcurrency.
func ListRemote(ctx context.Context, store blob.ObjectStore, prefix string, filter *IgnoreFilter, headConcurrency int, logger Logger) ([]*RemoteEntry, error) {
	if logger == nil {
		logger = discardLogger{}
	}
	if headConcurrency <= 0 {
		headConcurrency = 1
	}

	var entries []*RemoteEntry
	var needsHead []*RemoteEntry
	seen := make(map[string]struct{})

	token := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := store.ListObjects(ctx, prefix, token)
		if err != nil {
			return nil, fmt.Errorf("remote listing failed: %w", err)
		}

		for _, obj := range page.Objects {
			if !strings.HasPrefix(obj.Key, prefix) {
				continue
			}
			relPath := strings.TrimPrefix(obj.Key, prefix)
			if relPath == "" || strings.HasSuffix(obj.Key, "/") {
				continue
			}
			if filter.IsIgnored(relPath) {
				continue
			}
			if _, dup := seen[relPath]; dup {
				return nil, fmt.Errorf("remote listing failed: duplicate path %q", relPath)
			}
			seen[relPath] = struct{}{}

			entry := &RemoteEntry{
				RelativePath: relPath,
				Key:          obj.Key,
				Size:         obj.Size,
				ContentType:  obj.ContentType,
			}
			if isContentETag(obj.ETag) && !obj.Encrypted {
				entry.Fingerprint = obj.ETag
				entry.etagFingerprint = true
			} else {
				needsHead = append(needsHead, entry)
			}
			entries = append(entries, entry)
		}

		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	if len(needsHead) > 0 {
		gone, err := resolveRemoteFingerprints(ctx, store, needsHead, headConcurrency, logger)
		if err != nil {
			return nil, err
		}
		if len(gone) > 0 {
			entries = slices.DeleteFunc(entries, func(e *RemoteEntry) bool {
				_, ok := gone[e.RelativePath]
				return ok
			})
		}
	}

	slices.SortFunc(entries, func(a, b *RemoteEntry) int {
		return strings.Compare(a.RelativePath, b.RelativePath)
	})
	return entries, nil
}

// ConfirmETagFingerprints re-reads the metadata of remote entries whose ETag-derived fingerprint
// disagrees with the local digest for the same path. Encrypted objects report ETags that look like
// an MD5 but are not one, and the md5 metadata written on upload is the authoritative digest.
// Entries that vanished are dropped from the returned slice.
func ConfirmETagFingerprints(ctx context.Context, store blob.ObjectStore, remote []*RemoteEntry, local map[string]string, concurrency int, logger Logger) ([]*RemoteEntry, error) {
	if logger == nil {
		logger = discardLogger{}
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	var suspect []*RemoteEntry
	for _, entry := range remote {
		if !entry.etagFingerprint {
			continue
		}
		if digest, ok := local[entry.RelativePath]; ok && digest != entry.Fingerprint {
			suspect = append(suspect, entry)
		}
	}
	if len(suspect) == 0 {
		return remote, nil
	}

	logger.Debug("confirming remote fingerprints", "count", len(suspect))
	gone, err := resolveRemoteFingerprints(ctx, store, suspect, concurrency, logger)
	if err != nil {
		return nil, err
	}
	if len(gone) > 0 {
		remote = slices.DeleteFunc(remote, func(e *RemoteEntry) bool {
			_, ok := gone[e.RelativePath]
			return ok
		})
	}
	return remote, nil
}

// resolveRemoteFingerprints fills fingerprints from object metadata. Entries that vanished since
// the listing are returned so the caller can drop them; other HEAD failures leave the
// fingerprint empty, which always compares as changed.
func resolveRemoteFingerprints(ctx context.Context, store blob.ObjectStore, entries []*RemoteEntry, concurrency int, logger Logger) (map[string]struct{}, error) {
	var mu sync.Mutex
	gone := make(map[string]struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, entry := range entries {
		g.Go(func() error {
			info, err := store.HeadObject(gctx, entry.Key)
			if err != nil {
				if errors.Is(err, blob.ErrObjectNotFound) {
					mu.Lock()
					gone[entry.RelativePath] = struct{}{}
					mu.Unlock()
					return nil
				}
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logger.Warn("remote fingerprint unavailable", "path", entry.RelativePath, "error", err)
				return nil
			}

			switch md5 := info.Metadata[MetaContentMD5]; {
			case isFingerprint(md5):
				entry.Fingerprint = md5
			case info.Encrypted:
				entry.Fingerprint = ""
			default:
				logger.Debug("remote object has no content digest", "path", entry.RelativePath, "etag", info.ETag)
			}
			entry.etagFingerprint = false
			if entry.ContentType == "" {
				entry.ContentType = info.ContentType
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return gone, nil
}
