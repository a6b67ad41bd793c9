package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/openmined/bucketsync/internal/utils"
)

// LocalListing is the result of a workspace walk. Skipped holds per-path errors
// for files that could not be read; those files are not in Entries.
type LocalListing struct {
	Entries []*WorkspaceEntry
	Skipped []error
}

// Digests maps each listed path to its fingerprint.
func (l *LocalListing) Digests() map[string]string {
	digests := make(map[string]string, len(l.Entries))
	for _, entry := range l.Entries {
		digests[entry.RelativePath] = entry.Fingerprint
	}
	return digests
}

// ListLocal walks rootDir and fingerprints every non-ignored regular file.
// The root may itself be a symlink to a directory. Symlinks and other special files below it are
// not followed. Only a failure to read the root itself is fatal.
func ListLocal(ctx context.Context, rootDir string, filter *IgnoreFilter, logger Logger) (*LocalListing, error) {
	if logger == nil {
		logger = discardLogger{}
	}

	rootDir, err := filepath.EvalSymlinks(rootDir)
	if err != nil {
		return nil, fmt.Errorf("local scan failed: %w", err)
	}
	info, err := os.Stat(rootDir)
	if err != nil {
		return nil, fmt.Errorf("local scan failed: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local scan failed: %s is not a directory", rootDir)
	}

	listing := &LocalListing{}
	skip := func(path string, err error) {
		logger.Warn("local scan skipped path", "path", path, "error", err)
		listing.Skipped = append(listing.Skipped, err)
	}

	err = filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == rootDir {
				return walkErr
			}
			skip(path, fmt.Errorf("walk %s: %w", path, walkErr))
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == rootDir {
			return nil
		}

		relPath, err := filepath.Rel(rootDir, path)
		if err != nil {
			return fmt.Errorf("walk rel path: %w", err)
		}
		relPath = utils.ToSlashRel(relPath)

		if d.IsDir() {
			if filter.CanPruneDir(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			logger.Debug("local scan ignored non-regular file", "path", relPath, "mode", d.Type().String())
			return nil
		}

		if filter.IsIgnored(relPath) {
			return nil
		}

		fileInfo, err := d.Info()
		if err != nil {
			skip(relPath, fmt.Errorf("stat %s: %w", relPath, err))
			return nil
		}

		fingerprint, err := HashFile(path)
		if err != nil {
			skip(relPath, err)
			return nil
		}

		listing.Entries = append(listing.Entries, &WorkspaceEntry{
			RelativePath: relPath,
			Size:         fileInfo.Size(),
			Fingerprint:  fingerprint,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("local scan failed: %w", err)
	}

	slices.SortFunc(listing.Entries, func(a, b *WorkspaceEntry) int {
		return strings.Compare(a.RelativePath, b.RelativePath)
	})
	return listing, nil
}
