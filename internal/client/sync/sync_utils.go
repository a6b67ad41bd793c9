package sync

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/openmined/bucketsync/internal/utils"
)

var ErrIntegrityCheck = errors.New("integrity check failed")

// writeFileWithIntegrityCheck streams body into a temp file, verifies its MD5 when expected
// is set, then renames it over path. A failed write never leaves a partial file at path.
func writeFileWithIntegrityCheck(tmpDirPath string, path string, body io.Reader, expected string) (int64, error) {
	if err := utils.EnsureParent(path); err != nil {
		return 0, fmt.Errorf("failed to ensure parent: %w", err)
	}

	// temp files live under the metadata dir, which is never listed
	if err := utils.EnsureDir(tmpDirPath); err != nil {
		return 0, fmt.Errorf("failed to ensure temp directory: %w", err)
	}
	tempFile, err := os.CreateTemp(tmpDirPath, filepath.Base(path)+".tmp.*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		if !success {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	hasher := md5.New()
	written, err := io.Copy(io.MultiWriter(tempFile, hasher), body)
	if err != nil {
		return written, fmt.Errorf("failed to write temp file: %w", err)
	}

	if expected != "" {
		if computed := hex.EncodeToString(hasher.Sum(nil)); computed != expected {
			return written, fmt.Errorf("%w: expected %q got %q", ErrIntegrityCheck, expected, computed)
		}
	}

	if err := tempFile.Sync(); err != nil {
		return written, fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return written, fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return written, fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}

	success = true
	return written, nil
}

// cleanupEmptyParentDirs removes now-empty directories from dir upward, stopping at root.
func cleanupEmptyParentDirs(dir string, root string, logger Logger) {
	currentDir := dir

	for currentDir != root && currentDir != filepath.Dir(currentDir) {
		if rel, err := filepath.Rel(root, currentDir); err != nil || !filepath.IsLocal(rel) {
			break
		}

		if statInfo, statErr := os.Stat(currentDir); statErr != nil || !statInfo.IsDir() {
			break
		}

		dirEntries, err := os.ReadDir(currentDir)
		if err != nil {
			logger.Warn("sync", "op", OpCleanup, "path", currentDir, "error", err)
			break
		}

		remaining := 0
		for _, entry := range dirEntries {
			if entry.Name() == ".DS_Store" || entry.Name() == "Thumbs.db" {
				_ = os.RemoveAll(filepath.Join(currentDir, entry.Name()))
			} else {
				remaining++
			}
		}
		if remaining > 0 {
			break
		}

		// Windows can hold handles briefly after a delete
		var rmErr error
		for attempt := 0; attempt < 3; attempt++ {
			if rmErr = os.Remove(currentDir); rmErr == nil {
				break
			}
			time.Sleep(50 * time.Millisecond)
		}
		if rmErr != nil {
			logger.Warn("sync", "op", OpCleanup, "path", currentDir, "error", rmErr)
			break
		}
		logger.Debug("sync", "op", OpCleanup, "path", currentDir, "reason", "empty parent dir")
		currentDir = filepath.Dir(currentDir)
	}
}
