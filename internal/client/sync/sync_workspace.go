package sync

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/openmined/bucketsync/internal/utils"
)

const (
	lockFile = "bucketsync.lock"
	tmpDir   = "tmp"
)

var (
	ErrWorkspaceLocked = errors.New("workspace locked by another process")
	ErrPathEscapesRoot = errors.New("path escapes workspace root")
)

// Workspace is the local root of a sync, plus its metadata directory.
type Workspace struct {
	Root        string
	MetadataDir string
	TmpDir      string

	flock *flock.Flock
}

func NewWorkspace(rootDir string) (*Workspace, error) {
	root, err := utils.ResolvePath(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", rootDir, err)
	}

	metadataDir := filepath.Join(root, MetadataDirName)
	return &Workspace{
		Root:        root,
		MetadataDir: metadataDir,
		TmpDir:      filepath.Join(metadataDir, tmpDir),
		flock:       flock.New(filepath.Join(metadataDir, lockFile)),
	}, nil
}

// Lock takes the cross-process workspace lock so two bucketsync processes never mirror into the same root.
func (w *Workspace) Lock() error {
	if err := utils.EnsureDir(w.MetadataDir); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", w.MetadataDir, err)
	}

	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock workspace: %w", err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}
	return nil
}

func (w *Workspace) Unlock() error {
	// if this process hasn't locked the workspace, then don't delete the lock file
	if !w.flock.Locked() {
		return nil
	}

	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock workspace: %w", err)
	}
	return os.Remove(w.flock.Path())
}

// LocalPath converts a slash-separated relative path into an absolute path under Root.
// Paths that are absolute, unclean or climb out of the root are rejected before any I/O.
func (w *Workspace) LocalPath(relPath string) (string, error) {
	if err := validateRelPath(relPath); err != nil {
		return "", err
	}
	return filepath.Join(w.Root, filepath.FromSlash(relPath)), nil
}

func validateRelPath(relPath string) error {
	if relPath == "" || path.Clean(relPath) != relPath || !filepath.IsLocal(filepath.FromSlash(relPath)) {
		return fmt.Errorf("%w: %q", ErrPathEscapesRoot, relPath)
	}
	return nil
}
