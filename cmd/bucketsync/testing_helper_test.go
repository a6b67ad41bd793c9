package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/openmined/bucketsync/internal/blob"
	"github.com/openmined/bucketsync/internal/client/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const testPrefix = "team/data"

// newTestRoot mirrors rootCmd without logger setup so tests keep the default logger.
func newTestRoot(subcommands ...*cobra.Command) (*cobra.Command, *bytes.Buffer) {
	root := &cobra.Command{Use: "bucketsync", SilenceErrors: true, SilenceUsage: true}
	addRootFlags(root)
	root.AddCommand(subcommands...)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	return root, &out
}

func useMemoryStore(t *testing.T) *blob.MemoryClient {
	t.Helper()
	store := blob.NewMemoryClient()
	prev := newObjectStore
	newObjectStore = func(ctx context.Context, cfg *config.Config) (blob.ObjectStore, error) {
		return store, nil
	}
	t.Cleanup(func() { newObjectStore = prev })
	return store
}

// baseArgs points the command at a fresh workspace and a config file that does not exist.
func baseArgs(t *testing.T, workspace string) []string {
	t.Helper()
	return []string{
		"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		"--bucket", "test-bucket",
		"--prefix", testPrefix,
		"--workspace", workspace,
	}
}

func putObject(t *testing.T, store *blob.MemoryClient, relPath, content string) {
	t.Helper()
	_, err := store.PutObject(context.Background(), &blob.PutObjectParams{
		Key:  testPrefix + "/" + relPath,
		Size: int64(len(content)),
		Body: bytes.NewReader([]byte(content)),
	})
	require.NoError(t, err)
}

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
