package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/openmined/bucketsync/internal/blob"
	"github.com/openmined/bucketsync/internal/client/sync"
	"github.com/stretchr/testify/require"
)

const testPrefix = "team/data"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestEngine(t *testing.T, store blob.ObjectStore) (*sync.SyncEngine, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := sync.NewConfig("test-bucket", testPrefix, dir)
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := sync.NewSyncEngine(cfg, store)
	require.NoError(t, err)
	return engine, dir
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

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}
