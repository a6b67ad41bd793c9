package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openmined/bucketsync/internal/blob"
	"github.com/openmined/bucketsync/internal/client/config"
	"github.com/openmined/bucketsync/internal/client/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDaemon_Lifecycle(t *testing.T) {
	store := blob.NewMemoryClient()
	_, err := store.PutObject(context.Background(), &blob.PutObjectParams{
		Key:  "team/data/docs/readme.md",
		Size: 6,
		Body: bytes.NewReader([]byte("# docs")),
	})
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Bucket = "test-bucket"
	cfg.Prefix = "team/data"
	cfg.WorkspaceDir = t.TempDir()
	cfg.ControlPlane.Addr = "127.0.0.1:0"
	require.NoError(t, cfg.Validate())

	daemon, err := NewClientDaemon(cfg, store, discardLogger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- daemon.Start(ctx) }()

	require.Eventually(t, func() bool { return daemon.Addr() != "" }, 5*time.Second, 10*time.Millisecond)
	base := "http://" + daemon.Addr()

	// the startup pull is already in flight or finished
	resp, err := http.Post(base+"/v1/sync/pull/wait", "application/json", nil)
	require.NoError(t, err)
	var result handlers.SyncResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, result.Result)
	assert.True(t, result.Result.Success)

	data, err := os.ReadFile(filepath.Join(cfg.WorkspaceDir, "docs", "readme.md"))
	require.NoError(t, err)
	assert.Equal(t, "# docs", string(data))

	resp, err = http.Get(base + "/v1/sync/history")
	require.NoError(t, err)
	var hist handlers.HistoryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&hist))
	resp.Body.Close()
	require.Len(t, hist.Runs, 1)
	assert.Equal(t, "pull", hist.Runs[0].Direction)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("daemon did not stop")
	}

	assert.FileExists(t, cfg.HistoryDBPath())
}
