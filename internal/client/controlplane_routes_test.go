package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openmined/bucketsync/internal/blob"
	"github.com/openmined/bucketsync/internal/client/handlers"
	"github.com/openmined/bucketsync/internal/client/sync"
	"github.com/openmined/bucketsync/internal/history"
	"github.com/openmined/bucketsync/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestRoutes(t *testing.T, token string) (http.Handler, *blob.MemoryClient) {
	t.Helper()
	store := blob.NewMemoryClient()
	_, err := store.PutObject(context.Background(), &blob.PutObjectParams{
		Key:  "team/data/hello.txt",
		Size: 5,
		Body: bytes.NewReader([]byte("hello")),
	})
	require.NoError(t, err)

	hist, err := history.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { hist.Close() })

	cfg := sync.NewConfig("test-bucket", "team/data", t.TempDir())
	cfg.Logger = discardLogger
	cfg.OnComplete = func(r *sync.SyncResult) {
		assert.NoError(t, hist.Record(context.Background(), r))
	}
	engine, err := sync.NewSyncEngine(cfg, store)
	require.NoError(t, err)

	routes, err := SetupRoutes(&RouteDeps{
		Ctx:     context.Background(),
		Engine:  engine,
		History: hist,
	}, &RouteConfig{AuthToken: token, RateLimit: "1000-S", Logger: discardLogger})
	require.NoError(t, err)
	return routes, store
}

func do(h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRoutes_Index(t *testing.T) {
	routes, _ := newTestRoutes(t, "secret")

	// index is public
	w := do(routes, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)

	var info version.Info
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, version.AppName, info.App)
}

func TestRoutes_RequireToken(t *testing.T) {
	routes, _ := newTestRoutes(t, "secret")

	assert.Equal(t, http.StatusUnauthorized, do(routes, http.MethodGet, "/v1/status", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(routes, http.MethodGet, "/v1/status", "wrong").Code)
	assert.Equal(t, http.StatusOK, do(routes, http.MethodGet, "/v1/status", "secret").Code)
}

func TestRoutes_PullAndHistory(t *testing.T) {
	routes, _ := newTestRoutes(t, "")

	assert.Equal(t, http.StatusAccepted, do(routes, http.MethodPost, "/v1/sync/pull", "").Code)

	w := do(routes, http.MethodPost, "/v1/sync/pull/wait", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.SyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Result)
	assert.Equal(t, 1, resp.Result.DownloadedFiles)

	w = do(routes, http.MethodGet, "/v1/sync/history?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	var hist handlers.HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	require.Len(t, hist.Runs, 1)
	assert.Equal(t, resp.Result.RunID, hist.Runs[0].ID)
}

func TestRoutes_NotFoundAndMethod(t *testing.T) {
	routes, _ := newTestRoutes(t, "")

	w := do(routes, http.MethodGet, "/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(routes, http.MethodGet, "/v1/sync/push", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestSetupRoutes_InvalidRate(t *testing.T) {
	_, err := SetupRoutes(&RouteDeps{}, &RouteConfig{RateLimit: "often"})
	assert.Error(t, err)
}
