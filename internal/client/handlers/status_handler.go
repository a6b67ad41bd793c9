package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openmined/bucketsync/internal/client/sync"
	"github.com/openmined/bucketsync/internal/version"
)

// StatusHandler handles status-related endpoints
type StatusHandler struct {
	engine    *sync.SyncEngine
	startedAt time.Time
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(engine *sync.SyncEngine) *StatusHandler {
	return &StatusHandler{
		engine:    engine,
		startedAt: time.Now().UTC(),
	}
}

// Status returns the status of the service and the sync engine
func (h *StatusHandler) Status(ctx *gin.Context) {
	// this is unlikely to happen, but just in case
	if h.engine == nil {
		ctx.PureJSON(http.StatusServiceUnavailable, &ControlPlaneError{
			ErrorCode: ErrCodeUnknownError,
			Error:     "sync engine not initialized",
		})
		return
	}

	ctx.PureJSON(http.StatusOK, &StatusResponse{
		Status:       "ok",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Version:      version.Version,
		Revision:     version.Revision,
		BuildDate:    version.BuildDate,
		StartedAt:    h.startedAt.Format(time.RFC3339),
		Workspace:    h.engine.WorkspacePath(),
		Remote:       h.engine.RemoteURL(),
		PullComplete: h.engine.IsPullComplete(),
	})
}
