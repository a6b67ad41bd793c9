package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openmined/bucketsync/internal/client/sync"
)

type SyncHandler struct {
	// background pulls outlive the request that starts them
	ctx    context.Context
	engine *sync.SyncEngine
}

func NewSyncHandler(ctx context.Context, engine *sync.SyncEngine) *SyncHandler {
	return &SyncHandler{ctx: ctx, engine: engine}
}

// StartPull launches a background pull. While one is pending this is a no-op.
func (h *SyncHandler) StartPull(c *gin.Context) {
	opts, ok := bindRunOptions(c)
	if !ok {
		return
	}

	h.engine.StartBackgroundPull(h.ctx, opts...)

	c.PureJSON(http.StatusAccepted, PullStartedResponse{
		Code:    CodePending,
		Pending: !h.engine.IsPullComplete(),
	})
}

// WaitPull blocks until the background pull settles and returns its result.
func (h *SyncHandler) WaitPull(c *gin.Context) {
	result, err := h.engine.WaitForPull(c.Request.Context())
	if err != nil && result == nil {
		AbortWithError(c, http.StatusGatewayTimeout, ErrCodeTimeout, err)
		return
	}
	respondResult(c, result, err)
}

// Push uploads local changes and returns once every transfer has finished.
func (h *SyncHandler) Push(c *gin.Context) {
	opts, ok := bindRunOptions(c)
	if !ok {
		return
	}

	result, err := h.engine.Push(c.Request.Context(), opts...)
	respondResult(c, result, err)
}

// Events streams progress of every pull and push as server-sent events.
func (h *SyncHandler) Events(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	eventCh := h.engine.Subscribe()
	defer h.engine.Unsubscribe(eventCh)

	ctx := c.Request.Context()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-eventCh:
			if !ok {
				return false
			}
			c.SSEvent("progress", event)
			return true
		}
	})
}

func bindRunOptions(c *gin.Context) ([]sync.RunOption, bool) {
	var req SyncRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
		return nil, false
	}

	var opts []sync.RunOption
	if req.DryRun {
		opts = append(opts, sync.WithDryRun())
	}
	return opts, true
}

func respondResult(c *gin.Context, result *sync.SyncResult, err error) {
	switch {
	case errors.Is(err, sync.ErrSyncAlreadyRunning):
		AbortWithError(c, http.StatusConflict, ErrCodeSyncRunning, err)
	case err != nil:
		c.Error(err)
		c.PureJSON(http.StatusBadGateway, SyncResponse{
			Code:   ErrCodeSyncFailed,
			Result: result,
			Error:  err.Error(),
		})
	default:
		c.PureJSON(http.StatusOK, SyncResponse{
			Code:   CodeOk,
			Result: result,
		})
	}
}
