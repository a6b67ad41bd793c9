package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openmined/bucketsync/internal/history"
)

type HistoryRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

type HistoryResponse struct {
	Runs []*history.Run `json:"runs"`
}

type HistoryHandler struct {
	store *history.Store
}

func NewHistoryHandler(store *history.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// List returns the most recent runs, newest first.
func (h *HistoryHandler) List(c *gin.Context) {
	if h.store == nil {
		AbortWithError(c, http.StatusServiceUnavailable, ErrCodeHistoryDisabled, errors.New("history is disabled"))
		return
	}

	var req HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
		return
	}

	runs, err := h.store.Recent(c.Request.Context(), req.Limit)
	if err != nil {
		AbortWithError(c, http.StatusInternalServerError, ErrCodeUnknownError, err)
		return
	}

	c.PureJSON(http.StatusOK, HistoryResponse{Runs: runs})
}
