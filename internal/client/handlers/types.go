package handlers

import "github.com/gin-gonic/gin"

const (
	CodeOk                 string = "OK"
	CodePending            string = "PENDING"
	ErrCodeBadRequest      string = "ERR_BAD_REQUEST"
	ErrCodeUnknownError    string = "ERR_UNKNOWN_ERROR"
	ErrCodeSyncRunning     string = "ERR_SYNC_RUNNING"
	ErrCodeSyncFailed      string = "ERR_SYNC_FAILED"
	ErrCodeTimeout         string = "ERR_TIMEOUT"
	ErrCodeHistoryDisabled string = "ERR_HISTORY_DISABLED"
)

type ControlPlaneResponse struct {
	Code string `json:"code"`
}

type ControlPlaneError struct {
	ErrorCode string `json:"code"`
	Error     string `json:"error"`
}

func AbortWithError(c *gin.Context, status int, code string, err error) {
	c.Abort()
	c.Error(err)
	c.PureJSON(status, ControlPlaneError{
		ErrorCode: code,
		Error:     err.Error(),
	})
}
