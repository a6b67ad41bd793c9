package handlers

import "github.com/openmined/bucketsync/internal/client/sync"

type SyncRequest struct {
	DryRun bool `form:"dry_run"`
}

type SyncResponse struct {
	Code   string           `json:"code"`
	Result *sync.SyncResult `json:"result"`
	Error  string           `json:"error,omitempty"`
}

type PullStartedResponse struct {
	Code    string `json:"code"`
	Pending bool   `json:"pending"`
}
