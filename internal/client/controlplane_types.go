package client

import "log/slog"

// ControlPlaneConfig contains configuration for the control plane server
type ControlPlaneConfig struct {
	Addr      string       // Address to bind the control plane server
	AuthToken string       // Access token for the control plane server
	RateLimit string       // Per-client request rate, e.g. "10-S"
	Logger    *slog.Logger // Access log destination, slog.Default() when nil
}
