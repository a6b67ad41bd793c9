package main

import (
	"log/slog"
	"net"

	"github.com/openmined/bucketsync/internal/client"
	"github.com/openmined/bucketsync/internal/client/config"
	"github.com/openmined/bucketsync/internal/utils"
	"github.com/spf13/cobra"
)

const generatedTokenLength = 32

func init() {
	rootCmd.AddCommand(newServeCmd())
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sync daemon and its control plane API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadValidConfig(cmd)
			if err != nil {
				return err
			}

			if err := ensureToken(cfg); err != nil {
				return err
			}

			store, err := newObjectStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			daemon, err := client.NewClientDaemon(cfg, store, slog.Default())
			if err != nil {
				return err
			}

			defer slog.Info("Bye!")
			return daemon.Start(cmd.Context())
		},
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringP("addr", "a", config.DefaultControlPlaneAddr, "control plane listen address")
	cmd.Flags().StringP("token", "t", "", "control plane access token")
	return cmd
}

// ensureToken generates an access token when the control plane is reachable beyond loopback without one.
func ensureToken(cfg *config.Config) error {
	if cfg.ControlPlane.Token != "" || isLoopback(cfg.ControlPlane.Addr) {
		return nil
	}

	token, err := utils.NewToken(generatedTokenLength)
	if err != nil {
		return err
	}
	cfg.ControlPlane.Token = token
	slog.Warn("control plane is not loopback-only, generated access token", "addr", cfg.ControlPlane.Addr, "token", token)
	return nil
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
