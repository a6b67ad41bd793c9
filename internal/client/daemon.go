package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openmined/bucketsync/internal/blob"
	"github.com/openmined/bucketsync/internal/client/config"
	"github.com/openmined/bucketsync/internal/client/sync"
	"github.com/openmined/bucketsync/internal/db"
	"github.com/openmined/bucketsync/internal/history"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// ClientDaemon owns a sync engine, its run history and the control plane that drives them.
type ClientDaemon struct {
	engine  *sync.SyncEngine
	history *history.Store
	cps     *ControlPlaneServer
	logger  *slog.Logger

	// ctx outlives individual requests and is canceled on Stop
	ctx    context.Context
	cancel context.CancelFunc
}

func NewClientDaemon(cfg *config.Config, store blob.ObjectStore, logger *slog.Logger) (*ClientDaemon, error) {
	if logger == nil {
		logger = slog.Default()
	}

	hist, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		return nil, err
	}
	logger.Debug("history open", "path", cfg.HistoryDBPath(), "driver", db.Driver())

	d := &ClientDaemon{
		history: hist,
		logger:  logger,
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())

	syncCfg := cfg.SyncConfig(logger.With("component", "sync"))
	syncCfg.OnComplete = d.record

	d.engine, err = sync.NewSyncEngine(syncCfg, store)
	if err != nil {
		hist.Close()
		return nil, err
	}

	d.cps, err = NewControlPlaneServer(&ControlPlaneConfig{
		Addr:      cfg.ControlPlane.Addr,
		AuthToken: cfg.ControlPlane.Token,
		Logger:    logger,
	}, &RouteDeps{
		Ctx:     d.ctx,
		Engine:  d.engine,
		History: hist,
	})
	if err != nil {
		hist.Close()
		return nil, err
	}

	return d, nil
}

func (d *ClientDaemon) Engine() *sync.SyncEngine { return d.engine }

// Addr is the control plane listen address, available once Start is serving.
func (d *ClientDaemon) Addr() string { return d.cps.Addr() }

func (d *ClientDaemon) Start(ctx context.Context) error {
	d.logger.Info("client daemon start", "workspace", d.engine.WorkspacePath(), "remote", d.engine.RemoteURL())

	// Create errgroup with derived context
	eg, egCtx := errgroup.WithContext(ctx)

	d.engine.StartBackgroundPull(d.ctx)

	eg.Go(func() error {
		if err := d.cps.Start(egCtx); err != nil {
			return fmt.Errorf("failed to start control plane: %w", err)
		}
		return nil
	})

	// Launch goroutine to handle shutdown on context cancellation
	eg.Go(func() error {
		<-egCtx.Done()
		d.logger.Info("stopping daemon")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return d.Stop(shutdownCtx)
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Error("client daemon failure", "error", err)
		return err
	}

	d.logger.Info("client daemon stopped")
	return nil
}

// Stop shuts the control plane down, cancels in-flight pulls and closes the history store.
func (d *ClientDaemon) Stop(ctx context.Context) error {
	var errs []error
	if err := d.cps.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop control plane: %w", err))
	}

	d.cancel()
	if _, err := d.engine.WaitForPull(ctx); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Warn("background pull ended with error", "error", err)
	}

	if err := d.history.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close history: %w", err))
	}
	return errors.Join(errs...)
}

func (d *ClientDaemon) record(result *sync.SyncResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.history.Record(ctx, result); err != nil {
		d.logger.Warn("failed to record sync run", "run", result.RunID, "error", err)
	}
}
