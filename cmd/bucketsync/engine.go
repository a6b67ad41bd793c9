package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/openmined/bucketsync/internal/blob"
	"github.com/openmined/bucketsync/internal/client/config"
	"github.com/openmined/bucketsync/internal/client/sync"
	"github.com/openmined/bucketsync/internal/history"
)

// newObjectStore is swapped for an in-memory store in tests.
var newObjectStore = func(ctx context.Context, cfg *config.Config) (blob.ObjectStore, error) {
	return blob.NewS3ClientWithConfig(ctx, cfg.BlobConfig())
}

type engineOptions struct {
	progress io.Writer
}

// openEngine builds an engine that records every run into the history database.
// The returned close func must be called once the engine is no longer used.
func openEngine(ctx context.Context, cfg *config.Config, opts engineOptions) (*sync.SyncEngine, func(), error) {
	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("object store: %w", err)
	}

	syncCfg := cfg.SyncConfig(slog.Default().With("component", "sync"))
	if opts.progress != nil {
		syncCfg.OnProgress = newProgressPrinter(opts.progress).Print
	}

	closeFn := func() {}
	hist, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		slog.Warn("history disabled", "error", err)
	} else {
		syncCfg.OnComplete = func(result *sync.SyncResult) {
			if err := hist.Record(context.Background(), result); err != nil {
				slog.Warn("failed to record sync run", "run", result.RunID, "error", err)
			}
		}
		closeFn = func() { hist.Close() }
	}

	engine, err := sync.NewSyncEngine(syncCfg, store)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return engine, closeFn, nil
}

// progressOutput returns stderr when it is a terminal, else nil.
func progressOutput() io.Writer {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return os.Stderr
	}
	return nil
}
