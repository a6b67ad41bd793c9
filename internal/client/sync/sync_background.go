package sync

import (
	"context"
)

// pullGeneration is one background pull. result and err are written once, before done closes.
type pullGeneration struct {
	done     chan struct{}
	result   *SyncResult
	err      error
	consumed bool
}

func (g *pullGeneration) settled() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

// StartBackgroundPull launches a pull without blocking. While one is pending further calls
// are no-ops. A settled pull is replaced by a new one. The pull runs until ctx is done or it
// finishes, independent of the caller.
func (se *SyncEngine) StartBackgroundPull(ctx context.Context, opts ...RunOption) {
	se.muPull.Lock()
	defer se.muPull.Unlock()

	if se.pull != nil && !se.pull.settled() {
		se.logger.Debug("background pull already pending")
		return
	}

	gen := &pullGeneration{done: make(chan struct{})}
	se.pull = gen
	runOpts := applyRunOptions(opts)

	go func() {
		se.muSync.Lock()
		defer se.muSync.Unlock()

		result, err := se.runPull(ctx, runOpts)

		se.muPull.Lock()
		gen.result, gen.err = result, err
		close(gen.done)
		se.muPull.Unlock()
	}()
}

// WaitForPull blocks until the current background pull settles. With no background pull
// it returns (nil, nil) at once. The pull's error is returned only to the first caller
// after it settles; later callers get the cached result with a nil error.
func (se *SyncEngine) WaitForPull(ctx context.Context) (*SyncResult, error) {
	se.muPull.Lock()
	gen := se.pull
	se.muPull.Unlock()

	if gen == nil {
		return nil, nil
	}

	select {
	case <-gen.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	se.muPull.Lock()
	defer se.muPull.Unlock()
	if gen.consumed {
		return gen.result, nil
	}
	gen.consumed = true
	return gen.result, gen.err
}

// IsPullComplete reports whether no background pull is pending.
func (se *SyncEngine) IsPullComplete() bool {
	se.muPull.Lock()
	defer se.muPull.Unlock()
	return se.pull == nil || se.pull.settled()
}

func (se *SyncEngine) discardSettledPull() {
	se.muPull.Lock()
	defer se.muPull.Unlock()
	if se.pull != nil && se.pull.settled() {
		se.pull = nil
	}
}
