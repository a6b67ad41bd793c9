package sync

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// TransferItem is one unit of work for the scheduler.
type TransferItem struct {
	RelativePath string
	Key          string
	Size         int64
	Fingerprint  string
	ContentType  string
}

// TransferFailure pairs an item with the error that failed it.
type TransferFailure struct {
	Item *TransferItem
	Err  error
}

func (f *TransferFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Item.RelativePath, f.Err)
}

func (f *TransferFailure) Unwrap() error {
	return f.Err
}

// TransferReport summarizes a scheduler run. Failed is in submission order.
type TransferReport struct {
	Completed int
	Failed    []*TransferFailure
}

// TransferFunc performs a single transfer. The context it receives is not canceled
// when the run is, so an item that already started is allowed to finish.
type TransferFunc func(ctx context.Context, item *TransferItem) error

// TransferScheduler runs transfers through a bounded worker pool.
type TransferScheduler struct {
	concurrency int
	phase       Phase
	onProgress  ProgressFunc
}

func NewTransferScheduler(concurrency int, phase Phase, onProgress ProgressFunc) (*TransferScheduler, error) {
	if concurrency <= 0 {
		return nil, fmt.Errorf("%w: concurrency must be positive, got %d", ErrInvalidConfig, concurrency)
	}
	return &TransferScheduler{
		concurrency: concurrency,
		phase:       phase,
		onProgress:  onProgress,
	}, nil
}

// Run executes op for every item with at most s.concurrency in flight. Items start in
// submission order. A failing item never stops its siblings. Once ctx is done no further
// items start and the unstarted ones are reported failed with the context error.
func (s *TransferScheduler) Run(ctx context.Context, items []*TransferItem, op TransferFunc) *TransferReport {
	total := len(items)
	failures := make([]*TransferFailure, total)
	report := &TransferReport{}

	var mu sync.Mutex
	processed := 0

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	opCtx := context.WithoutCancel(ctx)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			for j := i; j < total; j++ {
				failures[j] = &TransferFailure{Item: items[j], Err: err}
			}
			break
		}

		g.Go(func() error {
			err := op(opCtx, item)

			mu.Lock()
			defer mu.Unlock()

			processed++
			if err != nil {
				failures[i] = &TransferFailure{Item: item, Err: err}
			} else {
				report.Completed++
			}
			if s.onProgress != nil {
				event := newProgress(s.phase, processed, total, item.RelativePath)
				event.ContentType = item.ContentType
				s.onProgress(event)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, f := range failures {
		if f != nil {
			report.Failed = append(report.Failed, f)
		}
	}
	return report
}
