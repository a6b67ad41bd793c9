package sync

import (
	"sync"
)

const (
	progressMin             = 0.0
	progressMax             = 100.0
	progressEventBufferSize = 16
)

// Phase names the stage of a sync a progress event belongs to.
type Phase string

const (
	PhaseDownload Phase = "download"
	PhaseUpload   Phase = "upload"
	PhaseCleanup  Phase = "cleanup"
)

// SyncProgress is emitted after every transfer or delete finishes, successful or not.
type SyncProgress struct {
	Phase       Phase   `json:"phase"`
	Current     int     `json:"current"`
	Total       int     `json:"total"`
	Percentage  float64 `json:"percentage"`
	CurrentFile string  `json:"currentFile,omitempty"`
	// ContentType of the file just transferred. Downloads report the type stored with the object.
	ContentType string `json:"contentType,omitempty"`
}

// ProgressFunc receives progress events. It is called synchronously and must not block.
type ProgressFunc func(SyncProgress)

func newProgress(phase Phase, current, total int, file string) SyncProgress {
	pct := progressMax
	if total > 0 {
		pct = float64(current) * progressMax / float64(total)
	}
	pct = max(progressMin, min(progressMax, pct))
	return SyncProgress{
		Phase:       phase,
		Current:     current,
		Total:       total,
		Percentage:  pct,
		CurrentFile: file,
	}
}

// ProgressBroadcaster fans progress events out to subscribers.
// Delivery is best effort: a subscriber whose buffer is full misses the event.
type ProgressBroadcaster struct {
	subs []chan SyncProgress
	mu   sync.RWMutex
}

func NewProgressBroadcaster() *ProgressBroadcaster {
	return &ProgressBroadcaster{
		subs: make([]chan SyncProgress, 0),
	}
}

// Subscribe returns a channel for receiving progress events
func (b *ProgressBroadcaster) Subscribe() <-chan SyncProgress {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan SyncProgress, progressEventBufferSize)
	b.subs = append(b.subs, ch)
	return ch
}

// Unsubscribe removes a subscription channel and closes it
func (b *ProgressBroadcaster) Unsubscribe(ch <-chan SyncProgress) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub == ch {
			close(sub)
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			break
		}
	}
}

// Publish sends an event to all subscribers without blocking.
func (b *ProgressBroadcaster) Publish(event SyncProgress) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		select {
		case sub <- event:
		default:
			// Channel is full, skip to avoid blocking
		}
	}
}

func (b *ProgressBroadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
