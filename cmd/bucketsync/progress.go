package main

import (
	"fmt"
	"io"

	"github.com/openmined/bucketsync/internal/client/sync"
)

// progressPrinter redraws a single status line per phase. Print is called synchronously by the
// scheduler, one event at a time.
type progressPrinter struct {
	w     io.Writer
	phase sync.Phase
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

func (p *progressPrinter) Print(event sync.SyncProgress) {
	if p.phase != "" && p.phase != event.Phase {
		fmt.Fprintln(p.w)
	}
	p.phase = event.Phase

	fmt.Fprintf(p.w, "\r\033[K%s %d/%d (%3.0f%%) %s", cyan(string(event.Phase)), event.Current, event.Total, event.Percentage, event.CurrentFile)
	if event.Current == event.Total {
		fmt.Fprintln(p.w)
		p.phase = ""
	}
}
