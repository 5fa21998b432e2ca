package memory

import (
	"context"
	"sync"

	"finclient/internal/aggregate"
)

// Writer keeps the last written report in memory.
type Writer struct {
	mu     sync.Mutex
	last   aggregate.Report
	writes int
}

func New() *Writer {
	return &Writer{}
}

func (w *Writer) WriteReport(_ context.Context, r aggregate.Report) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = r
	w.writes++
	return nil
}

// Last returns the most recent report and whether any was written.
func (w *Writer) Last() (aggregate.Report, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last, w.writes > 0
}

func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}
