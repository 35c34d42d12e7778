package reconnect

import (
	"sync"
	"time"
)

// DefaultPeriod is how long a close keeps counting towards the frequency.
const DefaultPeriod = 60 * time.Second

// Window is a sliding window of close timestamps. Entries older than the
// period are evicted whenever the window is read.
type Window struct {
	mu      sync.Mutex
	period  time.Duration
	entries []time.Time
}

// NewWindow creates a window. A non-positive period selects DefaultPeriod.
func NewWindow(period time.Duration) *Window {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Window{period: period}
}

// Record adds a close at t. Timestamps are expected in non-decreasing order.
func (w *Window) Record(t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, t)
}

// Frequency returns the number of closes with now-ts < period.
func (w *Window) Frequency(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := 0
	for start < len(w.entries) && now.Sub(w.entries[start]) >= w.period {
		start++
	}
	if start > 0 {
		w.entries = w.entries[start:]
	}
	return len(w.entries)
}

// Len returns the number of tracked timestamps without evicting.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// Period returns the window length.
func (w *Window) Period() time.Duration { return w.period }
