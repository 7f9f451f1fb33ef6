package series

import (
	"sync"
	"time"
)

// DefaultResizeWindow bounds how often viewport size changes reach the chart.
const DefaultResizeWindow = 150 * time.Millisecond

// ResizeThrottle forwards at most one viewport width per window. The first
// call in an open window passes through immediately; later calls are coalesced
// to the latest value, released by Flush once the window elapses. Not
// correctness critical, it only bounds re-layout cost.
type ResizeThrottle struct {
	window time.Duration

	mu      sync.Mutex
	opensAt time.Time
	held    bool
	latest  int
}

func NewResizeThrottle(window time.Duration) *ResizeThrottle {
	if window <= 0 {
		window = DefaultResizeWindow
	}
	return &ResizeThrottle{window: window}
}

// Offer hands in a new width. When emit is true the caller applies width now;
// otherwise the value is held and Flush should be probed after wait.
func (t *ResizeThrottle) Offer(width int, now time.Time) (emit bool, wait time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !now.Before(t.opensAt) {
		t.opensAt = now.Add(t.window)
		t.held = false
		return true, 0
	}
	t.held = true
	t.latest = width
	return false, t.opensAt.Sub(now)
}

// Flush releases the coalesced width once the window has elapsed and opens a
// fresh window. Returns false while the window is open or nothing is held.
func (t *ResizeThrottle) Flush(now time.Time) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.held || now.Before(t.opensAt) {
		return 0, false
	}
	t.held = false
	t.opensAt = now.Add(t.window)
	return t.latest, true
}
