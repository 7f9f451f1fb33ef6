package series

import (
	"sync"
	"time"
)

// DefaultDebounceQuiet is the quiet period a burst of granularity switches
// must respect before the last one takes effect.
const DefaultDebounceQuiet = 300 * time.Millisecond

// DebounceGate collapses rapid granularity switches into one. Only the last
// requested granularity within a burst is ever applied; intermediate values
// are never queued. The gate holds a pending deadline plus the latest value,
// so tests drive it with explicit clock readings instead of wall-time sleeps.
type DebounceGate struct {
	quiet time.Duration

	mu       sync.Mutex
	pending  bool
	target   Granularity
	deadline time.Time
}

func NewDebounceGate(quiet time.Duration) *DebounceGate {
	if quiet <= 0 {
		quiet = DefaultDebounceQuiet
	}
	return &DebounceGate{quiet: quiet}
}

// Request records target as the pending switch and pushes the deadline out by
// the quiet period. Returns how long the caller should wait before probing
// Take again; an earlier pending switch is overwritten, never queued.
func (g *DebounceGate) Request(target Granularity, now time.Time) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = true
	g.target = target
	g.deadline = now.Add(g.quiet)
	return g.quiet
}

// Take returns the settled granularity once the quiet period has elapsed.
// Before the deadline it reports false and leaves the pending switch intact.
func (g *DebounceGate) Take(now time.Time) (Granularity, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.pending || now.Before(g.deadline) {
		return "", false
	}
	g.pending = false
	return g.target, true
}

// quietRemaining reports how long until the pending switch settles.
func (g *DebounceGate) quietRemaining(now time.Time) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.pending {
		return 0
	}
	d := g.deadline.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Pending reports whether a switch is waiting out its quiet period.
func (g *DebounceGate) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending
}
