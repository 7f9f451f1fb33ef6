package series

import (
	"context"
	"sync"
	"time"

	"chartsync/internal/chart"
	"chartsync/internal/logger"
	"chartsync/internal/market"
)

// EventSink receives sync activity for persistence/ops. All methods must be
// cheap; nil sinks are allowed everywhere.
type EventSink interface {
	RecordSwitch(symbol string, g Granularity)
	RecordMerge(symbol string, g Granularity, stats MergeStats, cached int)
	RecordError(symbol string, g Granularity, err error)
}

// SessionOptions configures one synchronization session.
type SessionOptions struct {
	Symbol  string
	Initial Granularity
	Surface chart.Surface
	Source  market.Source

	Events  EventSink   // optional
	OnError func(error) // optional, transport failures for UI display

	DebounceQuiet time.Duration
	ResizeWindow  time.Duration

	nowFn func() time.Time
}

// Session keeps one symbol's candle cache in step with the remote source for
// the lifetime of one viewing session. All cache and token mutation happens on
// the Run goroutine; the select loop is the single serialization point, so the
// engine needs no locking beyond the snapshot copies handed to readers.
//
// State machine: idle -> loading(initial) -> polling, and back to
// loading(initial) on every granularity switch.
type Session struct {
	symbol   string
	surface  chart.Surface
	sup      *RequestSupervisor
	gate     *DebounceGate
	throttle *ResizeThrottle
	events   EventSink
	onError  func(error)
	nowFn    func() time.Time

	switchCh chan Granularity
	resizeCh chan int

	mu          sync.RWMutex
	cache       []market.Candle
	active      Granularity
	initialLoad bool
}

func NewSession(opts SessionOptions) *Session {
	if opts.nowFn == nil {
		opts.nowFn = time.Now
	}
	g := opts.Initial
	if _, ok := ParseGranularity(string(g)); !ok {
		g = Gran1m
	}
	return &Session{
		symbol:   opts.Symbol,
		surface:  opts.Surface,
		sup:      NewRequestSupervisor(opts.Source),
		gate:     NewDebounceGate(opts.DebounceQuiet),
		throttle: NewResizeThrottle(opts.ResizeWindow),
		events:   opts.Events,
		onError:  opts.OnError,
		nowFn:    opts.nowFn,
		switchCh: make(chan Granularity, 16),
		resizeCh: make(chan int, 16),
		active:   g,
	}
}

// RequestSwitch asks for a granularity change. Bursts settle through the
// debounce gate; only the last value within the quiet period takes effect.
func (s *Session) RequestSwitch(g Granularity) {
	select {
	case s.switchCh <- g:
	default:
		logger.Warnf("[sync] switch request dropped (queue full) symbol=%s g=%s", s.symbol, g)
	}
}

// OnResize feeds a viewport width change through the resize throttle.
func (s *Session) OnResize(width int) {
	select {
	case s.resizeCh <- width:
	default:
	}
}

// Active returns the granularity currently being synchronized.
func (s *Session) Active() Granularity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Snapshot returns a copy of the cached series.
func (s *Session) Snapshot() []market.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]market.Candle, len(s.cache))
	copy(out, s.cache)
	return out
}

// Symbol returns the symbol this session tracks.
func (s *Session) Symbol() string { return s.symbol }

// Run drives the session until ctx is canceled. It performs the initial load
// immediately, then polls at the active granularity's cadence.
func (s *Session) Run(ctx context.Context) error {
	poll := s.applySwitch(ctx, s.Active())
	defer poll.Stop()

	debounce := newStoppedTimer()
	defer debounce.Stop()
	resize := newStoppedTimer()
	defer resize.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Infof("[sync] session closed symbol=%s", s.symbol)
			return ctx.Err()

		case g := <-s.switchCh:
			wait := s.gate.Request(g, s.nowFn())
			resetTimer(debounce, wait)

		case <-debounce.C:
			g, ok := s.gate.Take(s.nowFn())
			if !ok {
				if s.gate.Pending() {
					// A later request pushed the deadline out; re-arm.
					resetTimer(debounce, s.gate.quietRemaining(s.nowFn()))
				}
				continue
			}
			poll.Stop()
			poll = s.applySwitch(ctx, g)

		case <-poll.C:
			cad := CadenceFor(s.Active())
			s.sup.Begin(ctx, s.symbol, s.Active(), cad.FetchLimit)
			poll.Reset(cad.PollInterval)

		case res := <-s.sup.Results():
			s.handleResult(res)

		case w := <-s.resizeCh:
			emit, wait := s.throttle.Offer(w, s.nowFn())
			if emit {
				s.forwardResize(w)
			} else {
				resetTimer(resize, wait)
			}

		case <-resize.C:
			if w, ok := s.throttle.Flush(s.nowFn()); ok {
				s.forwardResize(w)
			}
		}
	}
}

// applySwitch resets the session for g and issues the first fetch. The cache
// reset happens before the fetch is issued: even if a stale result slipped the
// token check it could only ever meet an empty cache, never mixed data.
func (s *Session) applySwitch(ctx context.Context, g Granularity) *time.Timer {
	s.mu.Lock()
	s.active = g
	s.cache = nil
	s.initialLoad = true
	s.mu.Unlock()

	if s.events != nil {
		s.events.RecordSwitch(s.symbol, g)
	}
	cad := CadenceFor(g)
	s.sup.Begin(ctx, s.symbol, g, cad.FetchLimit)
	logger.Infof("[sync] granularity=%s poll=%s limit=%d symbol=%s",
		g, cad.PollInterval, cad.FetchLimit, s.symbol)
	return time.NewTimer(cad.PollInterval)
}

func (s *Session) handleResult(res FetchResult) {
	if !s.sup.Accept(res.Token) {
		return
	}
	if res.Err != nil {
		logger.Warnf("[sync] fetch failed symbol=%s g=%s: %v", s.symbol, res.Granularity, res.Err)
		if s.events != nil {
			s.events.RecordError(s.symbol, res.Granularity, res.Err)
		}
		if s.onError != nil {
			s.onError(res.Err)
		}
		// Cache and view stay untouched; the next tick retries naturally.
		return
	}

	s.mu.Lock()
	next, stats := Merge(s.cache, res.Candles, s.initialLoad, s.surface)
	s.cache = next
	if stats.Kind != MergeNoop {
		s.initialLoad = false
	}
	cached := len(next)
	s.mu.Unlock()

	if stats.Anomaly {
		logger.Warnf("[sync] series anomaly, replaced wholesale symbol=%s g=%s cached=%d",
			s.symbol, res.Granularity, cached)
	} else {
		logger.Debugf("[sync] merged kind=%s appended=%d cached=%d %s",
			stats.Kind, stats.Appended, cached, market.Candles(res.Candles).Snapshot(string(res.Granularity)))
	}
	if s.events != nil {
		s.events.RecordMerge(s.symbol, res.Granularity, stats, cached)
	}
}

func (s *Session) forwardResize(width int) {
	if r, ok := s.surface.(chart.Resizable); ok {
		r.Resize(width)
	}
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return t
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	if d <= 0 {
		d = time.Millisecond
	}
	t.Reset(d)
}
