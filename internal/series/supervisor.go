package series

import (
	"context"

	"chartsync/internal/logger"
	"chartsync/internal/market"
)

// FetchResult is what one completed fetch delivers back to the session loop.
// Token ties it to the generation that issued it.
type FetchResult struct {
	Token       FetchToken
	Granularity Granularity
	Candles     []market.Candle
	Err         error
}

// RequestSupervisor issues at most one logical fetch at a time. Begin mints a
// fresh token and supersedes whatever was outstanding; Accept tells the caller
// whether a completed result still belongs to the current generation.
// Supersession is logical: an in-flight HTTP call is not aborted, its result
// is simply ignored on arrival.
type RequestSupervisor struct {
	source  market.Source
	results chan FetchResult

	current FetchToken
}

func NewRequestSupervisor(src market.Source) *RequestSupervisor {
	return &RequestSupervisor{
		source: src,
		// Buffered so a stale fetch finishing late never blocks its goroutine.
		results: make(chan FetchResult, 8),
	}
}

// Results is the channel the session loop selects on.
func (rs *RequestSupervisor) Results() <-chan FetchResult {
	return rs.results
}

// Begin starts a new fetch generation for symbol at g and returns its token.
// Any previously outstanding token becomes stale immediately, before the new
// network call is even issued.
func (rs *RequestSupervisor) Begin(ctx context.Context, symbol string, g Granularity, limit int) FetchToken {
	token := newFetchToken()
	rs.current = token
	go func() {
		candles, err := rs.source.FetchHistory(ctx, symbol, g.Interval(), limit)
		select {
		case rs.results <- FetchResult{Token: token, Granularity: g, Candles: candles, Err: err}:
		case <-ctx.Done():
		}
	}()
	return token
}

// Accept reports whether token is the current generation. A false return is
// expected steady-state behavior (a newer fetch was issued since), not an error.
func (rs *RequestSupervisor) Accept(token FetchToken) bool {
	if token == rs.current {
		return true
	}
	logger.Debugf("[sync] superseded fetch result dropped token=%s", token)
	return false
}

// Current exposes the active token for introspection in tests and status APIs.
func (rs *RequestSupervisor) Current() FetchToken {
	return rs.current
}
