package series

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartsync/internal/market"
)

type stubSource struct {
	candles []market.Candle
	err     error
}

func (s *stubSource) FetchHistory(context.Context, string, string, int) ([]market.Candle, error) {
	return s.candles, s.err
}

func (s *stubSource) CurrentSymbol(context.Context) (string, error) { return "BTCUSDT", nil }

func (s *stubSource) Close() error { return nil }

func newTestSession(surface *recordSurface) *Session {
	return NewSession(SessionOptions{
		Symbol:  "BTCUSDT",
		Initial: Gran5m,
		Surface: surface,
		Source:  &stubSource{},
	})
}

func TestSupersededResultNeverMutatesCache(t *testing.T) {
	surface := &recordSurface{}
	s := newTestSession(surface)
	ctx := context.Background()

	tokenA := s.sup.Begin(ctx, "BTCUSDT", Gran5m, 100)
	tokenB := s.sup.Begin(ctx, "BTCUSDT", Gran5m, 100)
	require.NotEqual(t, tokenA, tokenB)

	// B was issued later but completes first: it is the live generation.
	fresh := []market.Candle{bucket(1000, 5), bucket(1300, 6)}
	s.handleResult(FetchResult{Token: tokenB, Granularity: Gran5m, Candles: fresh})
	assert.Equal(t, fresh, s.Snapshot())

	// A resolves afterwards; neither cache nor surface may observe it.
	stale := []market.Candle{bucket(9000, 66)}
	s.handleResult(FetchResult{Token: tokenA, Granularity: Gran5m, Candles: stale})

	assert.Equal(t, fresh, s.Snapshot())
	require.Len(t, surface.full, 1)
	assert.Equal(t, fresh, surface.full[0])
	assert.Empty(t, surface.updates)
	assert.Empty(t, surface.appends)
}

func TestGranularitySwitchClearsStaleData(t *testing.T) {
	surface := &recordSurface{}
	s := newTestSession(surface)
	ctx := context.Background()

	token := s.sup.Begin(ctx, "BTCUSDT", Gran5m, 100)
	seed := make([]market.Candle, 40)
	for i := range seed {
		seed[i] = bucket(int64(1000+i*300), float64(i))
	}
	s.handleResult(FetchResult{Token: token, Granularity: Gran5m, Candles: seed})
	require.Len(t, s.Snapshot(), 40)

	timer := s.applySwitch(ctx, Gran1h)
	timer.Stop()

	// Before the first 1h fetch resolves the cache holds zero buckets,
	// never a mixture of 5m and 1h data.
	assert.Equal(t, Gran1h, s.Active())
	assert.Empty(t, s.Snapshot())

	// The pre-switch generation is dead even if its fetch resolves now.
	assert.False(t, s.sup.Accept(token))
}

func TestSwitchResetsInitialLoad(t *testing.T) {
	surface := &recordSurface{}
	s := newTestSession(surface)
	ctx := context.Background()

	token := s.sup.Begin(ctx, "BTCUSDT", Gran5m, 100)
	s.handleResult(FetchResult{Token: token, Granularity: Gran5m, Candles: []market.Candle{bucket(1000, 1)}})
	assert.Equal(t, 1, surface.fits)

	timer := s.applySwitch(ctx, Gran15m)
	timer.Stop()
	surface.reset()

	first := []market.Candle{bucket(2000, 2), bucket(2900, 3)}
	s.handleResult(FetchResult{Token: s.sup.Current(), Granularity: Gran15m, Candles: first})

	// First post-switch result is a full replace with a fresh fit.
	require.Len(t, surface.full, 1)
	assert.Equal(t, 1, surface.fits)
	assert.Equal(t, first, s.Snapshot())
}

func TestTransportFailureLeavesCacheUntouched(t *testing.T) {
	surface := &recordSurface{}
	var reported error
	s := NewSession(SessionOptions{
		Symbol:  "BTCUSDT",
		Initial: Gran5m,
		Surface: surface,
		Source:  &stubSource{},
		OnError: func(err error) { reported = err },
	})
	ctx := context.Background()

	token := s.sup.Begin(ctx, "BTCUSDT", Gran5m, 100)
	seed := []market.Candle{bucket(1000, 1)}
	s.handleResult(FetchResult{Token: token, Granularity: Gran5m, Candles: seed})

	token = s.sup.Begin(ctx, "BTCUSDT", Gran5m, 100)
	fetchErr := errors.New("connection reset")
	s.handleResult(FetchResult{Token: token, Granularity: Gran5m, Err: fetchErr})

	assert.Equal(t, seed, s.Snapshot())
	assert.ErrorIs(t, reported, fetchErr)
	// Initial load already happened; the failure must not re-trigger a fit.
	assert.Equal(t, 1, surface.fits)
}

func TestRequestSupervisorDeliversResults(t *testing.T) {
	src := &stubSource{candles: []market.Candle{bucket(1000, 1)}}
	sup := NewRequestSupervisor(src)
	ctx := context.Background()

	token := sup.Begin(ctx, "BTCUSDT", Gran1m, 10)
	res := <-sup.Results()

	assert.Equal(t, token, res.Token)
	assert.True(t, sup.Accept(res.Token))
	assert.NoError(t, res.Err)
	assert.Equal(t, src.candles, res.Candles)
}
