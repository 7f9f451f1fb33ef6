package seriesdump

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartsync/internal/market"
)

func TestDumpReplacesAndLoadsAscending(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "series.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	first := []market.Candle{
		{OpenTime: 2000, CloseTime: 2999, Open: 2, High: 3, Low: 1, Close: 2.5, Volume: 10, Trades: 4},
		{OpenTime: 1000, CloseTime: 1999, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 20, Trades: 7},
	}
	require.NoError(t, s.Dump(ctx, "BTCUSDT", "1h", first))

	got, err := s.Load(ctx, "BTCUSDT", "1h")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1000), got[0].OpenTime)
	assert.Equal(t, int64(2000), got[1].OpenTime)

	// A later dump replaces the previous snapshot outright.
	second := []market.Candle{{OpenTime: 5000, CloseTime: 5999, Close: 9}}
	require.NoError(t, s.Dump(ctx, "BTCUSDT", "1h", second))
	got, err = s.Load(ctx, "BTCUSDT", "1h")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(5000), got[0].OpenTime)

	// Other keys untouched.
	other, err := s.Load(ctx, "BTCUSDT", "5m")
	require.NoError(t, err)
	assert.Empty(t, other)
}
