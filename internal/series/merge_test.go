package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartsync/internal/market"
)

type recordSurface struct {
	full    [][]market.Candle
	updates []market.Candle
	appends [][]market.Candle
	fits    int
}

func (r *recordSurface) SetFullSeries(buckets []market.Candle) {
	cp := make([]market.Candle, len(buckets))
	copy(cp, buckets)
	r.full = append(r.full, cp)
}

func (r *recordSurface) UpdateLastBucket(bucket market.Candle) {
	r.updates = append(r.updates, bucket)
}

func (r *recordSurface) AppendBuckets(buckets []market.Candle) {
	cp := make([]market.Candle, len(buckets))
	copy(cp, buckets)
	r.appends = append(r.appends, cp)
}

func (r *recordSurface) FitContent() { r.fits++ }

func (r *recordSurface) reset() { *r = recordSurface{} }

func bucket(openTime int64, close float64) market.Candle {
	return market.Candle{OpenTime: openTime, CloseTime: openTime + 59_999, Close: close}
}

func TestMergeInitialLoadFullReplaceAndFit(t *testing.T) {
	surface := &recordSurface{}
	fetched := []market.Candle{bucket(1000, 10), bucket(1060, 11)}

	cache, stats := Merge(nil, fetched, true, surface)

	assert.Equal(t, MergeFullReplace, stats.Kind)
	assert.False(t, stats.Anomaly)
	require.Len(t, surface.full, 1)
	assert.Equal(t, 1, surface.fits)
	assert.Empty(t, surface.updates)
	assert.Empty(t, surface.appends)
	assert.Equal(t, fetched, cache)
}

func TestMergeSteadyStateUpdateThenAppend(t *testing.T) {
	surface := &recordSurface{}
	prev := []market.Candle{bucket(940, 9), bucket(1000, 10)}
	fetched := []market.Candle{bucket(1000, 11), bucket(1060, 12)}

	cache, stats := Merge(prev, fetched, false, surface)

	assert.Equal(t, MergeAppend, stats.Kind)
	assert.Equal(t, 1, stats.Appended)
	require.Len(t, surface.updates, 1)
	assert.Equal(t, bucket(1000, 11), surface.updates[0])
	require.Len(t, surface.appends, 1)
	assert.Equal(t, []market.Candle{bucket(1060, 12)}, surface.appends[0])
	assert.Empty(t, surface.full)
	assert.Equal(t, 0, surface.fits)
	assert.Equal(t, []market.Candle{bucket(940, 9), bucket(1000, 11), bucket(1060, 12)}, cache)
}

func TestMergeSameTrailingBucketUpdatesInPlace(t *testing.T) {
	surface := &recordSurface{}
	prev := []market.Candle{bucket(940, 9), bucket(1000, 10)}
	fetched := []market.Candle{bucket(940, 9), bucket(1000, 10.5)}

	cache, stats := Merge(prev, fetched, false, surface)

	assert.Equal(t, MergeUpdateLast, stats.Kind)
	require.Len(t, surface.updates, 1)
	assert.Equal(t, bucket(1000, 10.5), surface.updates[0])
	assert.Empty(t, surface.full)
	assert.Empty(t, surface.appends)
	assert.Equal(t, []market.Candle{bucket(940, 9), bucket(1000, 10.5)}, cache)
}

func TestMergeIdempotent(t *testing.T) {
	surface := &recordSurface{}
	prev := []market.Candle{bucket(940, 9), bucket(1000, 10)}
	fetched := []market.Candle{bucket(1000, 11), bucket(1060, 12)}

	once, _ := Merge(prev, fetched, false, surface)
	twice, stats := Merge(once, fetched, false, surface)

	assert.Equal(t, MergeUpdateLast, stats.Kind)
	assert.Equal(t, once, twice)
}

func TestMergeRollbackFallsBackToFullReplace(t *testing.T) {
	surface := &recordSurface{}
	prev := []market.Candle{bucket(1940, 9), bucket(2000, 10)}
	fetched := []market.Candle{bucket(1440, 7), bucket(1500, 8)}

	cache, stats := Merge(prev, fetched, false, surface)

	assert.Equal(t, MergeFullReplace, stats.Kind)
	assert.True(t, stats.Anomaly)
	require.Len(t, surface.full, 1)
	assert.Empty(t, surface.updates)
	assert.Empty(t, surface.appends)
	// No fit outside initial load.
	assert.Equal(t, 0, surface.fits)
	assert.Equal(t, fetched, cache)
}

func TestMergeGapFallsBackToFullReplace(t *testing.T) {
	surface := &recordSurface{}
	prev := []market.Candle{bucket(940, 9), bucket(1000, 10)}
	// Cached tail (1000) is absent from the response: long stall.
	fetched := []market.Candle{bucket(5000, 20), bucket(5060, 21)}

	cache, stats := Merge(prev, fetched, false, surface)

	assert.Equal(t, MergeFullReplace, stats.Kind)
	assert.True(t, stats.Anomaly)
	require.Len(t, surface.full, 1)
	assert.Equal(t, fetched, cache)
}

func TestMergeEmptyFetchKeepsCache(t *testing.T) {
	surface := &recordSurface{}
	prev := []market.Candle{bucket(1000, 10)}

	cache, stats := Merge(prev, nil, false, surface)

	assert.Equal(t, MergeNoop, stats.Kind)
	assert.Empty(t, surface.full)
	assert.Equal(t, prev, cache)
}

func TestMergeEmptyCacheNonInitialReplacesWithoutFit(t *testing.T) {
	surface := &recordSurface{}
	fetched := []market.Candle{bucket(1000, 10)}

	cache, stats := Merge(nil, fetched, false, surface)

	assert.Equal(t, MergeFullReplace, stats.Kind)
	require.Len(t, surface.full, 1)
	assert.Equal(t, 0, surface.fits)
	assert.Equal(t, fetched, cache)
}
