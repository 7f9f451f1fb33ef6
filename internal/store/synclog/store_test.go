package synclog

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartsync/internal/series"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "synclog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreRecordsAndReadsBack(t *testing.T) {
	s := newTestStore(t)

	s.RecordSwitch("BTCUSDT", series.Gran1h)
	s.RecordMerge("BTCUSDT", series.Gran1h, series.MergeStats{Kind: series.MergeFullReplace, Appended: 300}, 300)
	s.RecordMerge("BTCUSDT", series.Gran1h, series.MergeStats{Kind: series.MergeUpdateLast}, 300)
	s.RecordError("BTCUSDT", series.Gran1h, errors.New("timeout"))

	events, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, events, 4)

	// Newest first.
	assert.Equal(t, "fetch_error", events[0].Kind)
	assert.Equal(t, "update_last", events[1].Kind)
	assert.Equal(t, "full_replace", events[2].Kind)
	assert.Equal(t, "switch", events[3].Kind)
	assert.Equal(t, "BTCUSDT", events[0].Symbol)
	assert.Contains(t, string(events[0].Detail), "timeout")
	assert.Contains(t, string(events[2].Detail), `"appended":300`)
}

func TestRecentLimit(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		s.RecordSwitch("ETHUSDT", series.Gran5m)
	}
	events, err := s.Recent(3)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}
