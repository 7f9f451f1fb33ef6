package chart

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartsync/internal/market"
)

func httpHandlerFunc(b *Broadcaster) http.Handler {
	return http.HandlerFunc(b.Handle)
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var f Frame
	require.NoError(t, json.Unmarshal(payload, &f))
	return f
}

func TestBroadcasterSendsSnapshotToLateJoiner(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	series := []market.Candle{
		{OpenTime: 1000, Close: 1.5},
		{OpenTime: 2000, Close: 2.5},
	}
	b.SetFullSeries(series)

	srv := httptest.NewServer(httpHandlerFunc(b))
	defer srv.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	f := readFrame(t, conn)
	assert.Equal(t, "set_full", f.Type)
	require.Len(t, f.Buckets, 2)
	assert.Equal(t, int64(2000), f.Buckets[1].OpenTime)
}

func TestBroadcasterFansOutIncrementalFrames(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	srv := httptest.NewServer(httpHandlerFunc(b))
	defer srv.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	last := market.Candle{OpenTime: 3000, Close: 3.1}
	b.UpdateLastBucket(last)
	b.AppendBuckets([]market.Candle{{OpenTime: 4000, Close: 4.2}})
	b.FitContent()
	b.Resize(1280)

	f := readFrame(t, conn)
	assert.Equal(t, "update_last", f.Type)
	require.NotNil(t, f.Bucket)
	assert.Equal(t, int64(3000), f.Bucket.OpenTime)

	f = readFrame(t, conn)
	assert.Equal(t, "append", f.Type)
	require.Len(t, f.Buckets, 1)

	f = readFrame(t, conn)
	assert.Equal(t, "fit", f.Type)

	f = readFrame(t, conn)
	assert.Equal(t, "resize", f.Type)
	assert.Equal(t, 1280, f.Width)
}

func TestBroadcasterAttachDuringSteadyStateUpdates(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()
	b.SetFullSeries([]market.Candle{{OpenTime: 1000, Close: 1}})

	srv := httptest.NewServer(httpHandlerFunc(b))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	// Hammer the trailing bucket while clients keep attaching; every joiner
	// must still receive a coherent snapshot as its first frame.
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				b.UpdateLastBucket(market.Candle{OpenTime: 1000, Close: float64(i)})
			}
		}
	}()

	for i := 0; i < 25; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		f := readFrame(t, conn)
		assert.Equal(t, "set_full", f.Type)
		require.Len(t, f.Buckets, 1)
		assert.Equal(t, int64(1000), f.Buckets[0].OpenTime)
		_ = conn.Close()
	}

	close(stop)
	<-done
}

func TestBroadcasterTracksSeriesForLateJoiners(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	b.SetFullSeries([]market.Candle{{OpenTime: 1000, Close: 1}})
	b.AppendBuckets([]market.Candle{{OpenTime: 2000, Close: 2}})
	b.UpdateLastBucket(market.Candle{OpenTime: 2000, Close: 2.5})

	srv := httptest.NewServer(httpHandlerFunc(b))
	defer srv.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	f := readFrame(t, conn)
	assert.Equal(t, "set_full", f.Type)
	require.Len(t, f.Buckets, 2)
	assert.Equal(t, 2.5, f.Buckets[1].Close)
}
