package chart

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"chartsync/internal/logger"
	"chartsync/internal/market"
)

// Frame is one primitive on the wire, tagged by type:
// set_full | update_last | append | fit | resize.
type Frame struct {
	Type    string          `json:"type"`
	Buckets []market.Candle `json:"buckets,omitempty"`
	Bucket  *market.Candle  `json:"bucket,omitempty"`
	Width   int             `json:"width,omitempty"`
}

// Broadcaster implements Surface over websockets: every primitive becomes a
// JSON frame fanned out to all connected chart clients. Late joiners receive
// the last full series before the incremental stream, so a browser can attach
// mid-session without waiting for the next full replace.
type Broadcaster struct {
	upgrader websocket.Upgrader

	mu       sync.Mutex
	clients  map[*client]struct{}
	lastFull []market.Candle
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

const clientSendBuffer = 64

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Handle upgrades an HTTP request into a chart stream connection.
func (b *Broadcaster) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("[chart] ws upgrade failed: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientSendBuffer)}

	// The snapshot is marshaled under the lock: UpdateLastBucket rewrites the
	// trailing candle in place, so lastFull must not be read outside it. The
	// client joins the map only after its snapshot is queued, so broadcast
	// cannot close c.send while the fresh buffered channel is being filled.
	b.mu.Lock()
	if len(b.lastFull) > 0 {
		if payload, err := json.Marshal(Frame{Type: "set_full", Buckets: b.lastFull}); err == nil {
			c.send <- payload
		}
	}
	b.clients[c] = struct{}{}
	b.mu.Unlock()

	go c.writeLoop(b)
	go c.readLoop(b)
	logger.Debugf("[chart] ws client attached remote=%s", conn.RemoteAddr())
}

// ClientCount reports the number of attached chart clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

func (b *Broadcaster) SetFullSeries(buckets []market.Candle) {
	b.mu.Lock()
	b.lastFull = buckets
	b.mu.Unlock()
	b.broadcast(Frame{Type: "set_full", Buckets: buckets})
}

func (b *Broadcaster) UpdateLastBucket(bucket market.Candle) {
	b.mu.Lock()
	if n := len(b.lastFull); n > 0 && b.lastFull[n-1].OpenTime == bucket.OpenTime {
		b.lastFull[n-1] = bucket
	}
	b.mu.Unlock()
	b.broadcast(Frame{Type: "update_last", Bucket: &bucket})
}

func (b *Broadcaster) AppendBuckets(buckets []market.Candle) {
	if len(buckets) == 0 {
		return
	}
	b.mu.Lock()
	b.lastFull = append(b.lastFull, buckets...)
	b.mu.Unlock()
	b.broadcast(Frame{Type: "append", Buckets: buckets})
}

func (b *Broadcaster) FitContent() {
	b.broadcast(Frame{Type: "fit"})
}

func (b *Broadcaster) Resize(width int) {
	b.broadcast(Frame{Type: "resize", Width: width})
}

// Close disconnects all clients.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		close(c.send)
		delete(b.clients, c)
	}
}

func (b *Broadcaster) broadcast(f Frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		logger.Errorf("[chart] frame marshal failed: %v", err)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		select {
		case c.send <- payload:
		default:
			// Slow consumer: drop it rather than stall the sync loop.
			close(c.send)
			delete(b.clients, c)
		}
	}
}

func (b *Broadcaster) drop(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		close(c.send)
		delete(b.clients, c)
	}
	b.mu.Unlock()
	_ = c.conn.Close()
}

func (c *client) writeLoop(b *Broadcaster) {
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			b.drop(c)
			return
		}
	}
	_ = c.conn.Close()
}

// readLoop drains control frames and detects disconnects.
func (c *client) readLoop(b *Broadcaster) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			b.drop(c)
			return
		}
	}
}
