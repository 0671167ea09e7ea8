package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dmfesta/tradeacademy/internal/models"
	"github.com/dmfesta/tradeacademy/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// MarketFeed supplies fresh quotes for each broadcast tick.
type MarketFeed interface {
	NudgePrices(ctx context.Context) ([]models.MarketPrice, error)
}

// tickMessage is the frame pushed to every connected client.
type tickMessage struct {
	Type   string               `json:"type"`
	Quotes []models.MarketPrice `json:"quotes"`
	At     time.Time            `json:"at"`
}

// Hub fans market ticks out to connected websocket clients. One goroutine
// owns the client set; register, unregister and broadcast all go through
// channels.
type Hub struct {
	feed     MarketFeed
	interval time.Duration
	log      *zap.Logger

	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan []byte

	once sync.Once
	done chan struct{}
}

// NewHub constructs a Hub that ticks at the given interval.
func NewHub(feed MarketFeed, interval time.Duration) *Hub {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Hub{
		feed:       feed,
		interval:   interval,
		log:        logger.WithModule("realtime"),
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 8),
		done:       make(chan struct{}),
	}
}

// Run drives the hub until ctx is cancelled. It owns both the client set and
// the market tick loop.
func (h *Hub) Run(ctx context.Context) {
	defer h.once.Do(func() { close(h.done) })

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				c.close()
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.close()
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow consumer, drop it.
					delete(h.clients, c)
					c.close()
				}
			}
		case <-ticker.C:
			if len(h.clients) == 0 {
				continue
			}
			quotes, err := h.feed.NudgePrices(ctx)
			if err != nil {
				h.log.Warn("market tick failed", zap.Error(err))
				continue
			}
			frame, err := json.Marshal(tickMessage{
				Type:   "market_tick",
				Quotes: quotes,
				At:     time.Now().UTC(),
			})
			if err != nil {
				h.log.Warn("encode tick failed", zap.Error(err))
				continue
			}
			for c := range h.clients {
				select {
				case c.send <- frame:
				default:
					delete(h.clients, c)
					c.close()
				}
			}
		}
	}
}

// Serve attaches a websocket connection to the hub and blocks until the
// client disconnects. Connections arriving after the hub stopped are
// closed immediately.
func (h *Hub) Serve(conn *websocket.Conn) {
	c := &client{
		conn: conn,
		send: make(chan []byte, 16),
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	c.readPump(h)
}

type client struct {
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// readPump discards inbound frames; the feed is broadcast-only. It exists to
// service pongs and to detect disconnects.
func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
