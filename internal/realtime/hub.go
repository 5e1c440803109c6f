// Package realtime is the websocket pub/sub transport. Channels are keyed by
// identity ("restaurant:{uid}", "customer:{uid}"); the notifier publishes into
// them and connected apps receive order events live.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"swaad_backend/pkg/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// RestaurantChannel returns the channel name for a restaurant uid.
func RestaurantChannel(uid string) string { return "restaurant:" + uid }

// CustomerChannel returns the channel name for a customer uid.
func CustomerChannel(uid string) string { return "customer:" + uid }

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks websocket subscribers per channel.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*client]bool
	log      zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		channels: make(map[string]map[*client]bool),
		log:      utils.ComponentLogger("realtime"),
	}
}

type envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Publish sends an event to every subscriber of the channel. Slow subscribers
// are skipped; delivery here is best-effort.
func (h *Hub) Publish(channel, event string, payload interface{}) {
	message, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		h.log.Error().Err(err).Str("channel", channel).Str("event", event).Msg("Failed to encode event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.channels[channel] {
		select {
		case c.send <- message:
		default:
			h.log.Warn().Str("channel", channel).Msg("Subscriber send buffer full, message skipped")
		}
	}
}

// Subscribers returns the current subscriber count for a channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// HandleWS upgrades the request and attaches the connection to the channel
// until it closes.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request, channel string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 64)}
	h.register(channel, c)

	go c.writePump()
	go func() {
		c.readPump()
		h.unregister(channel, c)
	}()
}

func (h *Hub) register(channel string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[*client]bool)
	}
	h.channels[channel][c] = true
}

func (h *Hub) unregister(channel string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.channels[channel]; ok {
		if subs[c] {
			delete(subs, c)
			close(c.send)
		}
		if len(subs) == 0 {
			delete(h.channels, channel)
		}
	}
}

// readPump drains client messages; subscribers only listen, so anything read
// is discarded. It returns when the connection drops.
func (c *client) readPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(4 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
