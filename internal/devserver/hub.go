/*
Package devserver is an in-process implementation of the blog backend contract.

This file defines the push hub behind the /update endpoint. Connected clients
receive a full posts envelope on connect, then incremental newPost, updatePost,
and deletePost envelopes as mutations land. One broadcast path fans out to
buffered per-client queues; a client that cannot keep up is dropped.
*/
package devserver

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"miniblog/internal/pkg/logx"
)

const (
	// hubWriteWait bounds a single write to a subscriber.
	hubWriteWait = 10 * time.Second

	// hubPongWait is how long the hub waits for a Pong before dropping a subscriber.
	hubPongWait = 60 * time.Second

	// hubPingPeriod is the heartbeat interval. Must be below hubPongWait.
	hubPingPeriod = (hubPongWait * 9) / 10

	// subscriberQueueSize is the per-client outbound buffer.
	subscriberQueueSize = 64
)

// pushEnvelope is the wire format of a hub message.
type pushEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// subscriber is one connected /update client.
type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks subscribers and fans broadcast envelopes out to them.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	closed      bool

	logger zerolog.Logger
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		logger:      logx.Logger().With().Str("component", "push_hub").Logger(),
	}
}

// Register adopts an upgraded connection. The snapshot callback builds the
// initial envelope (the full post collection) and runs under the registration
// lock: a broadcast cannot land between the snapshot and the subscription, so
// every subscriber starts from a known state and misses nothing after it.
func (h *Hub) Register(conn *websocket.Conn, snapshot func() (pushEnvelope, error)) {
	h.mu.Lock()

	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}

	initial, err := snapshot()
	if err != nil {
		h.mu.Unlock()
		h.logger.Error().Err(err).Msg("Failed to build initial envelope")
		conn.Close()
		return
	}

	raw, err := json.Marshal(initial)
	if err != nil {
		h.mu.Unlock()
		h.logger.Error().Err(err).Msg("Failed to marshal initial envelope")
		conn.Close()
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan []byte, subscriberQueueSize),
	}
	sub.send <- raw
	h.subscribers[sub] = struct{}{}
	count := len(h.subscribers)
	h.mu.Unlock()

	h.logger.Info().Int("subscribers", count).Msg("Push subscriber registered")

	go h.writePump(sub)
	go h.readPump(sub)
}

// Broadcast queues an envelope for every subscriber. Full queues drop the
// subscriber rather than block the mutation path.
func (h *Hub) Broadcast(msgType string, data any) {
	raw, err := json.Marshal(pushEnvelope{Type: msgType, Data: data})
	if err != nil {
		h.logger.Error().Err(err).Str("msg_type", msgType).Msg("Failed to marshal broadcast envelope")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers {
		select {
		case sub.send <- raw:
		default:
			h.logger.Warn().Msg("Subscriber queue full, dropping subscriber")
			h.dropLocked(sub)
		}
	}
}

// dropLocked removes a subscriber and closes its queue. Callers hold h.mu.
func (h *Hub) dropLocked(sub *subscriber) {
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub.send)
	}
}

func (h *Hub) drop(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(sub)
}

// readPump discards inbound messages (the update feed is one-way today) and
// keeps the heartbeat deadline fresh. Its exit unregisters the subscriber.
func (h *Hub) readPump(sub *subscriber) {
	defer func() {
		h.drop(sub)
		sub.conn.Close()
	}()

	sub.conn.SetReadLimit(4096)
	sub.conn.SetReadDeadline(time.Now().Add(hubPongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(hubPongWait))
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump drains the subscriber queue and sends heartbeat pings.
func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(hubPingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case raw, ok := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(hubWriteWait))
			if !ok {
				sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}

		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(hubWriteWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Shutdown closes every subscriber connection and rejects later registrations.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for sub := range h.subscribers {
		delete(h.subscribers, sub)
		close(sub.send)
	}

	h.logger.Info().Msg("Push hub shut down")
}
