// Package websocket streams graph states to connected map clients.
package websocket

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Message types sent to clients.
const (
	MessageGraphState            = "GRAPH_STATE"
	MessageConnectionEstablished = "CONNECTION_ESTABLISHED"
)

// Message is the envelope of every frame sent to a client.
type Message struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EncodeMessage wraps data in a Message envelope.
func EncodeMessage(messageType string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data: %w", err)
	}
	return json.Marshal(Message{
		Type:      messageType,
		Timestamp: time.Now().Unix(),
		Data:      payload,
	})
}

// HubMetrics tracks delivery counters.
type HubMetrics struct {
	ActiveConnections int
	MessagesSent      int64
	MessagesDropped   int64
}

// Hub fans messages out to every registered client. Fan-out is synchronous and
// never blocks on a slow client: a client whose buffer is full is dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool

	sent    int64
	dropped int64

	gauge  prometheus.Gauge
	logger *zap.Logger
}

// NewHub creates a hub. gauge, when set, tracks the connection count.
func NewHub(gauge prometheus.Gauge, logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		gauge:   gauge,
		logger:  logger,
	}
}

// register queues the initial messages on the client and adds it to the hub.
// initial runs under the hub lock, so no broadcast can slip in between.
func (h *Hub) register(c *Client, initial func() [][]byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	for _, msg := range initial() {
		select {
		case c.send <- msg:
		default:
		}
	}
	h.clients[c] = struct{}{}
	h.updateGaugeLocked()

	h.logger.Info("Client registered",
		zap.String("connectionID", c.id),
		zap.String("subject", c.subject),
		zap.Int("connections", len(h.clients)),
	)
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.removeLocked(c) {
		h.logger.Info("Client unregistered",
			zap.String("connectionID", c.id),
			zap.Int("remainingConnections", len(h.clients)),
		)
	}
}

// must be called with the lock held
func (h *Hub) removeLocked(c *Client) bool {
	if _, ok := h.clients[c]; !ok {
		return false
	}
	delete(h.clients, c)
	close(c.send)
	h.updateGaugeLocked()
	return true
}

func (h *Hub) updateGaugeLocked() {
	if h.gauge != nil {
		h.gauge.Set(float64(len(h.clients)))
	}
}

// Broadcast sends data to every client.
func (h *Hub) Broadcast(messageType string, data any) error {
	msg, err := EncodeMessage(messageType, data)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
			h.sent++
		default:
			h.dropped++
			h.removeLocked(c)
			h.logger.Warn("Dropping slow client",
				zap.String("connectionID", c.id),
				zap.String("messageType", messageType),
			)
		}
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Metrics returns delivery counters.
func (h *Hub) Metrics() HubMetrics {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HubMetrics{
		ActiveConnections: len(h.clients),
		MessagesSent:      h.sent,
		MessagesDropped:   h.dropped,
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
	h.logger.Info("Hub shutting down")
}
