package websocket

import (
	"bytes"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Clients only send pongs and small control messages
	maxMessageSize = 4 * 1024

	sendBufferSize = 64
)

// Client is one websocket connection.
type Client struct {
	id      string
	subject string
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	logger  *zap.Logger
}

// NewClient creates a client for conn. subject is the authenticated caller,
// empty when auth is disabled.
func NewClient(subject string, hub *Hub, conn *websocket.Conn, logger *zap.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:      id,
		subject: subject,
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		logger:  logger.With(zap.String("connectionID", id)),
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// Start registers the client, queues the initial messages and starts the pumps.
func (c *Client) Start(initial func() [][]byte) bool {
	if !c.hub.register(c, initial) {
		c.conn.Close()
		return false
	}
	go c.writePump()
	go c.readPump()
	return true
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
		if messageType == websocket.TextMessage {
			c.logger.Debug("Ignoring client message", zap.ByteString("message", bytes.TrimSpace(message)))
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// the hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
