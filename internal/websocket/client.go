package websocket

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"betascale/internal/infrastructure"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Clients only send
	// heartbeats, so this stays small.
	maxMessageSize = 512

	// Outbound buffer per client.
	sendBufferSize = 256
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// Client sits between one websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn Connection

	// Buffered channel of outbound messages. Closed by the hub.
	send chan []byte

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	logger *slog.Logger

	messagesSent  int64
	bytesSent     int64
	bytesReceived int64
}

// NewClient creates a client around a live gorilla connection.
func NewClient(hub *Hub, conn *websocket.Conn, traceID string, logger *slog.Logger) *Client {
	return newClient(hub, WrapConnection(conn), traceID, logger)
}

// NewClientWithConnection creates a client around any Connection, which
// lets tests drive the pumps with a mock.
func NewClientWithConnection(hub *Hub, conn Connection, traceID string, logger *slog.Logger) *Client {
	return newClient(hub, conn, traceID, logger)
}

func newClient(hub *Hub, conn Connection, traceID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New().String()
	logger = logger.With(
		slog.String("component", "websocket.client"),
		slog.String("client_id", id),
	)
	if traceID != "" {
		logger = logger.With(slog.String("trace_id", traceID))
	}

	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		id:          id,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		logger:      logger,
	}
}

// context returns a background context carrying the client's trace ID.
func (c *Client) context() context.Context {
	ctx := context.Background()
	if c.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, c.traceID)
	}
	return ctx
}

// ReadPump pumps messages from the websocket connection to the hub. It
// exits when the peer closes or errors, unregistering the client.
func (c *Client) ReadPump() {
	defer func() {
		c.logger.InfoContext(c.context(), "client disconnected",
			slog.Duration("connection_duration", time.Since(c.connectedAt)),
			slog.Int64("bytes_received", c.bytesReceived))
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.ErrorContext(c.context(), "unexpected close",
					slog.String("error", err.Error()))
			}
			break
		}
		message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
		c.bytesReceived += int64(len(message))

		// Browser clients send application-level heartbeats alongside
		// protocol pings. Nothing else inbound is acted on.
		if string(message) == `{"type":"heartbeat"}` {
			c.logger.Debug("heartbeat received")
			continue
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection and
// keeps the connection alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.InfoContext(c.context(), "write pump stopped",
			slog.Int64("messages_sent", c.messagesSent),
			slog.Int64("bytes_sent", c.bytesSent))
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.ErrorContext(c.context(), "write failed",
					slog.String("error", err.Error()))
				return
			}
			c.messagesSent++
			c.bytesSent += int64(len(message))

			// Drain whatever queued up behind this message, each as
			// its own frame.
			n := len(c.send)
			for i := 0; i < n; i++ {
				msg, ok := <-c.send
				if !ok {
					c.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					c.logger.ErrorContext(c.context(), "write failed",
						slog.String("error", err.Error()))
					return
				}
				c.messagesSent++
				c.bytesSent += int64(len(msg))
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(c.context(), "ping failed",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}

// ServeWS registers a freshly upgraded connection with the hub and starts
// its pumps.
func ServeWS(hub *Hub, conn *websocket.Conn, traceID string, logger *slog.Logger) {
	client := NewClient(hub, conn, traceID, logger)
	hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
