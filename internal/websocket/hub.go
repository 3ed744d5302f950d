// Package websocket broadcasts run progress snapshots to connected
// browser clients.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"betascale/internal/infrastructure"
	"betascale/pkg/contracts/events"
)

// Hub maintains the set of active clients and broadcasts messages to them.
// Clients that cannot drain their send buffer are disconnected rather than
// allowed to stall a run broadcast.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	logger  *slog.Logger
	metrics *infrastructure.RunMetrics

	totalConnections int64
	messagesSent     int64
	evictions        int64

	quit    chan struct{}
	running bool
}

// NewHub creates a hub. metrics may be nil when OTel is disabled.
func NewHub(logger *slog.Logger, metrics *infrastructure.RunMetrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
		quit:       make(chan struct{}),
	}
}

// Start launches the hub loop. Calling Start twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
	go h.reportMetrics()
}

// Stop shuts the hub down and closes all client connections.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("hub shutting down")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.totalConnections++
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.logger.InfoContext(ctx, "client registered",
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr),
		slog.Int("total_clients", count))

	if h.metrics != nil {
		h.metrics.ConnectedClients.Add(ctx, 1)
	}

	greeting, err := json.Marshal(events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			Type:      events.MessageTypeConnect,
			Timestamp: time.Now(),
			TraceID:   client.traceID,
		},
		Data: map[string]string{
			"status":    "connected",
			"client_id": client.id,
		},
	})
	if err != nil {
		return
	}
	select {
	case client.send <- greeting:
	default:
		h.logger.WarnContext(ctx, "client buffer full on greeting",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.logger.InfoContext(ctx, "client unregistered",
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)),
		slog.Int("total_clients", count))

	if h.metrics != nil {
		h.metrics.ConnectedClients.Add(ctx, -1)
	}
}

func (h *Hub) deliver(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	sent := 0
	for _, client := range clients {
		select {
		case client.send <- message:
			sent++
		default:
			// Slow client: close it rather than block every other
			// subscriber behind its buffer.
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.evictions++
			}
			h.mu.Unlock()

			ctx := client.context()
			h.logger.WarnContext(ctx, "client send buffer full, disconnecting",
				slog.String("client_id", client.id))
			if h.metrics != nil {
				h.metrics.ConnectedClients.Add(ctx, -1)
			}
		}
	}

	h.mu.Lock()
	h.messagesSent += int64(sent)
	h.mu.Unlock()
}

// BroadcastRunSnapshot pushes a full run snapshot to every client.
func (h *Hub) BroadcastRunSnapshot(snapshot *events.RunSnapshot, traceID string) {
	h.Broadcast(events.MessageTypeRunSnapshot, snapshot, traceID)
}

// BroadcastSystemStatus pushes a service status update to every client.
func (h *Hub) BroadcastSystemStatus(status, message string) {
	h.Broadcast(events.MessageTypeSystemStatus, map[string]string{
		"status":  status,
		"message": message,
	}, "")
}

// BroadcastError pushes an error event to every client.
func (h *Hub) BroadcastError(code, message string, fatal bool) {
	h.Broadcast(events.MessageTypeError, map[string]interface{}{
		"code":    code,
		"message": message,
		"fatal":   fatal,
	}, "")
}

// Broadcast marshals data into the standard message envelope and queues it
// for delivery to all clients.
func (h *Hub) Broadcast(messageType events.MessageType, data interface{}, traceID string) {
	payload, err := json.Marshal(events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			Type:      messageType,
			Timestamp: time.Now(),
			TraceID:   traceID,
		},
		Data: data,
	})
	if err != nil {
		ctx := context.Background()
		if traceID != "" {
			ctx = infrastructure.WithTraceID(ctx, traceID)
		}
		h.logger.ErrorContext(ctx, "failed to marshal broadcast",
			slog.String("message_type", string(messageType)),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- payload:
	case <-h.quit:
	}
}

// Stats returns a point-in-time view of hub counters.
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"evictions":         h.evictions,
	}
}

func (h *Hub) reportMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.quit:
			return
		case <-ticker.C:
			h.mu.RLock()
			active := len(h.clients)
			sent := h.messagesSent
			evictions := h.evictions
			h.mu.RUnlock()

			h.logger.Info("hub metrics",
				slog.Int("active_clients", active),
				slog.Int64("messages_sent", sent),
				slog.Int64("evictions", evictions),
				slog.Int("broadcast_queue", len(h.broadcast)))
		}
	}
}
