package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"betascale/internal/infrastructure"
	ws "betascale/internal/websocket"
)

// WebSocketHandler upgrades GET /ws connections and hands them to the
// run-progress hub.
type WebSocketHandler struct {
	hub            *ws.Hub
	allowedOrigins []string
	logger         *slog.Logger
}

// NewWebSocketHandler creates a WebSocket upgrade handler. An empty
// origin list disables origin checking; otherwise only browsers sent
// from a listed origin may connect.
func NewWebSocketHandler(hub *ws.Hub, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		allowedOrigins: allowedOrigins,
		logger:         logger.With(slog.String("component", "ws_handler")),
	}
}

// ServeHTTP upgrades the connection and registers the client.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = fmt.Sprintf("ws-%d", time.Now().UnixNano())
	}
	ctx := infrastructure.WithTraceID(r.Context(), reqID)

	h.logger.InfoContext(ctx, "websocket upgrade request",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")),
	)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")

			// Non-browser clients send no Origin header.
			if origin == "" {
				return true
			}
			if len(h.allowedOrigins) == 0 {
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}

			h.logger.WarnContext(ctx, "websocket origin rejected",
				slog.String("origin", origin),
				slog.Any("allowed_origins", h.allowedOrigins),
			)
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			h.logger.ErrorContext(ctx, "websocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
			)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the error response.
		return
	}

	h.logger.InfoContext(ctx, "websocket client connected",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("request_id", reqID),
	)

	ws.ServeWS(h.hub, conn, reqID, h.logger)
}
