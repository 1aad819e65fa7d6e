package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/readyrun/readyrun/internal/auth"
	"github.com/readyrun/readyrun/internal/readiness"
	"github.com/readyrun/readyrun/internal/trainlog"
	"github.com/readyrun/readyrun/pkg/plugin"
)

// Handler provides the WebSocket endpoint for live dashboard updates.
type Handler struct {
	hub    *Hub
	tokens *auth.TokenService
	bus    plugin.EventBus
	logger *zap.Logger
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a WebSocket handler and subscribes to log and
// readiness events.
func NewHandler(tokens *auth.TokenService, bus plugin.EventBus, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:    NewHub(logger),
		tokens: tokens,
		bus:    bus,
		logger: logger,
	}
	h.subscribeToEvents()
	return h
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws/live", h.handleLiveStream)
}

// handleLiveStream upgrades the connection to WebSocket and streams
// training and readiness events.
func (h *Handler) handleLiveStream(w http.ResponseWriter, r *http.Request) {
	// Validate JWT from query parameter (browser WS API doesn't support headers).
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token parameter", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Allow any origin since we validate via JWT token.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		userID: claims.UserID,
		send:   make(chan Message, 256),
		logger: h.logger,
	}

	h.hub.Register(client)

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	// readPump blocks until client disconnects.
	client.readPump(ctx)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// subscribeToEvents forwards appended entries and fresh readiness results
// to all connected clients.
func (h *Handler) subscribeToEvents() {
	if h.bus == nil {
		return
	}

	h.bus.Subscribe(trainlog.TopicEntryAppended, func(_ context.Context, event plugin.Event) {
		payload, ok := event.Payload.(trainlog.EntryAppendedPayload)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageEntryAppended,
			Timestamp: event.Timestamp,
			Data:      payload,
		})
	})

	h.bus.Subscribe(readiness.TopicEvaluated, func(_ context.Context, event plugin.Event) {
		payload, ok := event.Payload.(readiness.EvaluatedPayload)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageReadinessEvaluated,
			Timestamp: event.Timestamp,
			Data:      payload,
		})
	})

	h.logger.Info("subscribed to trainlog and readiness events for WebSocket broadcasting")
}
