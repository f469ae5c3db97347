package handlers

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"fabtrack/internal/app/hub"
	"fabtrack/internal/app/server/sse"
	"fabtrack/internal/core/contracts"
	"fabtrack/internal/core/domain"
	"fabtrack/pkg/logging"
	"fabtrack/pkg/middleware"
)

type StreamHandler struct {
	hub           *hub.Hub
	reg           contracts.Registry
	presence      contracts.PresenceStore
	writeBuffer   int
	touchInterval time.Duration
}

func NewStreamHandler(h *hub.Hub, reg contracts.Registry, presence contracts.PresenceStore, writeBuffer int, presenceWindow time.Duration) *StreamHandler {
	return &StreamHandler{
		hub:           h,
		reg:           reg,
		presence:      presence,
		writeBuffer:   writeBuffer,
		touchInterval: presenceWindow / 3,
	}
}

// Connect completes the stream handshake and holds the connection open
// until the client goes away or the hub shuts down.
func (s *StreamHandler) Connect(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("streaming unsupported by response writer")
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	conn := sse.NewConn(r.Context(), identity.ID, s.writeBuffer)

	// The handshake frame needs the assigned id, so it is queued right
	// after Register. The write buffer is empty at this point, so it is
	// the first frame out unless a broadcast lands in the same instant.
	connID := s.reg.Register(identity.ID, conn)
	if frame, err := hub.Encode(domain.EventConnected, domain.ConnectedPayload{
		ConnectionID: connID,
		UserID:       identity.ID,
	}); err == nil {
		_ = conn.Send(frame)
	}
	defer s.reg.Unregister(identity.ID, connID)

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("stream.user_id", identity.ID),
		attribute.Int64("stream.connection_id", connID),
	)

	go s.keepPresence(conn, identity.ID)

	log.Info("stream connected",
		logging.User(identity.ID),
		logging.Connection(connID),
	)

	if err := conn.Serve(w, flusher); err != nil {
		log.Warn("stream write failed", logging.Connection(connID), logging.Err(err))
	}
	log.Info("stream disconnected",
		logging.User(identity.ID),
		logging.Connection(connID),
	)
}

// keepPresence refreshes the user's online mark while the connection
// lives. The mark simply ages out after the last refresh, so no explicit
// offline write is needed.
func (s *StreamHandler) keepPresence(conn *sse.Conn, userID string) {
	ctx := context.Background()
	if err := s.presence.Touch(ctx, userID); err != nil {
		logging.FromContext(ctx).Warn("presence touch failed", logging.User(userID), logging.Err(err))
	}

	ticker := time.NewTicker(s.touchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-conn.Done():
			return
		case <-ticker.C:
			if err := s.presence.Touch(ctx, userID); err != nil {
				logging.FromContext(ctx).Warn("presence touch failed", logging.User(userID), logging.Err(err))
			}
		}
	}
}

// Status reports the registry snapshot for operational visibility.
func (s *StreamHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.reg.Status())
}

// Presence lists the users currently holding a live connection, on this
// node or any other one sharing the store.
func (s *StreamHandler) Presence(w http.ResponseWriter, r *http.Request) {
	online, err := s.presence.Online(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("presence lookup failed", logging.Err(err))
		http.Error(w, "presence unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"online": online})
}
