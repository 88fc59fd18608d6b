package observer

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"streetmarket/internal/config"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	tracker  *Tracker
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(tracker *Tracker, cfg config.ObserverConfig, hub *Hub, logger *slog.Logger) *Handlers {
	return &Handlers{
		tracker: tracker,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return isOriginAllowed(r.Header.Get("Origin"), cfg, r.Host)
			},
		},
		logger: logger.With("component", "observer-handlers"),
	}
}

// isOriginAllowed decides whether a browser origin may open the
// WebSocket. With no allowlist configured, local and same-host origins
// pass; with an allowlist, only exact matches do.
func isOriginAllowed(origin string, cfg config.ObserverConfig, reqHost string) bool {
	if origin == "" {
		return true
	}
	if len(cfg.AllowedOrigins) > 0 {
		for _, allowed := range cfg.AllowedOrigins {
			if origin == allowed {
				return true
			}
		}
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return u.Host == reqHost
}

// HandleHealth returns a simple health check response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HandleSnapshot returns the current observer state.
func (h *Handlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.tracker.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		h.logger.Error("failed to encode snapshot", "error", err)
	}
}

// HandleWebSocket upgrades the connection and registers the client.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(h.hub, conn)
	if client == nil {
		return
	}

	// Seed the dashboard with the full picture before deltas arrive.
	data, err := json.Marshal(NewSnapshotEvent(h.tracker.Snapshot()))
	if err != nil {
		h.logger.Error("failed to marshal initial snapshot", "error", err)
		return
	}

	select {
	case client.send <- data:
	default:
		h.logger.Warn("failed to send initial snapshot to client")
	}
}
