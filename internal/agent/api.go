package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Status is the document the status API serves, and what the observer's
// poller collects from each agent.
type Status struct {
	AgentID       string         `json:"agent_id"`
	Name          string         `json:"name"`
	Strategy      string         `json:"strategy"`
	Tick          int64          `json:"tick"`
	Joined        bool           `json:"joined"`
	Wallet        float64        `json:"wallet"`
	Inventory     map[string]int `json:"inventory"`
	Crafting      bool           `json:"crafting"`
	PendingOffers int            `json:"pending_offers"`
}

// Status snapshots the mirror into the API document.
func (r *Runtime) Status() Status {
	view := r.state.View()
	return Status{
		AgentID:       r.cfg.ID,
		Name:          r.cfg.Name,
		Strategy:      r.cfg.Strategy,
		Tick:          view.Tick,
		Joined:        r.state.Joined(),
		Wallet:        view.Wallet,
		Inventory:     view.Inventory,
		Crafting:      view.Crafting,
		PendingOffers: r.state.PendingCount(),
	}
}

// StatusServer exposes the agent's mirror over HTTP. It answers what
// the agent believes about itself, which the observer compares against
// the banker's ledger.
type StatusServer struct {
	runtime *Runtime
	server  *http.Server
	logger  *slog.Logger
}

// NewStatusServer builds a status server listening on addr.
func NewStatusServer(r *Runtime, addr string, logger *slog.Logger) *StatusServer {
	s := &StatusServer{
		runtime: r,
		logger:  logger.With("component", "agent-api", "agent", r.cfg.ID),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start serves until Stop is called. It blocks, so run it on its own
// goroutine.
func (s *StatusServer) Start() error {
	s.logger.Info("status API starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *StatusServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *StatusServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":   "ok",
		"agent_id": s.runtime.cfg.ID,
	})
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.runtime.Status()); err != nil {
		s.logger.Error("failed to encode status", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
