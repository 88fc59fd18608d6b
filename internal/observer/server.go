package observer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"streetmarket/internal/config"
	"streetmarket/internal/store"
)

// Server runs the HTTP and WebSocket dashboard for the observer.
type Server struct {
	cfg      config.ObserverConfig
	tracker  *Tracker
	hub      *Hub
	handlers *Handlers
	store    *store.Store // nil disables disk export
	server   *http.Server
	logger   *slog.Logger
	done     chan struct{}
}

// NewServer wires the tracker to the dashboard transport. Pass a nil
// store to skip snapshot export.
func NewServer(cfg config.ObserverConfig, tracker *Tracker, st *store.Store, logger *slog.Logger) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(tracker, cfg, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/api/snapshot", handlers.HandleSnapshot)
	mux.HandleFunc("/ws", handlers.HandleWebSocket)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		tracker:  tracker,
		hub:      hub,
		handlers: handlers,
		store:    st,
		server:   server,
		logger:   logger.With("component", "observer-server"),
		done:     make(chan struct{}),
	}
}

// Start runs the hub, the event pump, and the HTTP listener. Blocks
// until Stop is called or the listener fails.
func (s *Server) Start() error {
	go s.hub.Run()
	go s.consumeEvents()
	if s.store != nil && s.cfg.SnapshotInterval > 0 {
		go s.exportLoop()
	}

	s.logger.Info("dashboard listening", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard server: %w", err)
	}
	return nil
}

// Stop shuts the listener down, disconnects dashboard clients, and
// writes a final snapshot when a store is attached.
func (s *Server) Stop() error {
	s.logger.Info("stopping dashboard")
	close(s.done)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)

	s.hub.Stop()
	s.export()
	return err
}

// consumeEvents pumps tracker events into the hub.
func (s *Server) consumeEvents() {
	for {
		select {
		case evt := <-s.tracker.Events():
			s.hub.BroadcastEvent(evt)
		case <-s.done:
			return
		}
	}
}

// exportLoop writes a snapshot to disk every interval.
func (s *Server) exportLoop() {
	ticker := time.NewTicker(s.cfg.SnapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.export()
		case <-s.done:
			return
		}
	}
}

func (s *Server) export() {
	if s.store == nil {
		return
	}
	if err := s.store.Save("snapshot", s.tracker.Snapshot()); err != nil {
		s.logger.Error("snapshot export failed", "error", err)
	}
}
