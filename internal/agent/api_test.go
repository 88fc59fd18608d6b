package agent

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"streetmarket/internal/bus/bustest"
)

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()
	b := bustest.New()
	rt := newTestRuntime(t, b, "farmer-01", idleStrategy)
	advanceTick(t, b, 2)
	rt.State().AddInventory("potato", 4)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	srv := NewStatusServer(rt, "127.0.0.1:0", logger)

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var status Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.AgentID != "farmer-01" || status.Tick != 2 || !status.Joined {
		t.Errorf("status = %+v, want farmer-01 joined at tick 2", status)
	}
	if status.Inventory["potato"] != 4 {
		t.Errorf("status potato = %d, want 4", status.Inventory["potato"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	b := bustest.New()
	rt := newTestRuntime(t, b, "farmer-01", idleStrategy)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	srv := NewStatusServer(rt, "127.0.0.1:0", logger)

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf(`health = %v, want {"status":"ok"}`, body)
	}
	if body["agent_id"] != "farmer-01" {
		t.Errorf("health agent_id = %q, want farmer-01", body["agent_id"])
	}
}
