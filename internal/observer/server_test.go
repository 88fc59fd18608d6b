package observer

import (
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"streetmarket/internal/config"
	"streetmarket/internal/store"
	"streetmarket/pkg/types"
)

func TestServerStopExportsSnapshot(t *testing.T) {
	t.Parallel()
	tr, b := newTestTracker(t)

	publish(t, b, "world-engine", types.TopicTick, 9, types.Tick{TickNumber: 9, Timestamp: types.Now()})
	publish(t, b, "farmer-01", types.TopicSquare, 9, types.Join{AgentID: "farmer-01", Name: "Potato Pete"})

	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store open: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	srv := NewServer(config.ObserverConfig{Port: 8080}, tr, st, logger)

	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	data, err := os.ReadFile(st.Path("snapshot"))
	if err != nil {
		t.Fatalf("read exported snapshot: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("decode exported snapshot: %v", err)
	}
	if snap.Tick != 9 {
		t.Errorf("exported Tick = %d, want 9", snap.Tick)
	}
	if len(snap.Agents) != 1 {
		t.Errorf("exported agents = %d, want 1", len(snap.Agents))
	}
}

func TestServerWithoutStore(t *testing.T) {
	t.Parallel()
	tr, _ := newTestTracker(t)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	srv := NewServer(config.ObserverConfig{Port: 8080}, tr, nil, logger)

	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop without store: %v", err)
	}
}
