package observer

import (
	"log/slog"
	"os"
	"testing"

	"streetmarket/internal/agent"
	"streetmarket/internal/bus/bustest"
	"streetmarket/pkg/types"
)

func newTestTracker(t *testing.T) (*Tracker, *bustest.Bus) {
	t.Helper()
	b := bustest.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	tr := NewTracker(b, logger)
	if err := tr.Start(); err != nil {
		t.Fatalf("tracker start: %v", err)
	}
	return tr, b
}

func publish(t *testing.T, b *bustest.Bus, from, topic string, tick int64, payload types.Payload) types.Envelope {
	t.Helper()
	env, err := types.NewMessage(from, topic, tick, payload)
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if err := b.Publish(env); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	return env
}

func drainEvents(tr *Tracker) []DashboardEvent {
	var out []DashboardEvent
	for {
		select {
		case evt := <-tr.Events():
			out = append(out, evt)
		default:
			return out
		}
	}
}

func TestTrackerFollowsTicks(t *testing.T) {
	t.Parallel()
	tr, b := newTestTracker(t)

	publish(t, b, "world-engine", types.TopicTick, 3, types.Tick{TickNumber: 3, Timestamp: types.Now()})

	if got := tr.CurrentTick(); got != 3 {
		t.Errorf("CurrentTick() = %d, want 3", got)
	}
	if got := tr.Snapshot().Tick; got != 3 {
		t.Errorf("Snapshot().Tick = %d, want 3", got)
	}
}

func TestTrackerRecordsAgents(t *testing.T) {
	t.Parallel()
	tr, b := newTestTracker(t)

	publish(t, b, "farmer-01", types.TopicSquare, 1, types.Join{
		AgentID: "farmer-01",
		Name:    "Potato Pete",
		APIURL:  "http://127.0.0.1:8091",
	})
	publish(t, b, "farmer-01", types.TopicSquare, 5, types.Heartbeat{
		AgentID:        "farmer-01",
		Wallet:         87.5,
		InventoryCount: 12,
	})

	snap := tr.Snapshot()
	if len(snap.Agents) != 1 {
		t.Fatalf("agents = %d, want 1", len(snap.Agents))
	}
	info := snap.Agents[0]
	if info.Name != "Potato Pete" {
		t.Errorf("Name = %q, want %q", info.Name, "Potato Pete")
	}
	if info.JoinedTick != 1 {
		t.Errorf("JoinedTick = %d, want 1", info.JoinedTick)
	}
	if info.LastHeartbeatTick != 5 {
		t.Errorf("LastHeartbeatTick = %d, want 5", info.LastHeartbeatTick)
	}
	if info.Wallet != 87.5 {
		t.Errorf("Wallet = %v, want 87.5", info.Wallet)
	}
	if info.InventoryCount != 12 {
		t.Errorf("InventoryCount = %d, want 12", info.InventoryCount)
	}
	if snap.TotalWallets != 87.5 {
		t.Errorf("TotalWallets = %v, want 87.5", snap.TotalWallets)
	}
}

func TestTrackerHeartbeatBeforeJoin(t *testing.T) {
	t.Parallel()
	tr, b := newTestTracker(t)

	publish(t, b, "chef-01", types.TopicSquare, 4, types.Heartbeat{AgentID: "chef-01", Wallet: 100})

	snap := tr.Snapshot()
	if len(snap.Agents) != 1 {
		t.Fatalf("agents = %d, want 1", len(snap.Agents))
	}
	if snap.Agents[0].Wallet != 100 {
		t.Errorf("Wallet = %v, want 100", snap.Agents[0].Wallet)
	}
}

func TestTrackerOrderLifecycle(t *testing.T) {
	t.Parallel()
	tr, b := newTestTracker(t)

	offer := publish(t, b, "farmer-01", types.TopicRawGoods, 2, types.Offer{
		Item:         "potato",
		Quantity:     10,
		PricePerUnit: 3.0,
	})

	snap := tr.Snapshot()
	if len(snap.OpenOrders) != 1 {
		t.Fatalf("open orders = %d, want 1", len(snap.OpenOrders))
	}
	order := snap.OpenOrders[0]
	if order.Side != "offer" || order.Item != "potato" || order.Quantity != 10 {
		t.Errorf("order = %+v, want offer potato x10", order)
	}

	// A partial fill shrinks the order.
	publish(t, b, "banker", types.TopicBank, 3, types.Settlement{
		ReferenceMsgID: offer.ID,
		Buyer:          "chef-01",
		Seller:         "farmer-01",
		Item:           "potato",
		Quantity:       4,
		TotalPrice:     12.0,
		Status:         "completed",
	})

	snap = tr.Snapshot()
	if len(snap.OpenOrders) != 1 {
		t.Fatalf("open orders after partial fill = %d, want 1", len(snap.OpenOrders))
	}
	if got := snap.OpenOrders[0].Quantity; got != 6 {
		t.Errorf("remaining quantity = %d, want 6", got)
	}
	if len(snap.Settlements) != 1 {
		t.Fatalf("settlements = %d, want 1", len(snap.Settlements))
	}

	// The rest of the order closes it.
	publish(t, b, "banker", types.TopicBank, 3, types.Settlement{
		ReferenceMsgID: offer.ID,
		Buyer:          "chef-01",
		Seller:         "farmer-01",
		Item:           "potato",
		Quantity:       6,
		TotalPrice:     18.0,
		Status:         "completed",
	})

	if got := len(tr.Snapshot().OpenOrders); got != 0 {
		t.Errorf("open orders after full fill = %d, want 0", got)
	}
}

func TestTrackerRecordsBids(t *testing.T) {
	t.Parallel()
	tr, b := newTestTracker(t)

	publish(t, b, "chef-01", types.TopicRawGoods, 2, types.Bid{
		Item:            "potato",
		Quantity:        5,
		MaxPricePerUnit: 4.0,
	})

	snap := tr.Snapshot()
	if len(snap.OpenOrders) != 1 {
		t.Fatalf("open orders = %d, want 1", len(snap.OpenOrders))
	}
	if got := snap.OpenOrders[0].Side; got != "bid" {
		t.Errorf("Side = %q, want %q", got, "bid")
	}
	if got := snap.OpenOrders[0].PricePerUnit; got != 4.0 {
		t.Errorf("PricePerUnit = %v, want 4.0", got)
	}
}

func TestTrackerAttributesVerdicts(t *testing.T) {
	t.Parallel()
	tr, b := newTestTracker(t)

	offer := publish(t, b, "smith-01", types.TopicMaterials, 2, types.Offer{
		Item:         "hammer",
		Quantity:     1,
		PricePerUnit: 15.0,
	})
	publish(t, b, "governor", types.TopicGovernance, 2, types.ValidationResult{
		ReferenceMsgID: offer.ID,
		Valid:          false,
		Reason:         "Unknown item: 'hammer'",
		Action:         "offer",
	})

	snap := tr.Snapshot()
	if len(snap.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(snap.Failures))
	}
	failure := snap.Failures[0]
	if failure.Agent != "smith-01" {
		t.Errorf("Agent = %q, want %q", failure.Agent, "smith-01")
	}
	if failure.Action != "offer" {
		t.Errorf("Action = %q, want %q", failure.Action, "offer")
	}
	if failure.Reason != "Unknown item: 'hammer'" {
		t.Errorf("Reason = %q", failure.Reason)
	}
}

func TestTrackerIgnoresPassVerdicts(t *testing.T) {
	t.Parallel()
	tr, b := newTestTracker(t)

	publish(t, b, "governor", types.TopicGovernance, 2, types.ValidationResult{
		ReferenceMsgID: "some-id",
		Valid:          true,
		Action:         "offer",
	})

	if got := len(tr.Snapshot().Failures); got != 0 {
		t.Errorf("failures = %d, want 0", got)
	}
}

func TestTrackerRecordsSpawn(t *testing.T) {
	t.Parallel()
	tr, b := newTestTracker(t)

	publish(t, b, "world-engine", types.TopicNature, 7, types.Spawn{
		SpawnID: "spawn-7",
		Tick:    7,
		Items:   map[string]int{"potato": 50, "wood": 30},
	})

	snap := tr.Snapshot()
	if snap.Spawn == nil {
		t.Fatal("Spawn = nil, want recorded pool")
	}
	if snap.Spawn.SpawnID != "spawn-7" {
		t.Errorf("SpawnID = %q, want %q", snap.Spawn.SpawnID, "spawn-7")
	}
	if snap.Spawn.Items["potato"] != 50 {
		t.Errorf("potato count = %d, want 50", snap.Spawn.Items["potato"])
	}
}

func TestTrackerCountsMessages(t *testing.T) {
	t.Parallel()
	tr, b := newTestTracker(t)

	publish(t, b, "world-engine", types.TopicTick, 1, types.Tick{TickNumber: 1, Timestamp: types.Now()})
	publish(t, b, "farmer-01", types.TopicRawGoods, 1, types.Offer{Item: "potato", Quantity: 1, PricePerUnit: 2})
	publish(t, b, "farmer-01", types.TopicRawGoods, 1, types.Offer{Item: "onion", Quantity: 1, PricePerUnit: 3})

	counts := tr.Snapshot().MessageCounts
	if counts[types.TypeTick] != 1 {
		t.Errorf("tick count = %d, want 1", counts[types.TypeTick])
	}
	if counts[types.TypeOffer] != 2 {
		t.Errorf("offer count = %d, want 2", counts[types.TypeOffer])
	}
}

func TestPollTargets(t *testing.T) {
	t.Parallel()
	tr, b := newTestTracker(t)

	publish(t, b, "farmer-01", types.TopicSquare, 1, types.Join{
		AgentID: "farmer-01",
		Name:    "Potato Pete",
		APIURL:  "http://127.0.0.1:8091",
	})
	publish(t, b, "chef-01", types.TopicSquare, 1, types.Join{
		AgentID: "chef-01",
		Name:    "Soup Sal",
	})

	targets := tr.PollTargets()
	if len(targets) != 1 {
		t.Fatalf("poll targets = %d, want 1", len(targets))
	}
	if targets[0].AgentID != "farmer-01" {
		t.Errorf("target = %q, want %q", targets[0].AgentID, "farmer-01")
	}
}

func TestSetAgentStatus(t *testing.T) {
	t.Parallel()
	tr, b := newTestTracker(t)

	publish(t, b, "farmer-01", types.TopicSquare, 1, types.Join{AgentID: "farmer-01", Name: "Potato Pete"})

	tr.SetAgentStatus("farmer-01", agent.Status{AgentID: "farmer-01", Wallet: 93.0, Tick: 8})
	tr.SetAgentStatus("ghost-01", agent.Status{AgentID: "ghost-01"}) // unknown agents are dropped

	snap := tr.Snapshot()
	if len(snap.Agents) != 1 {
		t.Fatalf("agents = %d, want 1", len(snap.Agents))
	}
	if snap.Agents[0].Status == nil {
		t.Fatal("Status = nil, want poller result")
	}
	if got := snap.Agents[0].Status.Wallet; got != 93.0 {
		t.Errorf("Status.Wallet = %v, want 93.0", got)
	}
}

func TestTrackerEmitsEvents(t *testing.T) {
	t.Parallel()
	tr, b := newTestTracker(t)

	publish(t, b, "world-engine", types.TopicTick, 1, types.Tick{TickNumber: 1, Timestamp: types.Now()})
	publish(t, b, "farmer-01", types.TopicSquare, 1, types.Join{AgentID: "farmer-01", Name: "Potato Pete"})
	publish(t, b, "farmer-01", types.TopicRawGoods, 1, types.Offer{Item: "potato", Quantity: 10, PricePerUnit: 3})

	byType := make(map[string]int)
	for _, evt := range drainEvents(tr) {
		byType[evt.Type]++
	}
	for _, want := range []string{"tick", "join", "order"} {
		if byType[want] != 1 {
			t.Errorf("%s events = %d, want 1", want, byType[want])
		}
	}
}
