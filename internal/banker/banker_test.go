package banker

import (
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"streetmarket/internal/bus/bustest"
	"streetmarket/pkg/types"
)

func newTestBanker(t *testing.T) (*Banker, *bustest.Bus) {
	t.Helper()
	b := bustest.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	bk := New(b, logger)
	if err := bk.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return bk, b
}

func publish(t *testing.T, b *bustest.Bus, from, topic string, tick int64, payload types.Payload) types.Envelope {
	t.Helper()
	env, err := types.NewMessage(from, topic, tick, payload)
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if err := b.Publish(env); err != nil {
		t.Fatalf("publish: %v", err)
	}
	return env
}

func TestAcceptPublishesSettlement(t *testing.T) {
	t.Parallel()
	bk, b := newTestBanker(t)

	publish(t, b, "seller", types.TopicSquare, 1, types.Join{AgentID: "seller"})
	publish(t, b, "buyer", types.TopicSquare, 1, types.Join{AgentID: "buyer"})
	publish(t, b, "world", types.TopicNature, 1, types.GatherResult{
		ReferenceMsgID: "req", SpawnID: "spawn", AgentID: "seller",
		Item: "potato", Quantity: 10, Success: true,
	})

	offer := publish(t, b, "seller", types.TopicRawGoods, 1, types.Offer{
		Item: "potato", Quantity: 10, PricePerUnit: 2,
	})
	publish(t, b, "buyer", types.TopicRawGoods, 1, types.Accept{
		ReferenceMsgID: offer.ID, Quantity: 4,
	})

	settlements := b.PublishedTo(types.TopicBank)
	if len(settlements) != 1 {
		t.Fatalf("settlements = %d, want 1", len(settlements))
	}
	env := settlements[0]
	if env.From != ID || env.Type != types.TypeSettlement {
		t.Errorf("settlement envelope = (%q, %q), want (%q, %q)", env.From, env.Type, ID, types.TypeSettlement)
	}
	var settlement types.Settlement
	if err := json.Unmarshal(env.Payload, &settlement); err != nil {
		t.Fatalf("unmarshal settlement: %v", err)
	}
	want := types.Settlement{
		ReferenceMsgID: offer.ID,
		Buyer:          "buyer",
		Seller:         "seller",
		Item:           "potato",
		Quantity:       4,
		TotalPrice:     8,
		Status:         "completed",
	}
	if settlement != want {
		t.Errorf("settlement = %+v, want %+v", settlement, want)
	}

	buyer, _ := bk.State().GetAccount("buyer")
	seller, _ := bk.State().GetAccount("seller")
	if buyer.Wallet != 92 || seller.Wallet != 108 {
		t.Errorf("wallets = (%v, %v), want (92, 108)", buyer.Wallet, seller.Wallet)
	}
	if buyer.Inventory["potato"] != 4 || seller.Inventory["potato"] != 6 {
		t.Errorf("potato = (%d, %d), want (4, 6)", buyer.Inventory["potato"], seller.Inventory["potato"])
	}
}

func TestFailedAcceptPublishesNothing(t *testing.T) {
	t.Parallel()
	_, b := newTestBanker(t)

	publish(t, b, "buyer", types.TopicSquare, 1, types.Join{AgentID: "buyer"})
	publish(t, b, "buyer", types.TopicRawGoods, 1, types.Accept{
		ReferenceMsgID: "no-such-order", Quantity: 1,
	})

	if got := len(b.PublishedTo(types.TopicBank)); got != 0 {
		t.Errorf("settlements = %d, want 0", got)
	}
}

func TestTickPurgesExpiredOffers(t *testing.T) {
	t.Parallel()
	bk, b := newTestBanker(t)

	publish(t, b, "seller", types.TopicSquare, 1, types.Join{AgentID: "seller"})
	publish(t, b, "world", types.TopicNature, 1, types.GatherResult{
		AgentID: "seller", Item: "potato", Quantity: 5, Success: true,
	})
	offer := publish(t, b, "seller", types.TopicRawGoods, 1, types.Offer{
		Item: "potato", Quantity: 5, PricePerUnit: 2, ExpiresTick: 5,
	})
	if bk.State().OrderCount() != 1 {
		t.Fatal("offer should be booked")
	}

	publish(t, b, "world", types.TopicTick, 5, types.Tick{TickNumber: 5, Timestamp: types.Now()})

	if got := bk.State().OrderCount(); got != 0 {
		t.Fatalf("orders after expiry tick = %d, want 0", got)
	}

	// Accepting the expired offer now fails quietly.
	publish(t, b, "buyer", types.TopicSquare, 5, types.Join{AgentID: "buyer"})
	publish(t, b, "buyer", types.TopicRawGoods, 5, types.Accept{
		ReferenceMsgID: offer.ID, Quantity: 1,
	})
	if got := len(b.PublishedTo(types.TopicBank)); got != 0 {
		t.Errorf("settlements = %d, want 0", got)
	}
}

func TestFailedGatherNotCredited(t *testing.T) {
	t.Parallel()
	bk, b := newTestBanker(t)

	publish(t, b, "world", types.TopicNature, 1, types.GatherResult{
		AgentID: "farmer-01", Item: "potato", Quantity: 0, Success: false,
		Reason: "No active spawn",
	})

	if bk.State().HasAccount("farmer-01") {
		t.Error("failed gather should not open an account")
	}
}

func TestJoinOnlyOpensAccountOnce(t *testing.T) {
	t.Parallel()
	bk, b := newTestBanker(t)

	publish(t, b, "farmer-01", types.TopicSquare, 1, types.Join{AgentID: "farmer-01"})
	bk.State().CreditWallet("farmer-01", 33)
	publish(t, b, "farmer-01", types.TopicSquare, 2, types.Join{AgentID: "farmer-01"})

	account, _ := bk.State().GetAccount("farmer-01")
	if account.Wallet != types.StartingWallet+33 {
		t.Errorf("wallet = %v, re-join must not reset it", account.Wallet)
	}
}
