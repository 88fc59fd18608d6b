package strategy

import (
	"testing"

	"streetmarket/internal/agent"
	"streetmarket/pkg/types"
)

func sellQuote(id string, item string, quantity int, price float64) agent.ObservedOffer {
	return agent.ObservedOffer{
		MsgID: id, Agent: "seller", Item: item, Quantity: quantity,
		PricePerUnit: price, IsSell: true,
	}
}

func TestTraderWatchesBeforeTrading(t *testing.T) {
	t.Parallel()
	tr := NewTrader(DefaultTraderConfig())

	// Two quotes are below the three-sample floor: no mean, no trades,
	// however attractive the price.
	view := testView(5)
	view.ObservedOffers = []agent.ObservedOffer{
		sellQuote("q1", "potato", 5, 3.0),
		sellQuote("q2", "potato", 5, 0.1),
	}

	if actions := tr.Decide(view); len(actions) != 0 {
		t.Errorf("actions = %+v, want none before the window fills", actions)
	}
}

func TestTraderBuysBelowMean(t *testing.T) {
	t.Parallel()
	tr := NewTrader(DefaultTraderConfig())

	view := testView(5)
	view.ObservedOffers = []agent.ObservedOffer{
		sellQuote("q1", "potato", 5, 3.0),
		sellQuote("q2", "potato", 5, 3.0),
		sellQuote("q3", "potato", 5, 3.0),
		sellQuote("q4", "potato", 8, 2.0), // mean is 2.75 with this one in
	}

	actions := tr.Decide(view)
	if len(actions) != 1 {
		t.Fatalf("actions = %d, want 1 buy", len(actions))
	}
	// Quantity capped at MaxLots.
	want := agent.Accept("q4", 5, types.TopicRawGoods)
	if actions[0] != want {
		t.Errorf("actions[0] = %+v, want %+v", actions[0], want)
	}
}

func TestTraderEvictsStaleQuotes(t *testing.T) {
	t.Parallel()
	cfg := DefaultTraderConfig()
	tr := NewTrader(cfg)

	seed := testView(5)
	seed.Tick = 1
	seed.ObservedOffers = []agent.ObservedOffer{
		sellQuote("q1", "potato", 5, 9.0),
		sellQuote("q2", "potato", 5, 9.0),
		sellQuote("q3", "potato", 5, 9.0),
	}
	tr.Decide(seed)

	// Far past the window every old quote is gone, so one cheap offer
	// finds no trusted mean to beat.
	late := testView(5)
	late.Tick = seed.Tick + cfg.WindowTicks + 5
	late.ObservedOffers = []agent.ObservedOffer{
		sellQuote("q4", "potato", 5, 1.0),
	}

	if actions := tr.Decide(late); len(actions) != 0 {
		t.Errorf("actions = %+v, want none after the window emptied", actions)
	}
}

func TestTraderFlipsHeldGoods(t *testing.T) {
	t.Parallel()
	tr := NewTrader(DefaultTraderConfig())

	seed := testView(5)
	seed.ObservedOffers = []agent.ObservedOffer{
		sellQuote("q1", "potato", 5, 3.0),
		sellQuote("q2", "potato", 5, 3.0),
		sellQuote("q3", "potato", 5, 3.0),
	}
	tr.Decide(seed)

	hold := testView(5)
	hold.Tick = 2
	hold.Inventory = map[string]int{"potato": 4}

	actions := tr.Decide(hold)
	if len(actions) != 1 {
		t.Fatalf("actions = %d, want 1 offer", len(actions))
	}
	// Mean 3.0 times the 1.1 margin.
	if want := agent.Offer("potato", 4, 3.3); actions[0] != want {
		t.Errorf("actions[0] = %+v, want %+v", actions[0], want)
	}
}

func TestTraderStaysInsideWallet(t *testing.T) {
	t.Parallel()
	tr := NewTrader(DefaultTraderConfig())

	view := testView(5)
	view.Wallet = 5.0
	view.ObservedOffers = []agent.ObservedOffer{
		sellQuote("q1", "potato", 5, 3.0),
		sellQuote("q2", "potato", 5, 3.0),
		sellQuote("q3", "potato", 5, 3.0),
		sellQuote("q4", "potato", 5, 2.0), // 5 lots at 2.0 needs 10.0
	}

	if actions := tr.Decide(view); len(actions) != 0 {
		t.Errorf("actions = %+v, want none the wallet cannot cover", actions)
	}
}

func TestTraderNeverGathersOrCrafts(t *testing.T) {
	t.Parallel()
	tr := NewTrader(DefaultTraderConfig())

	view := testView(5)
	view.SpawnID = "spawn-1"
	view.SpawnItems = map[string]int{"potato": 20}
	view.Inventory = map[string]int{"potato": 2, "onion": 1}

	for _, a := range tr.Decide(view) {
		switch a.Kind {
		case agent.ActionGather, agent.ActionCraftStart, agent.ActionCraftComplete:
			t.Errorf("trader queued %q, want market actions only", a.Kind)
		}
	}
}
