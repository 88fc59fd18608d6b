package strategy

import "testing"

func TestForName(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"farmer", "chef", "trader"} {
		strat, err := ForName(name)
		if err != nil {
			t.Fatalf("ForName(%q): %v", name, err)
		}
		if strat.Name() != name {
			t.Errorf("ForName(%q).Name() = %q", name, strat.Name())
		}
	}

	if _, err := ForName("gambler"); err == nil {
		t.Error("ForName(gambler) succeeded, want error")
	}
}

func TestMarkupPriceQuotesExactCents(t *testing.T) {
	t.Parallel()
	// 3.0 x 1.2 in raw float64 is 3.5999999999999996; the decimal path
	// must quote 3.6.
	if got := markupPrice("wood", farmerSellMarkup); got != 3.6 {
		t.Errorf("markupPrice(wood, 1.2) = %v, want 3.6", got)
	}
	if got := markupPrice("potato", chefBidMarkup); got != 2.6 {
		t.Errorf("markupPrice(potato, 1.3) = %v, want 2.6", got)
	}
}
