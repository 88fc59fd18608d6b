package bustest

import (
	"testing"

	"streetmarket/pkg/types"
)

func publish(t *testing.T, b *Bus, topic string, p types.Payload) types.Envelope {
	t.Helper()
	env, err := types.NewMessage("tester", topic, 1, p)
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if err := b.Publish(env); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	return env
}

func TestTopicMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"/market/raw-goods", "/market/raw-goods", true},
		{"/market/raw-goods", "/market/food", false},
		{"/market/>", "/market/raw-goods", true},
		{"/market/>", "/market/governance", true},
		{"/market/>", "/market", false},
		{"/market/>", "/world/nature", false},
		{"/agent/>", "/agent/farmer-01/inbox", true},
	}

	for _, tt := range tests {
		if got := topicMatches(tt.pattern, tt.topic); got != tt.want {
			t.Errorf("topicMatches(%q, %q) = %v, want %v", tt.pattern, tt.topic, got, tt.want)
		}
	}
}

func TestSynchronousDelivery(t *testing.T) {
	t.Parallel()

	b := New()
	var got []types.Envelope
	if err := b.Subscribe("/market/>", func(env types.Envelope) {
		got = append(got, env)
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	env := publish(t, b, types.TopicRawGoods, types.Offer{Item: "potato", Quantity: 1, PricePerUnit: 2.0})

	if len(got) != 1 {
		t.Fatalf("handler saw %d envelopes, want 1", len(got))
	}
	if got[0].ID != env.ID {
		t.Errorf("handler saw envelope %s, want %s", got[0].ID, env.ID)
	}
}

// A handler that publishes in response must not re-enter itself; its
// message is queued and delivered after the current one.
func TestReactivePublishKeepsBusOrder(t *testing.T) {
	t.Parallel()

	b := New()
	var order []types.MessageType
	if err := b.Subscribe("/market/>", func(env types.Envelope) {
		order = append(order, env.Type)
		if env.Type == types.TypeOffer {
			reply, err := types.NewMessage("reactor", types.TopicBank, 1, types.Settlement{
				ReferenceMsgID: env.ID,
				Buyer:          "b",
				Seller:         "s",
				Item:           "potato",
				Quantity:       1,
				TotalPrice:     2.0,
				Status:         "completed",
			})
			if err != nil {
				t.Errorf("NewMessage: %v", err)
				return
			}
			if err := b.Publish(reply); err != nil {
				t.Errorf("nested Publish: %v", err)
			}
		}
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	publish(t, b, types.TopicRawGoods, types.Offer{Item: "potato", Quantity: 1, PricePerUnit: 2.0})

	want := []types.MessageType{types.TypeOffer, types.TypeSettlement}
	if len(order) != len(want) {
		t.Fatalf("delivery order %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("delivery order %v, want %v", order, want)
		}
	}
}

func TestPublishedRecording(t *testing.T) {
	t.Parallel()

	b := New()
	publish(t, b, types.TopicRawGoods, types.Offer{Item: "potato", Quantity: 1, PricePerUnit: 2.0})
	publish(t, b, types.TopicFood, types.Offer{Item: "soup", Quantity: 1, PricePerUnit: 9.0})

	if got := len(b.Published()); got != 2 {
		t.Errorf("len(Published()) = %d, want 2", got)
	}
	if got := len(b.PublishedTo(types.TopicFood)); got != 1 {
		t.Errorf("len(PublishedTo(food)) = %d, want 1", got)
	}
	if _, ok := b.LastOfType(types.TypeOffer); !ok {
		t.Error("LastOfType(offer) found nothing")
	}
	if _, ok := b.LastOfType(types.TypeSettlement); ok {
		t.Error("LastOfType(settlement) found something, want none")
	}
}

func TestClosedBusRejectsPublish(t *testing.T) {
	t.Parallel()

	b := New()
	b.Close()
	env, err := types.NewMessage("tester", types.TopicSquare, 1, types.Join{AgentID: "a-1", Name: "a", Description: "d"})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if err := b.Publish(env); err == nil {
		t.Error("Publish on closed bus succeeded, want error")
	}
}
