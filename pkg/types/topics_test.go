package types

import "testing"

func TestSubjectConversion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		topic   string
		subject string
	}{
		{"/market/raw-goods", "market.raw-goods"},
		{"/system/tick", "system.tick"},
		{"/market/>", "market.>"},
		{"/agent/farmer-01/inbox", "agent.farmer-01.inbox"},
	}

	for _, tt := range tests {
		if got := ToSubject(tt.topic); got != tt.subject {
			t.Errorf("ToSubject(%q) = %q, want %q", tt.topic, got, tt.subject)
		}
		if got := FromSubject(tt.subject); got != tt.topic {
			t.Errorf("FromSubject(%q) = %q, want %q", tt.subject, got, tt.topic)
		}
	}
}

func TestAgentInbox(t *testing.T) {
	t.Parallel()

	if got := AgentInbox("chef-01"); got != "/agent/chef-01/inbox" {
		t.Errorf("AgentInbox(chef-01) = %q, want /agent/chef-01/inbox", got)
	}
}

func TestAllTopics(t *testing.T) {
	t.Parallel()

	topics := AllTopics()
	if len(topics) != 10 {
		t.Fatalf("AllTopics() returned %d topics, want 10", len(topics))
	}
	seen := make(map[string]bool, len(topics))
	for _, topic := range topics {
		if seen[topic] {
			t.Errorf("AllTopics() lists %q twice", topic)
		}
		seen[topic] = true
	}
	for _, want := range []string{TopicTick, TopicNature, TopicSquare, TopicBank} {
		if !seen[want] {
			t.Errorf("AllTopics() missing %q", want)
		}
	}
}
