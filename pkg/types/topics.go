package types

import "strings"

// Topic paths use / separators. The bus maps them to broker subjects by
// swapping / for . (see ToSubject / FromSubject); handlers always see the
// / form.
const (
	TopicTick       = "/system/tick"
	TopicNature     = "/world/nature"
	TopicSquare     = "/market/square"
	TopicGovernance = "/market/governance"
	TopicBank       = "/market/bank"
	TopicRawGoods   = "/market/raw-goods"
	TopicFood       = "/market/food"
	TopicMaterials  = "/market/materials"
	TopicHousing    = "/market/housing"
	TopicGeneral    = "/market/general"

	// TopicAllMarkets matches every market topic. The trailing > wildcard
	// matches one or more path segments, so /market itself is excluded.
	TopicAllMarkets = "/market/>"

	// TopicAllWorld matches every world topic, gather results included.
	TopicAllWorld = "/world/>"
)

// AgentInbox returns the direct-message topic for one agent.
func AgentInbox(agentID string) string {
	return "/agent/" + agentID + "/inbox"
}

// AllTopics returns the static topic paths, inboxes excluded.
func AllTopics() []string {
	return []string{
		TopicNature,
		TopicSquare,
		TopicGovernance,
		TopicBank,
		TopicRawGoods,
		TopicFood,
		TopicMaterials,
		TopicHousing,
		TopicGeneral,
		TopicTick,
	}
}

// ToSubject converts a topic path to a broker subject:
// /market/raw-goods → market.raw-goods.
func ToSubject(topic string) string {
	return strings.ReplaceAll(strings.TrimPrefix(topic, "/"), "/", ".")
}

// FromSubject converts a broker subject back to a topic path:
// market.raw-goods → /market/raw-goods.
func FromSubject(subject string) string {
	return "/" + strings.ReplaceAll(subject, ".", "/")
}
