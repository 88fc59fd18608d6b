package agent

// ActionKind names every move a strategy can make.
type ActionKind string

const (
	ActionGather        ActionKind = "gather"
	ActionOffer         ActionKind = "offer"
	ActionBid           ActionKind = "bid"
	ActionAccept        ActionKind = "accept"
	ActionCraftStart    ActionKind = "craft_start"
	ActionCraftComplete ActionKind = "craft_complete"
	ActionHeartbeat     ActionKind = "heartbeat"
	ActionJoin          ActionKind = "join"
)

// Action is one decision from a strategy. Strategies return plain data;
// the runtime turns it into bus traffic. Only the fields the kind needs
// are set.
type Action struct {
	Kind     ActionKind
	SpawnID  string  // gather
	Item     string  // gather, offer, bid
	Quantity int     // gather, offer, bid, accept
	Price    float64 // offer price, or bid max price
	Target   string  // bid: optional directed counterparty
	RefID    string  // accept: the order being taken
	Topic    string  // accept: where the order was seen
	Recipe   string  // craft_start, craft_complete
}

// Gather claims quantity of item from the given spawn.
func Gather(spawnID, item string, quantity int) Action {
	return Action{Kind: ActionGather, SpawnID: spawnID, Item: item, Quantity: quantity}
}

// Offer posts a sell order.
func Offer(item string, quantity int, pricePerUnit float64) Action {
	return Action{Kind: ActionOffer, Item: item, Quantity: quantity, Price: pricePerUnit}
}

// Bid posts a buy order. target may be empty for an open bid.
func Bid(item string, quantity int, maxPricePerUnit float64, target string) Action {
	return Action{Kind: ActionBid, Item: item, Quantity: quantity, Price: maxPricePerUnit, Target: target}
}

// Accept takes a standing order, publishing to the topic it was seen on.
func Accept(refID string, quantity int, topic string) Action {
	return Action{Kind: ActionAccept, RefID: refID, Quantity: quantity, Topic: topic}
}

// CraftStart begins the named recipe.
func CraftStart(recipe string) Action {
	return Action{Kind: ActionCraftStart, Recipe: recipe}
}

// CraftComplete finishes the named recipe.
func CraftComplete(recipe string) Action {
	return Action{Kind: ActionCraftComplete, Recipe: recipe}
}
