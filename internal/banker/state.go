// Package banker implements the economic authority. The Banker keeps
// every agent's wallet and inventory, maintains the order book, settles
// accepted trades, and credits gathered and crafted goods. Its ledger is
// the canonical one; whatever agents believe locally, the Banker's
// numbers decide.
package banker

import (
	"sync"

	"streetmarket/pkg/types"
)

// Account is one agent's economic state.
type Account struct {
	Wallet    float64        `json:"wallet"`
	Inventory map[string]int `json:"inventory"`
}

// Order is a live offer or bid in the book, keyed by the envelope id of
// the message that placed it.
type Order struct {
	MsgID        string
	Agent        string
	Side         types.MessageType // TypeOffer or TypeBid
	Item         string
	Quantity     int
	PricePerUnit float64 // offer price, or bid max price
	Tick         int64
	ExpiresTick  int64 // 0 = never expires
}

// State holds the ledger and the order book under one lock, so a trade's
// checks and transfers can never interleave with another mutation.
// In-memory only; a restart wipes the economy.
type State struct {
	mu          sync.RWMutex
	currentTick int64
	accounts    map[string]*Account
	orders      map[string]*Order
}

// NewState returns an empty ledger and book at tick 0.
func NewState() *State {
	return &State{
		accounts: make(map[string]*Account),
		orders:   make(map[string]*Order),
	}
}

// AdvanceTick moves the banker's clock.
func (s *State) AdvanceTick(tick int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentTick = tick
}

// CurrentTick returns the tick the banker last advanced to.
func (s *State) CurrentTick() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentTick
}

// ------------------------------------------------------------------
// Accounts
// ------------------------------------------------------------------

// CreateAccount opens an account with the given starting wallet. An
// existing account is replaced; callers that want re-joins to be no-ops
// check HasAccount first.
func (s *State) CreateAccount(agentID string, wallet float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[agentID] = &Account{Wallet: wallet, Inventory: make(map[string]int)}
}

// HasAccount reports whether the agent holds an account.
func (s *State) HasAccount(agentID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[agentID]
	return ok
}

// GetAccount returns a copy of the agent's account.
func (s *State) GetAccount(agentID string) (Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[agentID]
	if !ok {
		return Account{}, false
	}
	return account.snapshot(), true
}

// Accounts returns a copy of every account, keyed by agent id.
func (s *State) Accounts() map[string]Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Account, len(s.accounts))
	for id, account := range s.accounts {
		out[id] = account.snapshot()
	}
	return out
}

// DebitWallet subtracts amount. False when the account is missing or
// short.
func (s *State) DebitWallet(agentID string, amount float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[agentID]
	if !ok || account.Wallet < amount {
		return false
	}
	account.Wallet -= amount
	return true
}

// CreditWallet adds amount. False when the account is missing.
func (s *State) CreditWallet(agentID string, amount float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[agentID]
	if !ok {
		return false
	}
	account.Wallet += amount
	return true
}

// DebitInventory removes items; a count that hits zero drops the key.
// False when the account is missing or holds too few.
func (s *State) DebitInventory(agentID, item string, quantity int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[agentID]
	if !ok {
		return false
	}
	return account.debitInventory(item, quantity)
}

// CreditInventory adds items. False when the account is missing.
func (s *State) CreditInventory(agentID, item string, quantity int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[agentID]
	if !ok {
		return false
	}
	account.Inventory[item] += quantity
	return true
}

// HasInventory reports whether the agent holds at least quantity of
// item.
func (s *State) HasInventory(agentID, item string, quantity int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[agentID]
	if !ok {
		return false
	}
	return account.Inventory[item] >= quantity
}

// Transfer executes a settled trade in one atomic step: the buyer's
// wallet funds the seller's, the seller's goods move to the buyer, and
// the filled order shrinks or leaves the book. Money and goods are
// conserved; no observer can see a half-applied trade.
func (s *State) Transfer(buyer, seller, item string, quantity int, total float64, orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buyerAcct := s.accounts[buyer]
	sellerAcct := s.accounts[seller]

	buyerAcct.Wallet -= total
	sellerAcct.Wallet += total
	sellerAcct.debitInventory(item, quantity)
	buyerAcct.Inventory[item] += quantity

	if order, ok := s.orders[orderID]; ok {
		order.Quantity -= quantity
		if order.Quantity <= 0 {
			delete(s.orders, orderID)
		}
	}
}

// ------------------------------------------------------------------
// Order book
// ------------------------------------------------------------------

// AddOrder places an order in the book.
func (s *State) AddOrder(order Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.MsgID] = &order
}

// GetOrder returns a copy of the order with the given message id.
func (s *State) GetOrder(msgID string) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[msgID]
	if !ok {
		return Order{}, false
	}
	return *order, true
}

// Orders returns a copy of the whole book.
func (s *State) Orders() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Order, 0, len(s.orders))
	for _, order := range s.orders {
		out = append(out, *order)
	}
	return out
}

// OrderCount returns how many orders are live.
func (s *State) OrderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// PurgeExpired drops every order whose expiry is at or before the
// current tick and returns the removed orders.
func (s *State) PurgeExpired() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []Order
	for msgID, order := range s.orders {
		if order.ExpiresTick != 0 && order.ExpiresTick <= s.currentTick {
			expired = append(expired, *order)
			delete(s.orders, msgID)
		}
	}
	return expired
}

func (a *Account) snapshot() Account {
	out := Account{Wallet: a.Wallet, Inventory: make(map[string]int, len(a.Inventory))}
	for item, count := range a.Inventory {
		out.Inventory[item] = count
	}
	return out
}

func (a *Account) debitInventory(item string, quantity int) bool {
	current := a.Inventory[item]
	if current < quantity {
		return false
	}
	if current == quantity {
		delete(a.Inventory, item)
	} else {
		a.Inventory[item] = current - quantity
	}
	return true
}
