// Package bustest provides an in-memory bus.Bus for tests.
//
// Delivery is synchronous: Publish runs every matching handler before it
// returns, in bus order. Messages a handler publishes while handling are
// queued and delivered after the current message finishes, exactly like a
// real broker would sequence them, so services that react to their own
// traffic never re-enter their handlers.
package bustest

import (
	"errors"
	"strings"
	"sync"

	"streetmarket/internal/bus"
	"streetmarket/pkg/types"
)

// Bus is a deterministic in-memory implementation of bus.Bus.
type Bus struct {
	mu        sync.Mutex
	subs      []subscription
	queue     []types.Envelope
	draining  bool
	published []types.Envelope
	closed    bool
}

type subscription struct {
	pattern string
	handler bus.Handler
}

// New returns an empty in-memory bus.
func New() *Bus {
	return &Bus{}
}

// Publish records the envelope and delivers it to every matching
// subscription. When called from outside a handler it returns only after
// the whole cascade (including messages handlers published in response)
// has been delivered.
func (b *Bus) Publish(env types.Envelope) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New("bustest: bus closed")
	}
	b.published = append(b.published, env)
	b.queue = append(b.queue, env)
	if b.draining {
		// A drain is already running further down the stack (or on
		// another goroutine); it will pick this message up.
		b.mu.Unlock()
		return nil
	}
	b.draining = true
	for len(b.queue) > 0 {
		next := b.queue[0]
		b.queue = b.queue[1:]

		matched := make([]bus.Handler, 0, len(b.subs))
		for _, sub := range b.subs {
			if topicMatches(sub.pattern, next.Topic) {
				matched = append(matched, sub.handler)
			}
		}
		b.mu.Unlock()
		for _, handler := range matched {
			handler(next)
		}
		b.mu.Lock()
	}
	b.draining = false
	b.mu.Unlock()
	return nil
}

// Subscribe registers a handler for a topic pattern. Patterns may end in
// the > wildcard, which matches one or more trailing path segments.
func (b *Bus) Subscribe(topic string, handler bus.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("bustest: bus closed")
	}
	b.subs = append(b.subs, subscription{pattern: topic, handler: handler})
	return nil
}

// Close drops all subscriptions; later publishes fail.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = nil
}

// Published returns a copy of every envelope published so far, in order.
func (b *Bus) Published() []types.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.Envelope, len(b.published))
	copy(out, b.published)
	return out
}

// PublishedTo returns published envelopes whose topic equals topic.
func (b *Bus) PublishedTo(topic string) []types.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []types.Envelope
	for _, env := range b.published {
		if env.Topic == topic {
			out = append(out, env)
		}
	}
	return out
}

// LastOfType returns the most recent published envelope of the given
// kind, if any.
func (b *Bus) LastOfType(t types.MessageType) (types.Envelope, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.published) - 1; i >= 0; i-- {
		if b.published[i].Type == t {
			return b.published[i], true
		}
	}
	return types.Envelope{}, false
}

// topicMatches reports whether a subscription pattern matches a concrete
// topic path. Only the trailing > wildcard is supported: it matches one
// or more segments, so /market/> matches /market/food but not /market.
func topicMatches(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	if !strings.HasSuffix(pattern, "/>") {
		return false
	}
	prefix := strings.TrimSuffix(pattern, ">")
	return strings.HasPrefix(topic, prefix) && len(topic) > len(prefix)
}
