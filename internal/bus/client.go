// Package bus connects services to the shared NATS message bus.
//
// Topic paths use / separators on the API surface and map to NATS
// subjects (. separators) on the wire; handlers always see the / form
// carried inside the envelope. When the broker has JetStream the client
// pins a STREETMARKET stream over the four subject trees; on brokers
// without it, publish and subscribe degrade to core NATS transparently.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"streetmarket/internal/config"
	"streetmarket/pkg/types"
)

const (
	streamName = "STREETMARKET"
	closeWait  = 5 * time.Second // how long Close waits for the drain to finish
)

// streamSubjects covers every topic tree the protocol uses.
var streamSubjects = []string{"world.>", "market.>", "agent.>", "system.>"}

// Handler consumes one decoded envelope. Handler invocations for a single
// subscription are serialized in delivery order.
type Handler func(env types.Envelope)

// Bus is the publish/subscribe surface services program against.
// *Client implements it against a real broker; bustest.Bus implements it
// in memory for tests.
type Bus interface {
	Publish(env types.Envelope) error
	Subscribe(topic string, handler Handler) error
	Close()
}

// Client is a NATS-backed Bus.
type Client struct {
	nc     *nats.Conn
	js     nats.JetStreamContext // nil when running core-only
	logger *slog.Logger

	mu   sync.Mutex
	subs []*nats.Subscription

	closed chan struct{} // closed by the connection's ClosedHandler
}

// Connect dials the broker, retrying cfg.ConnectAttempts times spaced by
// cfg.ConnectBackoff before giving up. With the defaults that is ten
// attempts over roughly twenty seconds.
func Connect(ctx context.Context, cfg config.BusConfig, logger *slog.Logger) (*Client, error) {
	log := logger.With("component", "bus")
	closed := make(chan struct{})

	opts := []nats.Option{
		nats.MaxReconnects(cfg.ConnectAttempts),
		nats.ReconnectWait(cfg.ConnectBackoff),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("bus disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("bus reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			close(closed)
		}),
	}

	var nc *nats.Conn
	var err error
	for attempt := 1; attempt <= cfg.ConnectAttempts; attempt++ {
		nc, err = nats.Connect(cfg.URL, opts...)
		if err == nil {
			break
		}
		log.Warn("bus connect failed",
			"attempt", attempt,
			"attempts", cfg.ConnectAttempts,
			"error", err,
		)
		if attempt == cfg.ConnectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.ConnectBackoff):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to %s after %d attempts: %w", cfg.URL, cfg.ConnectAttempts, err)
	}

	c := &Client{nc: nc, logger: log, closed: closed}

	if !cfg.CoreOnly {
		if err := c.ensureStream(); err != nil {
			log.Warn("jetstream unavailable, using core delivery", "error", err)
			c.js = nil
		}
	}

	log.Info("bus connected", "url", nc.ConnectedUrl(), "jetstream", c.js != nil)
	return c, nil
}

func (c *Client) ensureStream() error {
	js, err := c.nc.JetStream()
	if err != nil {
		return err
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: streamSubjects,
		Storage:  nats.MemoryStorage, // the economy is ephemeral, nothing survives a broker restart
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return err
	}
	c.js = js
	return nil
}

// Publish serializes the envelope and sends it on the subject for
// env.Topic. Fails once the connection is closed.
func (c *Client) Publish(env types.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope %s: %w", env.ID, err)
	}
	subject := types.ToSubject(env.Topic)
	if c.js != nil {
		if _, err := c.js.Publish(subject, data); err != nil {
			return fmt.Errorf("publish to %s: %w", subject, err)
		}
		return nil
	}
	if err := c.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers a handler for a topic pattern. Patterns may end in
// the > wildcard, which matches one or more trailing path segments.
// JetStream subscriptions deliver new messages only, so a restarted
// service never replays history; if the stream subscription fails the
// client falls back to core NATS for that topic.
func (c *Client) Subscribe(topic string, handler Handler) error {
	subject := types.ToSubject(topic)
	cb := c.wrap(subject, handler)

	if c.js != nil {
		sub, err := c.js.Subscribe(subject, cb, nats.DeliverNew())
		if err == nil {
			c.track(sub)
			c.logger.Info("subscribed", "subject", subject, "jetstream", true)
			return nil
		}
		c.logger.Debug("jetstream subscribe failed, falling back to core",
			"subject", subject,
			"error", err,
		)
	}

	sub, err := c.nc.Subscribe(subject, cb)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	c.track(sub)
	c.logger.Info("subscribed", "subject", subject, "jetstream", false)
	return nil
}

// wrap decodes incoming messages and shields the subscription from
// handler panics. Malformed payloads are logged and dropped, never
// delivered.
func (c *Client) wrap(subject string, handler Handler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		env, err := types.ParseEnvelope(msg.Data)
		if err != nil {
			c.logger.Warn("dropping malformed message", "subject", msg.Subject, "error", err)
			return
		}
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("handler panicked", "subject", subject, "id", env.ID, "panic", r)
			}
		}()
		handler(env)
	}
}

func (c *Client) track(sub *nats.Subscription) {
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
}

// Close tears down subscriptions and drains the connection, waiting
// briefly for in-flight handlers to finish.
func (c *Client) Close() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			c.logger.Debug("unsubscribe", "error", err)
		}
	}
	if err := c.nc.Drain(); err != nil {
		c.logger.Warn("drain", "error", err)
		c.nc.Close()
		return
	}
	select {
	case <-c.closed:
	case <-time.After(closeWait):
		c.logger.Warn("drain timed out, forcing close")
		c.nc.Close()
	}
	c.logger.Info("bus closed")
}
