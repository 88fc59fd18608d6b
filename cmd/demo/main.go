// Demo — a scripted three-message trade against a live broker: a farmer
// offers potatoes, a chef bids for half of them, the farmer accepts.
// Every message is printed as it echoes back off the bus. Run a broker
// first; run the banker too and the accept turns into a settlement.
//
// Exits 0 once all three messages echo back (or a settlement shows up),
// 1 on timeout.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"streetmarket/internal/bus"
	"streetmarket/internal/config"
	"streetmarket/pkg/types"
)

const echoTimeout = 15 * time.Second

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("MARKET_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}

	logger := cfg.Logging.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	busClient, err := bus.Connect(ctx, cfg.Bus, logger)
	if err != nil {
		logger.Error("failed to connect to bus", "error", err)
		os.Exit(1)
	}
	defer busClient.Close()

	seen := make(chan types.Envelope, 64)
	watch := func(env types.Envelope) {
		fmt.Printf("[%s] %s from %s: %s\n", env.Topic, env.Type, env.From, string(env.Payload))
		seen <- env
	}
	for _, topic := range []string{types.TopicRawGoods, types.TopicBank} {
		if err := busClient.Subscribe(topic, watch); err != nil {
			logger.Error("failed to subscribe", "topic", topic, "error", err)
			os.Exit(1)
		}
	}

	offer := send(logger, busClient, "farmer-01", types.TopicRawGoods, 42, types.Offer{
		Item:         "potato",
		Quantity:     10,
		PricePerUnit: 3.0,
		ExpiresTick:  150,
	})
	bid := send(logger, busClient, "chef-01", types.TopicRawGoods, 42, types.Bid{
		Item:            "potato",
		Quantity:        5,
		MaxPricePerUnit: 4.0,
		TargetAgent:     "farmer-01",
	})
	accept := send(logger, busClient, "farmer-01", types.TopicRawGoods, 43, types.Accept{
		ReferenceMsgID: bid.ID,
		Quantity:       5,
	})

	pending := map[string]bool{offer.ID: true, bid.ID: true, accept.ID: true}
	deadline := time.After(echoTimeout)
	for len(pending) > 0 {
		select {
		case env := <-seen:
			delete(pending, env.ID)
			if env.Type == types.TypeSettlement {
				fmt.Println("trade settled, the market works")
				return
			}
		case <-deadline:
			logger.Error("timed out waiting for echoes", "missing", len(pending))
			os.Exit(1)
		case <-ctx.Done():
			return
		}
	}
	fmt.Println("all three messages echoed back, the bus works")
}

// send validates and publishes one message, exiting on any failure.
func send(logger *slog.Logger, b bus.Bus, from, topic string, tick int64, payload types.Payload) types.Envelope {
	env, err := types.NewMessage(from, topic, tick, payload)
	if err != nil {
		logger.Error("failed to build message", "error", err)
		os.Exit(1)
	}
	if problems := types.ValidateEnvelope(env); len(problems) > 0 {
		logger.Error("refusing to send invalid message",
			"type", env.Type,
			"problems", strings.Join(problems, "; "),
		)
		os.Exit(1)
	}
	if err := b.Publish(env); err != nil {
		logger.Error("failed to publish", "error", err)
		os.Exit(1)
	}
	return env
}
