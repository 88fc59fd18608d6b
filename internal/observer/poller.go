package observer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"streetmarket/internal/agent"
	"streetmarket/internal/config"
)

// Poller periodically scrapes each agent's status API and merges the
// results into the tracker. Agents advertise the URL in their JOIN, the
// tracker keeps the list, the poller walks it. One shared limiter keeps
// the total request rate flat no matter how many agents are running.
type Poller struct {
	http     *resty.Client
	tracker  *Tracker
	limiter  *rate.Limiter
	interval time.Duration
	logger   *slog.Logger
}

// NewPoller creates an agent status poller.
func NewPoller(cfg config.ObserverConfig, tracker *Tracker, logger *slog.Logger) *Poller {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(1).
		SetRetryWaitTime(500 * time.Millisecond)

	return &Poller{
		http:     client,
		tracker:  tracker,
		limiter:  rate.NewLimiter(rate.Limit(cfg.PollRate), 1),
		interval: cfg.PollInterval,
		logger:   logger.With("component", "poller"),
	}
}

// Run starts the polling loop. Blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	// Immediate pass on startup
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	for _, target := range p.tracker.PollTargets() {
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}
		status, err := p.fetchStatus(ctx, target.APIURL)
		if err != nil {
			p.logger.Warn("status poll failed", "agent", target.AgentID, "error", err)
			continue
		}
		p.tracker.SetAgentStatus(target.AgentID, *status)
	}
}

func (p *Poller) fetchStatus(ctx context.Context, apiURL string) (*agent.Status, error) {
	var status agent.Status
	resp, err := p.http.R().
		SetContext(ctx).
		SetResult(&status).
		Get(apiURL + "/status")
	if err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("fetch status: status %d", resp.StatusCode())
	}
	return &status, nil
}
