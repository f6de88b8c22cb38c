package invoice

import (
	"context"
	"log"
	"time"

	"github.com/EndoRodrigo/eCommerce/internal/order"
)

// RetryPoller periodically re-submits orders whose invoice handoff
// failed. A successful re-submit flips the order to SUBMITTED; a
// failure leaves it parked in PENDING_RETRY for the next tick.
type RetryPoller struct {
	repo  order.Repository
	relay Relay
	tick  time.Duration
}

func NewRetryPoller(repo order.Repository, relay Relay, tick time.Duration) *RetryPoller {
	if tick <= 0 {
		tick = time.Minute
	}
	return &RetryPoller{repo: repo, relay: relay, tick: tick}
}

func (p *RetryPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.retryPending(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *RetryPoller) retryPending(ctx context.Context) {
	orders, err := p.repo.ListByRelayState(ctx, order.RelayPendingRetry)
	if err != nil {
		log.Printf("invoice: listing pending-retry orders failed: %v", err)
		return
	}

	for _, o := range orders {
		if err := p.relay.Submit(ctx, o); err != nil {
			log.Printf("invoice: retry for order %s failed: %v", o.Number, err)
			continue
		}

		if err := p.repo.SetInvoiceRelayState(ctx, o.Number, order.RelaySubmitted); err != nil {
			log.Printf("invoice: marking order %s as submitted failed: %v", o.Number, err)
			continue
		}
		log.Printf("invoice: order %s relayed after retry", o.Number)
	}
}
