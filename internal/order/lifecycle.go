package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/EndoRodrigo/eCommerce/internal/cart"
	"github.com/EndoRodrigo/eCommerce/internal/inventory"
)

var ErrTrackingNumberRequired = errors.New("tracking number is required to ship an order")

// Lifecycle applies status transitions atomically per order. Each
// order has its own lock so concurrent cancel/ship/deliver calls on
// the same order never race, while distinct orders proceed in
// parallel.
type Lifecycle struct {
	repo  Repository
	guard *inventory.Guard

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLifecycle(repo Repository, guard *inventory.Guard) *Lifecycle {
	return &Lifecycle{
		repo:  repo,
		guard: guard,
		locks: make(map[string]*sync.Mutex),
	}
}

// Pay moves an order to PAID and commits its inventory.
func (l *Lifecycle) Pay(ctx context.Context, number string) (*Order, error) {
	return l.transition(ctx, number, StatusPaid, "")
}

// MarkProcessing moves a paid order into fulfillment.
func (l *Lifecycle) MarkProcessing(ctx context.Context, number string) (*Order, error) {
	return l.transition(ctx, number, StatusProcessing, "")
}

// Ship records the tracking number and moves the order to SHIPPED.
func (l *Lifecycle) Ship(ctx context.Context, number, trackingNumber string) (*Order, error) {
	if trackingNumber == "" {
		return nil, ErrTrackingNumberRequired
	}
	return l.transition(ctx, number, StatusShipped, trackingNumber)
}

// Deliver completes the order.
func (l *Lifecycle) Deliver(ctx context.Context, number string) (*Order, error) {
	return l.transition(ctx, number, StatusDelivered, "")
}

// Cancel terminates a pre-shipment order and restores its inventory.
func (l *Lifecycle) Cancel(ctx context.Context, number string) (*Order, error) {
	return l.transition(ctx, number, StatusCancelled, "")
}

func (l *Lifecycle) transition(ctx context.Context, number string, to Status, trackingNumber string) (*Order, error) {
	lock := l.lockFor(number)
	lock.Lock()
	defer lock.Unlock()

	o, err := l.repo.GetOrder(ctx, number)
	if err != nil {
		return nil, err
	}

	if !CanTransition(o.Status, to) {
		err := InvalidTransitionError{OrderNumber: number, From: o.Status, To: to}
		log.Printf("order: %v", err)
		return nil, err
	}

	// side effects run before the status is persisted; a hook failure
	// leaves the order untouched
	switch to {
	case StatusPaid:
		if err := l.guard.Commit(ctx, number, itemLines(o.Items)); err != nil {
			return nil, fmt.Errorf("commit inventory for order %s: %w", number, err)
		}
	case StatusCancelled:
		if err := l.guard.Restore(ctx, number, itemLines(o.Items)); err != nil {
			return nil, fmt.Errorf("restore inventory for order %s: %w", number, err)
		}
	}

	now := time.Now()
	o.Status = to
	o.UpdatedAt = now
	switch to {
	case StatusShipped:
		o.TrackingNumber = trackingNumber
		o.ShippedAt = &now
	case StatusDelivered:
		o.DeliveredAt = &now
	}

	if err := l.repo.UpdateStatus(ctx, o); err != nil {
		return nil, fmt.Errorf("persist order %s status %s: %w", number, to, err)
	}

	// terminal orders take no further transitions; drop their lock so
	// the map does not grow without bound
	if to.IsTerminal() {
		l.mu.Lock()
		delete(l.locks, number)
		l.mu.Unlock()
	}
	return o, nil
}

func (l *Lifecycle) lockFor(number string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[number]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[number] = lock
	}
	return lock
}

func itemLines(items []Item) []cart.Line {
	lines := make([]cart.Line, len(items))
	for i, item := range items {
		lines[i] = cart.Line{
			ProductRef: item.ProductRef,
			Name:       item.Name,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
		}
	}
	return lines
}
