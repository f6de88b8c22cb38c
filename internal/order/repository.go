package order

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrDuplicateOrder  = errors.New("order number already exists")
	ErrPaymentNotFound = errors.New("payment not found")
)

// Repository persists orders and payments. Create and update are
// distinct operations; there is no upsert.
type Repository interface {
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, number string) (*Order, error)

	// UpdateStatus persists status, tracking number and the lifecycle
	// timestamps of an existing order.
	UpdateStatus(ctx context.Context, o *Order) error

	SetInvoiceRelayState(ctx context.Context, number string, state RelayState) error
	ListByRelayState(ctx context.Context, state RelayState) ([]*Order, error)

	ListByCustomer(ctx context.Context, customerRef string) ([]*Order, error)
	ListByStatus(ctx context.Context, status Status) ([]*Order, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]*Order, error)

	CreatePayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, orderNumber string) (*Payment, error)
	UpdatePayment(ctx context.Context, p *Payment) error
}

// MemoryRepository is an in-process Repository used by tests and by
// deployments that do not configure Postgres.
type MemoryRepository struct {
	mu       sync.RWMutex
	orders   map[string]*Order
	payments map[string]*Payment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders:   make(map[string]*Order),
		payments: make(map[string]*Payment),
	}
}

func (r *MemoryRepository) CreateOrder(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.Number]; exists {
		return ErrDuplicateOrder
	}
	cp := cloneOrder(o)
	r.orders[o.Number] = cp
	return nil
}

func (r *MemoryRepository) GetOrder(_ context.Context, number string) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[number]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[o.Number]
	if !ok {
		return ErrOrderNotFound
	}
	stored.Status = o.Status
	stored.TrackingNumber = o.TrackingNumber
	stored.ShippedAt = o.ShippedAt
	stored.DeliveredAt = o.DeliveredAt
	stored.UpdatedAt = o.UpdatedAt
	return nil
}

func (r *MemoryRepository) SetInvoiceRelayState(_ context.Context, number string, state RelayState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[number]
	if !ok {
		return ErrOrderNotFound
	}
	o.InvoiceRelayState = state
	return nil
}

func (r *MemoryRepository) ListByRelayState(_ context.Context, state RelayState) ([]*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Order
	for _, o := range r.orders {
		if o.InvoiceRelayState == state {
			out = append(out, cloneOrder(o))
		}
	}
	sortByCreatedDesc(out)
	return out, nil
}

func (r *MemoryRepository) ListByCustomer(_ context.Context, customerRef string) ([]*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Order
	for _, o := range r.orders {
		if o.CustomerRef == customerRef {
			out = append(out, cloneOrder(o))
		}
	}
	sortByCreatedDesc(out)
	return out, nil
}

func (r *MemoryRepository) ListByStatus(_ context.Context, status Status) ([]*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Order
	for _, o := range r.orders {
		if o.Status == status {
			out = append(out, cloneOrder(o))
		}
	}
	sortByCreatedDesc(out)
	return out, nil
}

func (r *MemoryRepository) ListByDateRange(_ context.Context, from, to time.Time) ([]*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Order
	for _, o := range r.orders {
		if !o.CreatedAt.Before(from) && !o.CreatedAt.After(to) {
			out = append(out, cloneOrder(o))
		}
	}
	sortByCreatedDesc(out)
	return out, nil
}

func (r *MemoryRepository) CreatePayment(_ context.Context, p *Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *p
	r.payments[p.OrderNumber] = &cp
	return nil
}

func (r *MemoryRepository) GetPayment(_ context.Context, orderNumber string) (*Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payments[orderNumber]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryRepository) UpdatePayment(_ context.Context, p *Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.payments[p.OrderNumber]; !ok {
		return ErrPaymentNotFound
	}
	cp := *p
	r.payments[p.OrderNumber] = &cp
	return nil
}

func cloneOrder(o *Order) *Order {
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	if o.ShippedAt != nil {
		t := *o.ShippedAt
		cp.ShippedAt = &t
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		cp.DeliveredAt = &t
	}
	return &cp
}

func sortByCreatedDesc(orders []*Order) {
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
