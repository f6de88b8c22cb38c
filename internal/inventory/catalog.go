package inventory

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

// Product is the catalog's view of a sellable item.
type Product struct {
	Ref              string
	Name             string
	UnitPrice        decimal.Decimal
	Stock            int
	ReorderThreshold int
}

// Catalog is the external product/stock collaborator. DecrementStock
// must re-check availability atomically with the decrement and fail
// with InsufficientStockError when qty exceeds current stock; stock
// never goes negative. It returns the stock level left after the
// decrement so callers can detect reorder conditions without a second
// lookup.
type Catalog interface {
	FindProduct(ctx context.Context, ref string) (*Product, error)
	DecrementStock(ctx context.Context, ref string, qty int) (remaining int, err error)
	IncrementStock(ctx context.Context, ref string, qty int) error
}

// MemoryCatalog implements Catalog with in-memory storage.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]*Product
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{products: make(map[string]*Product)}
}

// SetProduct registers or replaces a product.
func (c *MemoryCatalog) SetProduct(p Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.Ref] = &p
}

func (c *MemoryCatalog) FindProduct(_ context.Context, ref string) (*Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[ref]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (c *MemoryCatalog) DecrementStock(_ context.Context, ref string, qty int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[ref]
	if !ok {
		return 0, ErrProductNotFound
	}
	if p.Stock < qty {
		return p.Stock, InsufficientStockError{Shortages: []Shortage{
			{ProductRef: ref, Requested: qty, Available: p.Stock},
		}}
	}
	p.Stock -= qty
	return p.Stock, nil
}

func (c *MemoryCatalog) IncrementStock(_ context.Context, ref string, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[ref]
	if !ok {
		return ErrProductNotFound
	}
	p.Stock += qty
	return nil
}
