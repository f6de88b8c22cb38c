package checkout

import (
	"context"
	"errors"
	"sync"
)

var ErrCustomerNotFound = errors.New("customer not found")

// Customer is the slice of the customer record checkout needs.
type Customer struct {
	Ref   string `json:"ref"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CustomerDirectory resolves customer references at checkout time.
type CustomerDirectory interface {
	FindCustomer(ctx context.Context, ref string) (*Customer, error)
}

// MemoryDirectory is an in-process CustomerDirectory for tests and for
// running without an external directory.
type MemoryDirectory struct {
	mu        sync.RWMutex
	customers map[string]Customer
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{customers: make(map[string]Customer)}
}

func (d *MemoryDirectory) SetCustomer(c Customer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.customers[c.Ref] = c
}

func (d *MemoryDirectory) FindCustomer(_ context.Context, ref string) (*Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.customers[ref]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	return &c, nil
}
