// Package inventory validates, commits and restores stock for orders.
package inventory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/EndoRodrigo/eCommerce/internal/cart"
	"github.com/EndoRodrigo/eCommerce/internal/notify"
)

// Shortage describes one line that cannot be fulfilled.
type Shortage struct {
	ProductRef string `json:"product_ref"`
	Requested  int    `json:"requested"`
	Available  int    `json:"available"`
}

// InsufficientStockError reports every shortage in a batch, not just
// the first one found.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e InsufficientStockError) Error() string {
	refs := make([]string, len(e.Shortages))
	for i, s := range e.Shortages {
		refs[i] = fmt.Sprintf("%s (requested %d, available %d)", s.ProductRef, s.Requested, s.Available)
	}
	return "insufficient stock: " + strings.Join(refs, ", ")
}

// Guard mediates all stock mutations for orders. Commit and Restore
// are tracked per order number so a repeated Restore is a no-op.
type Guard struct {
	catalog Catalog
	sink    notify.Sink

	mu        sync.Mutex
	committed map[string]bool
	restored  map[string]bool
}

func NewGuard(catalog Catalog, sink notify.Sink) *Guard {
	if sink == nil {
		sink = notify.NoopSink{}
	}
	return &Guard{
		catalog:   catalog,
		sink:      sink,
		committed: make(map[string]bool),
		restored:  make(map[string]bool),
	}
}

// Validate batch-checks every line against current stock and reports
// all shortages together.
func (g *Guard) Validate(ctx context.Context, lines []cart.Line) error {
	var shortages []Shortage
	for _, line := range lines {
		p, err := g.catalog.FindProduct(ctx, line.ProductRef)
		if err != nil {
			if err == ErrProductNotFound {
				shortages = append(shortages, Shortage{ProductRef: line.ProductRef, Requested: line.Quantity})
				continue
			}
			return fmt.Errorf("look up product %s: %w", line.ProductRef, err)
		}
		if p.Stock < line.Quantity {
			shortages = append(shortages, Shortage{
				ProductRef: line.ProductRef,
				Requested:  line.Quantity,
				Available:  p.Stock,
			})
		}
	}
	if len(shortages) > 0 {
		return InsufficientStockError{Shortages: shortages}
	}
	return nil
}

// Commit decrements stock per line. The order is marked committed
// only once every line applied; a mid-batch failure puts the already
// decremented lines back so a failed commit leaves stock untouched.
// When a line's remaining stock falls to or below its reorder
// threshold a low-stock signal is emitted without blocking the commit.
func (g *Guard) Commit(ctx context.Context, orderNumber string, lines []cart.Line) error {
	g.mu.Lock()
	if g.committed[orderNumber] {
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	for i, line := range lines {
		remaining, err := g.catalog.DecrementStock(ctx, line.ProductRef, line.Quantity)
		if err != nil {
			g.rollback(ctx, orderNumber, lines[:i])
			return fmt.Errorf("decrement stock for %s (order %s): %w", line.ProductRef, orderNumber, err)
		}

		p, err := g.catalog.FindProduct(ctx, line.ProductRef)
		if err != nil {
			log.Printf("inventory: reorder check for %s failed after commit of order %s: %v", line.ProductRef, orderNumber, err)
			continue
		}
		if remaining <= p.ReorderThreshold {
			g.notifyLowStock(line.ProductRef, remaining)
		}
	}

	g.mu.Lock()
	g.committed[orderNumber] = true
	g.mu.Unlock()
	return nil
}

// rollback puts back the lines a failed commit already decremented.
func (g *Guard) rollback(ctx context.Context, orderNumber string, applied []cart.Line) {
	for _, line := range applied {
		if err := g.catalog.IncrementStock(ctx, line.ProductRef, line.Quantity); err != nil {
			log.Printf("inventory: rollback of %s for failed commit of order %s: %v", line.ProductRef, orderNumber, err)
		}
	}
}

// Restore increments stock back for a cancelled order. Orders whose
// inventory was never committed are skipped, and restoring the same
// order twice changes stock only once.
func (g *Guard) Restore(ctx context.Context, orderNumber string, lines []cart.Line) error {
	g.mu.Lock()
	if !g.committed[orderNumber] || g.restored[orderNumber] {
		g.mu.Unlock()
		return nil
	}
	g.restored[orderNumber] = true
	g.mu.Unlock()

	for _, line := range lines {
		if err := g.catalog.IncrementStock(ctx, line.ProductRef, line.Quantity); err != nil {
			return fmt.Errorf("restore stock for %s (order %s): %w", line.ProductRef, orderNumber, err)
		}
	}
	return nil
}

func (g *Guard) notifyLowStock(productRef string, remaining int) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.sink.LowStock(ctx, productRef, remaining); err != nil {
			log.Printf("inventory: low-stock notification for %s failed: %v", productRef, err)
		}
	}()
}
