package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EndoRodrigo/eCommerce/internal/cart"
)

// recordingSink captures notifications for assertions.
type recordingSink struct {
	mu       sync.Mutex
	lowStock []string
}

func (s *recordingSink) LowStock(_ context.Context, productRef string, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lowStock = append(s.lowStock, productRef)
	return nil
}

func (s *recordingSink) OrderConfirmed(context.Context, string, decimal.Decimal) error { return nil }
func (s *recordingSink) HighValueSale(context.Context, string, decimal.Decimal) error  { return nil }

func (s *recordingSink) lowStockRefs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lowStock...)
}

func setupGuard(t *testing.T) (*Guard, *MemoryCatalog, *recordingSink) {
	t.Helper()
	catalog := NewMemoryCatalog()
	sink := &recordingSink{}
	return NewGuard(catalog, sink), catalog, sink
}

func lines(refQty ...any) []cart.Line {
	var out []cart.Line
	for i := 0; i < len(refQty); i += 2 {
		out = append(out, cart.Line{ProductRef: refQty[i].(string), Quantity: refQty[i+1].(int)})
	}
	return out
}

func TestValidate_OK(t *testing.T) {
	guard, catalog, _ := setupGuard(t)
	catalog.SetProduct(Product{Ref: "SKU1", Stock: 10})

	err := guard.Validate(context.Background(), lines("SKU1", 5))
	require.NoError(t, err)
}

func TestValidate_ReportsShortage(t *testing.T) {
	guard, catalog, _ := setupGuard(t)
	catalog.SetProduct(Product{Ref: "SKU1", Stock: 5})

	err := guard.Validate(context.Background(), lines("SKU1", 6))

	var stockErr InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortages, 1)
	assert.Equal(t, "SKU1", stockErr.Shortages[0].ProductRef)
	assert.Equal(t, 6, stockErr.Shortages[0].Requested)
	assert.Equal(t, 5, stockErr.Shortages[0].Available)
	assert.Contains(t, err.Error(), "SKU1")
}

func TestValidate_BatchesAllShortages(t *testing.T) {
	guard, catalog, _ := setupGuard(t)
	catalog.SetProduct(Product{Ref: "SKU1", Stock: 1})
	catalog.SetProduct(Product{Ref: "SKU2", Stock: 100})
	catalog.SetProduct(Product{Ref: "SKU3", Stock: 0})

	err := guard.Validate(context.Background(), lines("SKU1", 2, "SKU2", 3, "SKU3", 1, "MISSING", 1))

	var stockErr InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortages, 3)

	refs := make([]string, len(stockErr.Shortages))
	for i, s := range stockErr.Shortages {
		refs[i] = s.ProductRef
	}
	assert.ElementsMatch(t, []string{"SKU1", "SKU3", "MISSING"}, refs)
}

func TestCommit_DecrementsStock(t *testing.T) {
	guard, catalog, _ := setupGuard(t)
	catalog.SetProduct(Product{Ref: "SKU1", Stock: 10})
	catalog.SetProduct(Product{Ref: "SKU2", Stock: 4})

	require.NoError(t, guard.Commit(context.Background(), "ORD-1", lines("SKU1", 3, "SKU2", 1)))

	p1, _ := catalog.FindProduct(context.Background(), "SKU1")
	p2, _ := catalog.FindProduct(context.Background(), "SKU2")
	assert.Equal(t, 7, p1.Stock)
	assert.Equal(t, 3, p2.Stock)
}

func TestCommit_Idempotent(t *testing.T) {
	guard, catalog, _ := setupGuard(t)
	catalog.SetProduct(Product{Ref: "SKU1", Stock: 10})

	require.NoError(t, guard.Commit(context.Background(), "ORD-1", lines("SKU1", 3)))
	require.NoError(t, guard.Commit(context.Background(), "ORD-1", lines("SKU1", 3)))

	p, _ := catalog.FindProduct(context.Background(), "SKU1")
	assert.Equal(t, 7, p.Stock)
}

func TestDecrementStock_RefusesOversell(t *testing.T) {
	catalog := NewMemoryCatalog()
	catalog.SetProduct(Product{Ref: "SKU1", Stock: 1})

	_, err := catalog.DecrementStock(context.Background(), "SKU1", 2)

	var stockErr InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	p, _ := catalog.FindProduct(context.Background(), "SKU1")
	assert.Equal(t, 1, p.Stock)
}

func TestDecrementStock_LastUnitRace(t *testing.T) {
	catalog := NewMemoryCatalog()
	catalog.SetProduct(Product{Ref: "SKU1", Stock: 1})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = catalog.DecrementStock(context.Background(), "SKU1", 1)
		}(i)
	}
	wg.Wait()

	// exactly one caller gets the last unit
	var failed int
	for _, err := range errs {
		if err != nil {
			failed++
			var stockErr InsufficientStockError
			assert.ErrorAs(t, err, &stockErr)
		}
	}
	assert.Equal(t, 1, failed)
	p, _ := catalog.FindProduct(context.Background(), "SKU1")
	assert.Equal(t, 0, p.Stock)
}

func TestCommit_PartialFailureRollsBack(t *testing.T) {
	guard, catalog, _ := setupGuard(t)
	catalog.SetProduct(Product{Ref: "SKU1", Stock: 10})
	catalog.SetProduct(Product{Ref: "SKU2", Stock: 0})

	err := guard.Commit(context.Background(), "ORD-1", lines("SKU1", 2, "SKU2", 1))
	require.Error(t, err)

	// the applied first line is restored, nothing half-decremented
	p1, _ := catalog.FindProduct(context.Background(), "SKU1")
	assert.Equal(t, 10, p1.Stock)

	// the failed commit left no committed flag, so restocking and
	// retrying applies the full batch exactly once
	catalog.SetProduct(Product{Ref: "SKU2", Stock: 5})
	require.NoError(t, guard.Commit(context.Background(), "ORD-1", lines("SKU1", 2, "SKU2", 1)))
	p1, _ = catalog.FindProduct(context.Background(), "SKU1")
	p2, _ := catalog.FindProduct(context.Background(), "SKU2")
	assert.Equal(t, 8, p1.Stock)
	assert.Equal(t, 4, p2.Stock)
}

func TestCommit_EmitsLowStockSignal(t *testing.T) {
	guard, catalog, sink := setupGuard(t)
	catalog.SetProduct(Product{Ref: "SKU1", Stock: 10, ReorderThreshold: 8})
	catalog.SetProduct(Product{Ref: "SKU2", Stock: 100, ReorderThreshold: 5})

	require.NoError(t, guard.Commit(context.Background(), "ORD-1", lines("SKU1", 3, "SKU2", 1)))

	// signal is async
	assert.Eventually(t, func() bool {
		refs := sink.lowStockRefs()
		return len(refs) == 1 && refs[0] == "SKU1"
	}, time.Second, 10*time.Millisecond)
}

func TestRestore_Idempotent(t *testing.T) {
	guard, catalog, _ := setupGuard(t)
	catalog.SetProduct(Product{Ref: "SKU1", Stock: 10})

	require.NoError(t, guard.Commit(context.Background(), "ORD-1", lines("SKU1", 4)))

	require.NoError(t, guard.Restore(context.Background(), "ORD-1", lines("SKU1", 4)))
	require.NoError(t, guard.Restore(context.Background(), "ORD-1", lines("SKU1", 4)))

	// stock changed only once
	p, _ := catalog.FindProduct(context.Background(), "SKU1")
	assert.Equal(t, 10, p.Stock)
}

func TestRestore_SkipsUncommittedOrder(t *testing.T) {
	guard, catalog, _ := setupGuard(t)
	catalog.SetProduct(Product{Ref: "SKU1", Stock: 10})

	// cancelling an order that never committed must not inflate stock
	require.NoError(t, guard.Restore(context.Background(), "ORD-1", lines("SKU1", 4)))

	p, _ := catalog.FindProduct(context.Background(), "SKU1")
	assert.Equal(t, 10, p.Stock)
}
