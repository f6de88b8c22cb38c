// Package notify delivers fire-and-forget operational alerts. Sinks
// are best-effort: delivery failures are reported to the caller for
// logging but never block or abort the operation that raised them.
package notify

import (
	"context"

	"github.com/shopspring/decimal"
)

type Sink interface {
	// LowStock signals that a product fell to or below its reorder
	// threshold after an inventory commit.
	LowStock(ctx context.Context, productRef string, remaining int) error

	// OrderConfirmed signals a successfully placed order.
	OrderConfirmed(ctx context.Context, orderNumber string, total decimal.Decimal) error

	// HighValueSale flags an order whose total crossed the configured
	// review threshold.
	HighValueSale(ctx context.Context, orderNumber string, total decimal.Decimal) error
}

// NoopSink discards every notification. Used when no broker is
// configured.
type NoopSink struct{}

func (NoopSink) LowStock(context.Context, string, int) error                    { return nil }
func (NoopSink) OrderConfirmed(context.Context, string, decimal.Decimal) error  { return nil }
func (NoopSink) HighValueSale(context.Context, string, decimal.Decimal) error   { return nil }
