package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Stats summarizes sales over a period. Cancelled orders are excluded.
type Stats struct {
	From              time.Time       `json:"from"`
	To                time.Time       `json:"to"`
	OrderCount        int             `json:"order_count"`
	Revenue           decimal.Decimal `json:"revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
}

// ComputeStats aggregates revenue, order count and average order value
// for orders created in [from, to].
func ComputeStats(ctx context.Context, repo Repository, from, to time.Time) (*Stats, error) {
	orders, err := repo.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		From:              from,
		To:                to,
		Revenue:           decimal.Zero,
		AverageOrderValue: decimal.Zero,
	}
	for _, o := range orders {
		if o.Status == StatusCancelled {
			continue
		}
		stats.OrderCount++
		stats.Revenue = stats.Revenue.Add(o.Total)
	}
	if stats.OrderCount > 0 {
		stats.AverageOrderValue = stats.Revenue.
			Div(decimal.NewFromInt(int64(stats.OrderCount))).
			Round(2)
	}
	return stats, nil
}
