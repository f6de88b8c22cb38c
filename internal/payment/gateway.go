package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OutcomeFunc decides the result of a simulated charge. Injected so
// tests substitute deterministic outcomes.
type OutcomeFunc func(orderRef string, amount decimal.Decimal) (AuthStatus, string)

// SimulatedGateway is a stand-in for a real payment provider.
type SimulatedGateway struct {
	outcome OutcomeFunc
}

func NewSimulatedGateway(outcome OutcomeFunc) *SimulatedGateway {
	if outcome == nil {
		outcome = AlwaysApprove
	}
	return &SimulatedGateway{outcome: outcome}
}

func AlwaysApprove(string, decimal.Decimal) (AuthStatus, string) {
	return StatusCaptured, ""
}

func (g *SimulatedGateway) Charge(ctx context.Context, orderRef string, amount decimal.Decimal, _ string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	status, reason := g.outcome(orderRef, amount)
	if status == StatusCaptured {
		return &Result{
			Status:        StatusCaptured,
			TransactionID: fmt.Sprintf("TXN-%s", uuid.New().String()),
		}, nil
	}
	return &Result{Status: StatusDeclined, Reason: reason}, nil
}
