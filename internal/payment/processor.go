// Package payment authorizes charges against a gateway with per-order
// idempotency.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

type AuthStatus string

const (
	StatusCaptured AuthStatus = "CAPTURED"
	StatusDeclined AuthStatus = "DECLINED"
)

// Status tracks the payment record attached to an order.
type Status string

const (
	PaymentPending   Status = "PENDING"
	PaymentCompleted Status = "COMPLETED"
	PaymentFailed    Status = "FAILED"
)

// Result is the outcome of one authorization attempt. Retryable marks
// infrastructure failures (timeouts, gateway outages) that are safe to
// retry with the same idempotency key, as opposed to genuine declines.
type Result struct {
	Status        AuthStatus `json:"status"`
	TransactionID string     `json:"transaction_id"`
	Retryable     bool       `json:"retryable"`
	Reason        string     `json:"reason,omitempty"`
}

// DeclinedError is a legitimate business outcome, not a fault.
type DeclinedError struct {
	OrderRef string
	Reason   string
}

func (e DeclinedError) Error() string {
	return fmt.Sprintf("payment declined for order %s: %s", e.OrderRef, e.Reason)
}

// GatewayError is a genuine fault: the gateway was unreachable or
// timed out, and the caller may retry with the same idempotency key.
type GatewayError struct {
	OrderRef string
	Err      error
}

func (e GatewayError) Error() string {
	return fmt.Sprintf("payment gateway unavailable for order %s: %v", e.OrderRef, e.Err)
}

func (e GatewayError) Unwrap() error { return e.Err }

// Gateway is the injected charge capability. Implementations must not
// retain the context past the call.
type Gateway interface {
	Charge(ctx context.Context, orderRef string, amount decimal.Decimal, method string) (*Result, error)
}

// Processor wraps a Gateway with idempotency: re-invoking Authorize
// with a key that already captured returns the stored result without a
// second charge.
type Processor struct {
	gateway Gateway
	store   IdempotencyStore
	timeout time.Duration
}

func NewProcessor(gateway Gateway, store IdempotencyStore, timeout time.Duration) *Processor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Processor{gateway: gateway, store: store, timeout: timeout}
}

// Authorize charges the given amount. The returned Result is non-nil
// even on declines so callers can inspect the retryable flag.
func (p *Processor) Authorize(ctx context.Context, orderRef string, amount decimal.Decimal, method, idempotencyKey string) (*Result, error) {
	cached, err := p.store.Get(ctx, idempotencyKey)
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		log.Printf("payment: idempotency lookup for order %s failed, proceeding to gateway: %v", orderRef, err)
	}
	if cached != nil {
		log.Printf("payment: duplicate authorize for order %s key %s, returning stored result %s", orderRef, idempotencyKey, cached.Status)
		if cached.Status == StatusDeclined {
			return cached, DeclinedError{OrderRef: orderRef, Reason: cached.Reason}
		}
		return cached, nil
	}

	chargeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result, err := p.gateway.Charge(chargeCtx, orderRef, amount, method)
	if err != nil {
		// a timeout is a DECLINED outcome that is safe to retry,
		// distinct from a business decline
		return &Result{Status: StatusDeclined, Retryable: true, Reason: err.Error()},
			GatewayError{OrderRef: orderRef, Err: err}
	}

	switch result.Status {
	case StatusCaptured:
		if storeErr := p.store.Put(ctx, idempotencyKey, result); storeErr != nil {
			log.Printf("payment: storing idempotency result for order %s failed: %v", orderRef, storeErr)
		}
		return result, nil
	case StatusDeclined:
		if !result.Retryable {
			if storeErr := p.store.Put(ctx, idempotencyKey, result); storeErr != nil {
				log.Printf("payment: storing idempotency result for order %s failed: %v", orderRef, storeErr)
			}
		}
		return result, DeclinedError{OrderRef: orderRef, Reason: result.Reason}
	default:
		return result, GatewayError{OrderRef: orderRef, Err: fmt.Errorf("unexpected gateway status %q", result.Status)}
	}
}
