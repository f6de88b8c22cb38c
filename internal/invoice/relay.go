// Package invoice hands finished orders to the external billing API.
// The local order is the source of truth: a failed relay is
// compensated by retry, never by rolling the order back.
package invoice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/EndoRodrigo/eCommerce/internal/order"
)

// Relay submits an order to the invoicing backend.
type Relay interface {
	Submit(ctx context.Context, o *order.Order) error
}

// NoopRelay discards every order. Used when no billing API is
// configured.
type NoopRelay struct{}

func (NoopRelay) Submit(context.Context, *order.Order) error { return nil }

// RelayError marks a failed handoff. It is compensating: callers flag
// the order for retry instead of reverting it.
type RelayError struct {
	OrderNumber string
	StatusCode  int
	Err         error
}

func (e RelayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invoice relay for order %s failed: %v", e.OrderNumber, e.Err)
	}
	return fmt.Sprintf("invoice relay for order %s failed: status %d", e.OrderNumber, e.StatusCode)
}

func (e RelayError) Unwrap() error { return e.Err }

// HTTPRelay posts orders to a bills/validate endpoint with a bearer
// token. A circuit breaker sheds calls while the backend is down so a
// dead billing API cannot slow down checkouts.
type HTTPRelay struct {
	client  *http.Client
	baseURL string
	token   string
	breaker *gobreaker.CircuitBreaker[int]
}

func NewHTTPRelay(baseURL, token string, timeout time.Duration) *HTTPRelay {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	settings := gobreaker.Settings{
		Name:    "invoice-relay",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &HTTPRelay{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		token:   token,
		breaker: gobreaker.NewCircuitBreaker[int](settings),
	}
}

func (r *HTTPRelay) Submit(ctx context.Context, o *order.Order) error {
	body, err := json.Marshal(o)
	if err != nil {
		return RelayError{OrderNumber: o.Number, Err: fmt.Errorf("marshal order: %w", err)}
	}

	status, err := r.breaker.Execute(func() (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/bills/validate", bytes.NewReader(body))
		if err != nil {
			return 0, err
		}
		req.Header.Set("Authorization", "Bearer "+r.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return resp.StatusCode, fmt.Errorf("billing API returned status %d", resp.StatusCode)
		}
		return resp.StatusCode, nil
	})
	if err != nil {
		return RelayError{OrderNumber: o.Number, StatusCode: status, Err: err}
	}
	return nil
}
