// Package checkout orchestrates the purchase flow: it snapshots the
// session cart, validates stock, prices the order, authorizes payment
// and drives the order through its first transition. All external
// calls happen outside cart locks; nothing is mutated until payment
// has been captured.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/EndoRodrigo/eCommerce/internal/cart"
	"github.com/EndoRodrigo/eCommerce/internal/inventory"
	"github.com/EndoRodrigo/eCommerce/internal/invoice"
	"github.com/EndoRodrigo/eCommerce/internal/notify"
	"github.com/EndoRodrigo/eCommerce/internal/order"
	"github.com/EndoRodrigo/eCommerce/internal/payment"
	"github.com/EndoRodrigo/eCommerce/internal/pricing"
	"github.com/EndoRodrigo/eCommerce/internal/session"
)

// DefaultHighValueThreshold is the order total at which a sale is
// flagged for review.
var DefaultHighValueThreshold = decimal.NewFromInt(1000)

// DefaultRelayTimeout bounds the synchronous invoice submission after
// an order is paid. On expiry the order is parked for the retry
// poller instead of failing the checkout.
const DefaultRelayTimeout = 10 * time.Second

// maxNumberAttempts bounds order-number regeneration on a same-day
// collision.
const maxNumberAttempts = 5

// Request is the checkout boundary contract.
type Request struct {
	SessionID      string `json:"cartId"`
	CustomerRef    string `json:"customerRef"`
	ShippingMethod string `json:"shippingMethod"`
	PaymentMethod  string `json:"paymentMethod"`
	PaymentDetails string `json:"paymentDetails"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// Response reports a completed checkout.
type Response struct {
	OrderNumber string          `json:"orderNumber"`
	Status      order.Status    `json:"status"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Shipping    decimal.Decimal `json:"shipping"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
}

// Summary is a priced view of a session cart before checkout,
// quoted with the standard shipping method.
type Summary struct {
	Lines    []cart.Line     `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// Deps are the collaborators a Service orchestrates.
type Deps struct {
	Registry  *session.Registry
	Catalog   inventory.Catalog
	Guard     *inventory.Guard
	Processor *payment.Processor
	Lifecycle *order.Lifecycle
	Repo      order.Repository
	Customers CustomerDirectory
	Relay     invoice.Relay
	Sink      notify.Sink
}

type Service struct {
	deps Deps

	highValueThreshold decimal.Decimal
	relayTimeout       time.Duration

	// collapses concurrent catalog lookups for the same product
	lookups singleflight.Group

	// completed checkouts keyed by idempotency key; a replayed request
	// gets the original response instead of a second order
	mu        sync.Mutex
	completed map[string]Response
}

type Option func(*Service)

func WithHighValueThreshold(threshold decimal.Decimal) Option {
	return func(s *Service) { s.highValueThreshold = threshold }
}

func WithRelayTimeout(timeout time.Duration) Option {
	return func(s *Service) { s.relayTimeout = timeout }
}

func NewService(deps Deps, opts ...Option) *Service {
	s := &Service{
		deps:               deps,
		highValueThreshold: DefaultHighValueThreshold,
		relayTimeout:       DefaultRelayTimeout,
		completed:          make(map[string]Response),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddItem resolves the product and merges it into the session cart.
func (s *Service) AddItem(ctx context.Context, sessionID, productRef string, quantity int) error {
	if quantity <= 0 {
		return cart.ValidationError{Field: "quantity", Message: "quantity must be positive"}
	}
	product, err := s.findProduct(ctx, productRef)
	if err != nil {
		return err
	}
	return s.deps.Registry.With(sessionID, func(c *cart.Cart) error {
		return c.AddLine(cart.Line{
			ProductRef: product.Ref,
			Name:       product.Name,
			UnitPrice:  product.UnitPrice,
			Quantity:   quantity,
			TaxRate:    pricing.DefaultTaxRate,
		})
	})
}

// RemoveItem drops a product from the session cart. Removing a
// product that is not in the cart is a no-op.
func (s *Service) RemoveItem(_ context.Context, sessionID, productRef string) error {
	return s.deps.Registry.With(sessionID, func(c *cart.Cart) error {
		c.RemoveLine(productRef)
		return nil
	})
}

// SetQuantity overwrites a line quantity; zero or less removes the
// line.
func (s *Service) SetQuantity(_ context.Context, sessionID, productRef string, quantity int) error {
	return s.deps.Registry.With(sessionID, func(c *cart.Cart) error {
		return c.SetQuantity(productRef, quantity)
	})
}

// ClearCart empties the session cart.
func (s *Service) ClearCart(_ context.Context, sessionID string) {
	s.deps.Registry.Clear(sessionID)
}

// CartSummary prices the current cart contents without checking out.
func (s *Service) CartSummary(_ context.Context, sessionID string) Summary {
	lines := s.deps.Registry.Snapshot(sessionID)
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
	}
	quote := pricing.Compute(subtotal, pricing.DefaultTaxRate, "", lineDiscount(lines))
	return Summary{
		Lines:    lines,
		Subtotal: quote.Subtotal,
		Tax:      quote.Tax,
		Shipping: quote.Shipping,
		Discount: quote.Discount,
		Total:    quote.Total,
	}
}

// Checkout converts the session cart into a paid order. The cart and
// the stock are untouched until payment has been captured: a decline,
// a gateway fault or an insufficient-stock result abort with no
// partial state. After payment the invoice relay and the notification
// sink are best-effort and never fail the checkout.
func (s *Service) Checkout(ctx context.Context, req Request) (*Response, error) {
	if req.SessionID == "" {
		return nil, cart.ValidationError{Field: "cartId", Message: "cart id is required"}
	}
	if req.CustomerRef == "" {
		return nil, cart.ValidationError{Field: "customerRef", Message: "customer reference is required"}
	}
	if req.PaymentMethod == "" {
		return nil, cart.ValidationError{Field: "paymentMethod", Message: "payment method is required"}
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	// a retried checkout whose response was lost replays the stored
	// outcome; nothing is charged, created or committed twice
	s.mu.Lock()
	if resp, ok := s.completed[req.IdempotencyKey]; ok {
		s.mu.Unlock()
		log.Printf("checkout: duplicate request key %s, replaying order %s", req.IdempotencyKey, resp.OrderNumber)
		return &resp, nil
	}
	s.mu.Unlock()

	customer, err := s.deps.Customers.FindCustomer(ctx, req.CustomerRef)
	if err != nil {
		return nil, fmt.Errorf("resolve customer %s: %w", req.CustomerRef, err)
	}

	lines := s.deps.Registry.Snapshot(req.SessionID)
	if len(lines) == 0 {
		return nil, cart.ValidationError{Field: "cartId", Message: "cart is empty"}
	}

	if err := s.deps.Guard.Validate(ctx, lines); err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
	}
	quote := pricing.Compute(subtotal, pricing.DefaultTaxRate, req.ShippingMethod, lineDiscount(lines))

	number := order.GenerateNumber()

	result, err := s.deps.Processor.Authorize(ctx, number, quote.Total, req.PaymentMethod, req.IdempotencyKey)
	if err != nil {
		// nothing has been created yet; declines and gateway faults
		// leave cart, stock and orders exactly as they were
		return nil, err
	}

	now := time.Now().UTC()
	o := &order.Order{
		Number:            number,
		CustomerRef:       customer.Ref,
		Items:             orderItems(lines),
		Subtotal:          quote.Subtotal,
		Tax:               quote.Tax,
		Shipping:          quote.Shipping,
		Discount:          quote.Discount,
		Total:             quote.Total,
		Status:            order.StatusPending,
		ShippingMethod:    req.ShippingMethod,
		PaymentMethod:     req.PaymentMethod,
		InvoiceRelayState: order.RelayNone,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	// the random order number can collide with a same-day order; the
	// charge is idempotency-protected, so regenerating and retrying
	// the insert is safe
	for attempt := 0; ; attempt++ {
		err := s.deps.Repo.CreateOrder(ctx, o)
		if err == nil {
			break
		}
		if errors.Is(err, order.ErrDuplicateOrder) && attempt < maxNumberAttempts {
			number = order.GenerateNumber()
			o.Number = number
			continue
		}
		return nil, fmt.Errorf("create order %s: %w", number, err)
	}
	record := &order.Payment{
		OrderNumber:   number,
		Amount:        quote.Total,
		Method:        req.PaymentMethod,
		Status:        payment.PaymentPending,
		TransactionID: result.TransactionID,
		CreatedAt:     now,
	}
	if err := s.deps.Repo.CreatePayment(ctx, record); err != nil {
		return nil, fmt.Errorf("record payment for order %s: %w", number, err)
	}

	paid, err := s.deps.Lifecycle.Pay(ctx, number)
	if err != nil {
		// payment was captured but stock could not be committed (a
		// concurrent checkout won the race); the order stays PENDING
		// and the payment record stays PENDING for reconciliation
		return nil, fmt.Errorf("mark order %s paid: %w", number, err)
	}
	record.Status = payment.PaymentCompleted
	if err := s.deps.Repo.UpdatePayment(ctx, record); err != nil {
		log.Printf("checkout: complete payment record for order %s: %v", number, err)
	}

	s.deps.Registry.Clear(req.SessionID)

	s.submitInvoice(paid)
	s.notifyPlaced(number, quote.Total)

	resp := Response{
		OrderNumber: number,
		Status:      paid.Status,
		Subtotal:    quote.Subtotal,
		Tax:         quote.Tax,
		Shipping:    quote.Shipping,
		Discount:    quote.Discount,
		Total:       quote.Total,
	}
	s.mu.Lock()
	s.completed[req.IdempotencyKey] = resp
	s.mu.Unlock()
	return &resp, nil
}

// submitInvoice relays the order to the billing API. Failure parks
// the order for the retry poller; it never rolls back a paid order.
func (s *Service) submitInvoice(o *order.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), s.relayTimeout)
	defer cancel()

	if err := s.deps.Relay.Submit(ctx, o); err != nil {
		log.Printf("checkout: invoice relay for order %s failed, queued for retry: %v", o.Number, err)
		if err := s.deps.Repo.SetInvoiceRelayState(ctx, o.Number, order.RelayPendingRetry); err != nil {
			log.Printf("checkout: park order %s for invoice retry: %v", o.Number, err)
		}
		return
	}
	if err := s.deps.Repo.SetInvoiceRelayState(ctx, o.Number, order.RelaySubmitted); err != nil {
		log.Printf("checkout: record invoice submission for order %s: %v", o.Number, err)
	}
}

func (s *Service) notifyPlaced(number string, total decimal.Decimal) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.deps.Sink.OrderConfirmed(ctx, number, total); err != nil {
		log.Printf("checkout: order confirmation for %s: %v", number, err)
	}
	if total.GreaterThanOrEqual(s.highValueThreshold) {
		if err := s.deps.Sink.HighValueSale(ctx, number, total); err != nil {
			log.Printf("checkout: high value alert for %s: %v", number, err)
		}
	}
}

func (s *Service) findProduct(ctx context.Context, ref string) (*inventory.Product, error) {
	v, err, _ := s.lookups.Do(ref, func() (interface{}, error) {
		return s.deps.Catalog.FindProduct(ctx, ref)
	})
	if err != nil {
		return nil, err
	}
	return v.(*inventory.Product), nil
}

func lineDiscount(lines []cart.Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal().Mul(l.DiscountRate))
	}
	return total
}

func orderItems(lines []cart.Line) []order.Item {
	items := make([]order.Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, order.Item{
			ProductRef: l.ProductRef,
			Name:       l.Name,
			UnitPrice:  l.UnitPrice,
			Quantity:   l.Quantity,
		})
	}
	return items
}
