// Package order holds the committed-sale record and its lifecycle.
package order

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/EndoRodrigo/eCommerce/internal/payment"
)

// RelayState tracks the third-party invoicing handoff for an order.
// A failed relay never reverts the order; it parks in PENDING_RETRY.
type RelayState string

const (
	RelayNone         RelayState = "NONE"
	RelaySubmitted    RelayState = "SUBMITTED"
	RelayPendingRetry RelayState = "PENDING_RETRY"
)

// Item is a snapshot of one cart line at checkout time.
type Item struct {
	ProductRef string          `json:"product_ref"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
}

// Order is the immutable-once-created record of a committed sale.
// Number never changes after assignment; only status, tracking and
// the lifecycle timestamps move.
type Order struct {
	Number            string          `json:"number"`
	CustomerRef       string          `json:"customer_ref"`
	Items             []Item          `json:"items"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Tax               decimal.Decimal `json:"tax"`
	Shipping          decimal.Decimal `json:"shipping"`
	Discount          decimal.Decimal `json:"discount"`
	Total             decimal.Decimal `json:"total"`
	Status            Status          `json:"status"`
	ShippingMethod    string          `json:"shipping_method"`
	PaymentMethod     string          `json:"payment_method"`
	TrackingNumber    string          `json:"tracking_number,omitempty"`
	InvoiceRelayState RelayState      `json:"invoice_relay_state"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	ShippedAt         *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time      `json:"delivered_at,omitempty"`
}

// Payment is the charge record created alongside an order and updated
// exactly once with the authorization outcome.
type Payment struct {
	OrderNumber   string          `json:"order_number"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	Status        payment.Status  `json:"status"`
	TransactionID string          `json:"transaction_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// GenerateNumber produces an order number in the ORD-YYYYMMDD-XXXX
// format.
func GenerateNumber() string {
	return fmt.Sprintf("ORD-%s-%04d", time.Now().Format("20060102"), rand.Intn(10000))
}
