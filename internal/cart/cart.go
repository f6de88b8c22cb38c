package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line is a single product reference with its aggregated quantity.
// A cart holds at most one Line per ProductRef.
type Line struct {
	ProductRef   string          `json:"product_ref"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
}

// Subtotal returns UnitPrice times Quantity for this line.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is a mutable line-item collection owned by one session until
// checkout. Lines are keyed by product reference and keep insertion
// order. Cart itself is not safe for concurrent use; callers serialize
// access through the session registry.
type Cart struct {
	ID            string
	CustomerRef   string
	PaymentMethod string
	CreatedAt     time.Time

	lines map[string]*Line
	order []string
}

func New(id string) *Cart {
	return &Cart{
		ID:        id,
		CreatedAt: time.Now(),
		lines:     make(map[string]*Line),
	}
}

// AddLine appends a new line, or increments the quantity of the
// existing line with the same product reference.
func (c *Cart) AddLine(line Line) error {
	if line.ProductRef == "" {
		return ValidationError{Field: "product_ref", Message: "product reference is required"}
	}
	if line.Quantity <= 0 {
		return ValidationError{Field: "quantity", Message: "quantity must be positive"}
	}

	if existing, ok := c.lines[line.ProductRef]; ok {
		existing.Quantity += line.Quantity
		return nil
	}

	c.lines[line.ProductRef] = &line
	c.order = append(c.order, line.ProductRef)
	return nil
}

// RemoveLine deletes the line if present; removing an absent product
// reference is a no-op.
func (c *Cart) RemoveLine(productRef string) {
	if _, ok := c.lines[productRef]; !ok {
		return
	}
	delete(c.lines, productRef)
	for i, ref := range c.order {
		if ref == productRef {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// SetQuantity overwrites the quantity of an existing line. A quantity
// at or below zero removes the line instead.
func (c *Cart) SetQuantity(productRef string, quantity int) error {
	if quantity <= 0 {
		c.RemoveLine(productRef)
		return nil
	}
	line, ok := c.lines[productRef]
	if !ok {
		return ValidationError{Field: "product_ref", Message: "product not in cart"}
	}
	line.Quantity = quantity
	return nil
}

// Subtotal is always recomputed from the current lines, never cached.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, ref := range c.order {
		total = total.Add(c.lines[ref].Subtotal())
	}
	return total
}

// Lines returns a copy of the cart's lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.order))
	for _, ref := range c.order {
		out = append(out, *c.lines[ref])
	}
	return out
}

// Line returns the line for a product reference, if present.
func (c *Cart) Line(productRef string) (Line, bool) {
	l, ok := c.lines[productRef]
	if !ok {
		return Line{}, false
	}
	return *l, true
}

func (c *Cart) Clear() {
	c.lines = make(map[string]*Line)
	c.order = nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Len returns the number of distinct product references in the cart.
func (c *Cart) Len() int {
	return len(c.lines)
}

// TotalQuantity sums quantities across all lines.
func (c *Cart) TotalQuantity() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}
