// Package cart implements the Redis-backed shopping cart. Carts are keyed
// by an anonymous cart cookie, independent of auth — a browser can fill a
// cart before ever signing in, and keeps it across sign-in/sign-out.
package cart

import "time"

// Quantity bounds per cart line.
const (
	MinQuantity = 1
	MaxQuantity = 99
)

// Item is one cart line. Name and price are snapshotted at add time so the
// cart renders and totals consistently even if the product changes later.
type Item struct {
	ProductID  int64  `json:"product_id"`
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Currency   string `json:"currency"`
	Quantity   int    `json:"quantity"`
}

// LineCents is the line total: snapshot price times quantity.
func (i Item) LineCents() int64 {
	return i.PriceCents * int64(i.Quantity)
}

// Cart is one browser's cart.
type Cart struct {
	ID        string    `json:"id"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TotalCents sums the line totals.
func (c *Cart) TotalCents() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.LineCents()
	}
	return total
}

// Count is the number of units across all lines, shown on the header badge.
func (c *Cart) Count() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// Currency returns the cart's display currency: the first line's, or "USD"
// for an empty cart.
func (c *Cart) Currency() string {
	if len(c.Items) > 0 {
		return c.Items[0].Currency
	}
	return "USD"
}

// clampQuantity forces a requested quantity into [MinQuantity, MaxQuantity].
func clampQuantity(qty int) int {
	if qty < MinQuantity {
		return MinQuantity
	}
	if qty > MaxQuantity {
		return MaxQuantity
	}
	return qty
}
