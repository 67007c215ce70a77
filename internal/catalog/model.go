// Package catalog manages the product catalog: the storefront's read side
// (product grid, detail pages) and the admin's write side (CRUD, seeding).
package catalog

import "time"

// Product is one catalog entry. Description holds sanitized HTML — the
// service sanitizes on every write, so repository output is safe to render.
type Product struct {
	ID          int64
	Slug        string
	Name        string
	Description string
	PriceCents  int64
	Currency    string
	ImageURL    string
	Stock       int
	Featured    bool
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Available reports whether the product can be added to a cart.
func (p *Product) Available() bool {
	return p.Active && p.Stock > 0
}

// ProductInput is the admin form payload for creating or updating a product.
type ProductInput struct {
	Slug        string `form:"slug"`
	Name        string `form:"name"`
	Description string `form:"description"`
	PriceCents  int64  `form:"price_cents"`
	Currency    string `form:"currency"`
	ImageURL    string `form:"image_url"`
	Stock       int    `form:"stock"`
	Featured    bool   `form:"featured"`
	Active      bool   `form:"active"`
}

// ListFilter narrows a product listing. The zero value selects everything.
type ListFilter struct {
	// ActiveOnly restricts to products visible on the storefront.
	ActiveOnly bool

	// FeaturedOnly restricts to the featured strip.
	FeaturedOnly bool

	// Limit caps the result count when positive.
	Limit int
}
