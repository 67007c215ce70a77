package cart

import (
	"context"
	"time"

	"github.com/tradewindhq/tradewind/internal/apperror"
	"github.com/tradewindhq/tradewind/internal/catalog"
)

// ProductFinder is the slice of the catalog the cart needs for price
// snapshots. catalog.Service satisfies it.
type ProductFinder interface {
	ByID(ctx context.Context, id int64) (*catalog.Product, error)
}

// Service defines the business logic contract for carts.
type Service interface {
	Get(ctx context.Context, id string) (*Cart, error)
	Add(ctx context.Context, id string, productID int64, quantity int) (*Cart, error)
	UpdateQuantity(ctx context.Context, id string, productID int64, quantity int) (*Cart, error)
	Remove(ctx context.Context, id string, productID int64) (*Cart, error)
	Clear(ctx context.Context, id string) error

	// Count returns the badge count without the caller holding a cart.
	Count(ctx context.Context, id string) int
}

// service implements Service.
type service struct {
	store    Store
	products ProductFinder
	ttl      time.Duration
}

// NewService creates the cart service. ttl is the idle lifetime of a cart.
func NewService(store Store, products ProductFinder, ttl time.Duration) Service {
	if ttl <= 0 {
		ttl = 168 * time.Hour
	}
	return &service{store: store, products: products, ttl: ttl}
}

// Get returns the cart, empty when nothing has been added yet.
func (s *service) Get(ctx context.Context, id string) (*Cart, error) {
	return s.store.Get(ctx, id)
}

// Add puts quantity units of a product into the cart, merging with an
// existing line for the same product. The product's current name and price
// are snapshotted onto the line.
func (s *service) Add(ctx context.Context, id string, productID int64, quantity int) (*Cart, error) {
	product, err := s.products.ByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Available() {
		return nil, apperror.NewConflict("this product is out of stock")
	}

	cart, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	quantity = clampQuantity(quantity)
	merged := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity = clampQuantity(cart.Items[i].Quantity + quantity)
			// Refresh the snapshot while we're here.
			cart.Items[i].Name = product.Name
			cart.Items[i].PriceCents = product.PriceCents
			cart.Items[i].Currency = product.Currency
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, Item{
			ProductID:  product.ID,
			Slug:       product.Slug,
			Name:       product.Name,
			PriceCents: product.PriceCents,
			Currency:   product.Currency,
			Quantity:   quantity,
		})
	}

	if err := s.store.Put(ctx, cart, s.ttl); err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateQuantity sets the quantity on an existing line, clamped to the
// allowed range.
func (s *service) UpdateQuantity(ctx context.Context, id string, productID int64, quantity int) (*Cart, error) {
	cart, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity = clampQuantity(quantity)
			found = true
			break
		}
	}
	if !found {
		return nil, apperror.NewNotFound("that product is not in your cart")
	}

	if err := s.store.Put(ctx, cart, s.ttl); err != nil {
		return nil, err
	}
	return cart, nil
}

// Remove drops a line from the cart. Removing an absent line is a no-op.
func (s *service) Remove(ctx context.Context, id string, productID int64) (*Cart, error) {
	cart, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	items := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			items = append(items, item)
		}
	}
	cart.Items = items

	if err := s.store.Put(ctx, cart, s.ttl); err != nil {
		return nil, err
	}
	return cart, nil
}

// Clear empties the cart entirely.
func (s *service) Clear(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Count returns the badge count. Failures render as an empty badge rather
// than failing the page.
func (s *service) Count(ctx context.Context, id string) int {
	if id == "" {
		return 0
	}
	cart, err := s.store.Get(ctx, id)
	if err != nil {
		return 0
	}
	return cart.Count()
}
