package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tradewindhq/tradewind/internal/apperror"
	"github.com/tradewindhq/tradewind/internal/sanitize"
)

// featuredLimit caps the landing page strip.
const featuredLimit = 4

// Service defines the business logic contract for the catalog. Handlers
// call these methods -- they never touch the repository directly.
type Service interface {
	// Storefront reads.
	Storefront(ctx context.Context) ([]Product, error)
	Featured(ctx context.Context) ([]Product, error)
	BySlug(ctx context.Context, slug string) (*Product, error)
	ByID(ctx context.Context, id int64) (*Product, error)

	// Admin writes.
	All(ctx context.Context) ([]Product, error)
	Create(ctx context.Context, input ProductInput) (*Product, error)
	Update(ctx context.Context, id int64, input ProductInput) (*Product, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

// service implements Service.
type service struct {
	repo Repository
}

// NewService creates the catalog service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Storefront returns products visible on the public catalog.
func (s *service) Storefront(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx, ListFilter{ActiveOnly: true})
}

// Featured returns the landing page strip.
func (s *service) Featured(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx, ListFilter{ActiveOnly: true, FeaturedOnly: true, Limit: featuredLimit})
}

// BySlug returns one storefront product. Inactive products are hidden from
// the public side even when the slug is guessed.
func (s *service) BySlug(ctx context.Context, slug string) (*Product, error) {
	product, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, apperror.NewNotFound("product not found")
	}
	return product, nil
}

// ByID returns one product regardless of visibility. Cart and admin use it.
func (s *service) ByID(ctx context.Context, id int64) (*Product, error) {
	return s.repo.FindByID(ctx, id)
}

// All returns every product for the admin table, inactive included.
func (s *service) All(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx, ListFilter{})
}

// Create validates and inserts a new product. The description is sanitized
// before storage so the repository only ever holds render-safe HTML.
func (s *service) Create(ctx context.Context, input ProductInput) (*Product, error) {
	product, err := s.fromInput(input)
	if err != nil {
		return nil, err
	}

	if product.Slug == "" {
		product.Slug = Slugify(product.Name)
	}
	taken, err := s.repo.SlugExists(ctx, product.Slug)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking slug: %w", err))
	}
	if taken {
		return nil, apperror.NewConflict("a product with this slug already exists")
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, apperror.NewInternal(err)
	}
	return product, nil
}

// Update validates and saves changes to an existing product.
func (s *service) Update(ctx context.Context, id int64, input ProductInput) (*Product, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	product, err := s.fromInput(input)
	if err != nil {
		return nil, err
	}
	product.ID = existing.ID
	product.CreatedAt = existing.CreatedAt
	if product.Slug == "" {
		product.Slug = existing.Slug
	}

	if product.Slug != existing.Slug {
		taken, err := s.repo.SlugExists(ctx, product.Slug)
		if err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("checking slug: %w", err))
		}
		if taken {
			return nil, apperror.NewConflict("a product with this slug already exists")
		}
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes a product.
func (s *service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Count returns the product total for the admin dashboard.
func (s *service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// fromInput validates form input and builds the product to store.
func (s *service) fromInput(input ProductInput) (*Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.NewValidation("name is required")
	}
	if len(name) > 200 {
		return nil, apperror.NewValidation("name must be at most 200 characters")
	}
	if input.PriceCents < 0 {
		return nil, apperror.NewValidation("price must not be negative")
	}
	if input.Stock < 0 {
		return nil, apperror.NewValidation("stock must not be negative")
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		return nil, apperror.NewValidation("currency must be a 3-letter code")
	}

	slug := strings.TrimSpace(input.Slug)
	if slug != "" {
		slug = Slugify(slug)
	}

	return &Product{
		Slug:        slug,
		Name:        name,
		Description: sanitize.HTML(input.Description),
		PriceCents:  input.PriceCents,
		Currency:    currency,
		ImageURL:    strings.TrimSpace(input.ImageURL),
		Stock:       input.Stock,
		Featured:    input.Featured,
		Active:      input.Active,
	}, nil
}

// slugRe collapses everything that is not a lowercase word character.
var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a product name into a URL slug.
func Slugify(s string) string {
	slug := strings.ToLower(strings.TrimSpace(s))
	slug = slugRe.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 120 {
		slug = strings.Trim(slug[:120], "-")
	}
	return slug
}
