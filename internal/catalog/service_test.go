package catalog

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tradewindhq/tradewind/internal/apperror"
)

// --- In-memory fake repository ---

type fakeRepo struct {
	mu       sync.Mutex
	nextID   int64
	products map[int64]Product
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nextID: 1, products: make(map[int64]Product)}
}

func (r *fakeRepo) List(_ context.Context, filter ListFilter) ([]Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Product
	for _, p := range r.products {
		if filter.ActiveOnly && !p.Active {
			continue
		}
		if filter.FeaturedOnly && !p.Featured {
			continue
		}
		out = append(out, p)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *fakeRepo) FindByID(_ context.Context, id int64) (*Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, apperror.NewNotFound("product not found")
	}
	return &p, nil
}

func (r *fakeRepo) FindBySlug(_ context.Context, slug string) (*Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.Slug == slug {
			out := p
			return &out, nil
		}
	}
	return nil, apperror.NewNotFound("product not found")
}

func (r *fakeRepo) Create(_ context.Context, product *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	product.ID = r.nextID
	r.nextID++
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now()
	}
	r.products[product.ID] = *product
	return nil
}

func (r *fakeRepo) Update(_ context.Context, product *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[product.ID]; !ok {
		return apperror.NewNotFound("product not found")
	}
	r.products[product.ID] = *product
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return apperror.NewNotFound("product not found")
	}
	delete(r.products, id)
	return nil
}

func (r *fakeRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.products), nil
}

func (r *fakeRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	_, err := r.FindBySlug(context.Background(), slug)
	return err == nil, nil
}

// --- Tests ---

func TestCreateGeneratesSlugAndSanitizesDescription(t *testing.T) {
	svc := NewService(newFakeRepo())

	product, err := svc.Create(context.Background(), ProductInput{
		Name:        "Sailcloth Satchel, Mk II",
		Description: `<p>Sturdy.</p><script>alert("xss")</script>`,
		PriceCents:  4500,
		Active:      true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if product.Slug != "sailcloth-satchel-mk-ii" {
		t.Errorf("unexpected slug %q", product.Slug)
	}
	if strings.Contains(product.Description, "<script>") {
		t.Errorf("description not sanitized: %q", product.Description)
	}
	if !strings.Contains(product.Description, "<p>Sturdy.</p>") {
		t.Errorf("safe markup should survive sanitizing: %q", product.Description)
	}
	if product.Currency != "USD" {
		t.Errorf("expected USD default, got %q", product.Currency)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newFakeRepo())

	tests := []struct {
		name  string
		input ProductInput
	}{
		{"empty name", ProductInput{PriceCents: 100}},
		{"negative price", ProductInput{Name: "X", PriceCents: -1}},
		{"negative stock", ProductInput{Name: "X", Stock: -1}},
		{"bad currency", ProductInput{Name: "X", Currency: "DOLLARS"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.input)
			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || appErr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateRejectsDuplicateSlug(t *testing.T) {
	svc := NewService(newFakeRepo())

	if _, err := svc.Create(context.Background(), ProductInput{Name: "Compass", Active: true}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := svc.Create(context.Background(), ProductInput{Name: "Compass"})
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != http.StatusConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestBySlugHidesInactiveProducts(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	if _, err := svc.Create(context.Background(), ProductInput{Name: "Ghost Item", Active: false}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err := svc.BySlug(context.Background(), "ghost-item")
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != http.StatusNotFound {
		t.Fatalf("inactive product must 404 on the storefront, got %v", err)
	}

	// The admin side still sees it.
	all, err := svc.All(context.Background())
	if err != nil || len(all) != 1 {
		t.Fatalf("admin listing should include inactive products, got %v, %v", all, err)
	}
}

func TestUpdatePreservesSlugWhenBlank(t *testing.T) {
	svc := NewService(newFakeRepo())

	created, err := svc.Create(context.Background(), ProductInput{Name: "Brass Sextant", Active: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Update(context.Background(), created.ID, ProductInput{
		Name: "Brass Sextant (refurbished)", PriceCents: 9900, Active: true,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Slug != created.Slug {
		t.Errorf("blank slug input must keep the existing slug, got %q", updated.Slug)
	}
	if updated.PriceCents != 9900 {
		t.Errorf("price not updated: %d", updated.PriceCents)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Plain Name", "plain-name"},
		{"  Trim  Me  ", "trim-me"},
		{"Ünïcode & Sons!", "n-code-sons"},
		{"--already--slugged--", "already-slugged"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
