package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tradewindhq/tradewind/internal/apperror"
)

// Repository defines the data access contract for products.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	FindByID(ctx context.Context, id int64) (*Product, error)
	FindBySlug(ctx context.Context, slug string) (*Product, error)
	Create(ctx context.Context, product *Product) error
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// productColumns is the shared SELECT column list, kept in one place so
// every scan reads the same shape.
const productColumns = `id, slug, name, description, price_cents, currency, image_url, stock, featured, active, created_at, updated_at`

// mariadbRepository implements Repository with MariaDB.
type mariadbRepository struct {
	db *sql.DB
}

// NewRepository creates a product repository backed by the given DB pool.
func NewRepository(db *sql.DB) Repository {
	return &mariadbRepository{db: db}
}

// List returns products matching the filter, newest first.
func (r *mariadbRepository) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	where := ""
	if filter.ActiveOnly {
		where = " WHERE active = 1"
	}
	if filter.FeaturedOnly {
		if where == "" {
			where = " WHERE featured = 1"
		} else {
			where += " AND featured = 1"
		}
	}
	query += where + " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// FindByID retrieves a product by its ID.
func (r *mariadbRepository) FindByID(ctx context.Context, id int64) (*Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("finding product: %w", err)
	}
	return p, nil
}

// FindBySlug retrieves a product by its URL slug.
func (r *mariadbRepository) FindBySlug(ctx context.Context, slug string) (*Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE slug = ?`, slug)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("finding product by slug: %w", err)
	}
	return p, nil
}

// Create inserts a new product and fills in its assigned ID.
func (r *mariadbRepository) Create(ctx context.Context, product *Product) error {
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO products (slug, name, description, price_cents, currency, image_url, stock, featured, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.Slug, product.Name, product.Description, product.PriceCents, product.Currency,
		product.ImageURL, product.Stock, product.Featured, product.Active,
		product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading product id: %w", err)
	}
	product.ID = id
	return nil
}

// Update saves changes to an existing product.
func (r *mariadbRepository) Update(ctx context.Context, product *Product) error {
	product.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE products SET slug = ?, name = ?, description = ?, price_cents = ?, currency = ?,
		        image_url = ?, stock = ?, featured = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		product.Slug, product.Name, product.Description, product.PriceCents, product.Currency,
		product.ImageURL, product.Stock, product.Featured, product.Active,
		product.UpdatedAt, product.ID,
	)
	if err != nil {
		return fmt.Errorf("updating product: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return apperror.NewNotFound("product not found")
	}
	return nil
}

// Delete removes a product.
func (r *mariadbRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return apperror.NewNotFound("product not found")
	}
	return nil
}

// Count returns the total number of products.
func (r *mariadbRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	return count, nil
}

// SlugExists reports whether a product already uses the slug.
func (r *mariadbRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM products WHERE slug = ? LIMIT 1`, slug).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking slug: %w", err)
	}
	return true, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanProduct reads one product row.
func scanProduct(row rowScanner) (*Product, error) {
	p := &Product{}
	err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.PriceCents, &p.Currency,
		&p.ImageURL, &p.Stock, &p.Featured, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}
