package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tradewindhq/tradewind/internal/apperror"
)

// seedFixture is one product in a YAML seed file.
type seedFixture struct {
	Slug        string `yaml:"slug"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	PriceCents  int64  `yaml:"price_cents"`
	Currency    string `yaml:"currency"`
	ImageURL    string `yaml:"image_url"`
	Stock       int    `yaml:"stock"`
	Featured    bool   `yaml:"featured"`
	Active      bool   `yaml:"active"`
}

// seedFile is the top-level YAML document.
type seedFile struct {
	Products []seedFixture `yaml:"products"`
}

// Seed loads product fixtures from a YAML file and inserts the ones whose
// slug is not already taken. Existing products are left alone, so seeding
// is safe to re-run. Returns how many products were created.
func Seed(ctx context.Context, service Service, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return 0, fmt.Errorf("parsing seed file: %w", err)
	}

	created := 0
	for _, f := range file.Products {
		_, err := service.Create(ctx, ProductInput{
			Slug:        f.Slug,
			Name:        f.Name,
			Description: f.Description,
			PriceCents:  f.PriceCents,
			Currency:    f.Currency,
			ImageURL:    f.ImageURL,
			Stock:       f.Stock,
			Featured:    f.Featured,
			Active:      f.Active,
		})
		if err != nil {
			// Slug conflicts mean the fixture is already seeded.
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Code == http.StatusConflict {
				slog.Debug("seed: product already exists", slog.String("slug", f.Slug))
				continue
			}
			return created, fmt.Errorf("seeding product %q: %w", f.Name, err)
		}
		created++
	}
	return created, nil
}
