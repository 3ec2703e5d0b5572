package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Upstream is the read-only catalog surface of the upstream API.
type Upstream interface {
	ProductSource
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListBrands(ctx context.Context) ([]domain.Brand, error)
	ListSubcategories(ctx context.Context) ([]domain.Subcategory, error)
}

// Catalog serves product details and reference lists. It holds no per-user
// state and is shared by every storefront.
type Catalog struct {
	upstream Upstream
	logger   *slog.Logger
}

// New creates a Catalog.
func New(upstream Upstream, logger *slog.Logger) *Catalog {
	return &Catalog{upstream: upstream, logger: logger}
}

// Product returns one product by id.
func (c *Catalog) Product(ctx context.Context, id string) (*domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	p, err := c.upstream.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// Categories returns every category.
func (c *Catalog) Categories(ctx context.Context) ([]domain.Category, error) {
	categories, err := c.upstream.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Brands returns every brand.
func (c *Catalog) Brands(ctx context.Context) ([]domain.Brand, error) {
	brands, err := c.upstream.ListBrands(ctx)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	return brands, nil
}

// Subcategories returns the subcategories of categoryID.
func (c *Catalog) Subcategories(ctx context.Context, categoryID string) ([]domain.Subcategory, error) {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return nil, apperrors.InvalidInput("category id is required")
	}
	all, err := c.upstream.ListSubcategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}

	out := make([]domain.Subcategory, 0)
	for _, s := range all {
		if s.CategoryID == categoryID {
			out = append(out, s)
		}
	}
	c.logger.DebugContext(ctx, "subcategories filtered",
		slog.String("category_id", categoryID),
		slog.Int("total", len(all)),
		slog.Int("matched", len(out)),
	)
	return out, nil
}
