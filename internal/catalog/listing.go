package catalog

import (
	"context"
	"log/slog"
	"net/url"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/pagination"
)

// ProductSource lists products from the upstream.
type ProductSource interface {
	ListProducts(ctx context.Context, query url.Values) (*domain.ProductPage, error)
}

// View is the listing state handed to the presentation layer.
type View struct {
	Filters  Filters          `json:"filters"`
	Products []domain.Product `json:"products"`
	Page     int              `json:"page"`
	HasMore  bool             `json:"hasMore"`
	Loading  bool             `json:"loading"`
}

// Listing is a paginated product listing. Applying filters replaces the
// results with page 1; Next appends the following page. Every request takes
// a new generation and only the answer to the latest one is applied.
type Listing struct {
	source      ProductSource
	defaultSort string
	logger      *slog.Logger

	mu       sync.Mutex
	gen      uint64
	filters  Filters
	params   pagination.Params
	products []domain.Product
	hasMore  bool
	loading  bool
}

// NewListing creates an empty listing. defaultSort is used when the filters
// carry no sort of their own.
func NewListing(source ProductSource, defaultSort string, logger *slog.Logger) *Listing {
	if defaultSort == "" {
		defaultSort = DefaultSort
	}
	return &Listing{source: source, defaultSort: defaultSort, logger: logger}
}

// Apply replaces the filters, resets to page 1 and replaces the results.
func (l *Listing) Apply(ctx context.Context, f Filters) (View, error) {
	f = f.Normalize()
	if f.Sort == "" {
		f.Sort = l.defaultSort
	}

	first := pagination.NewParams(1, PageSize)

	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.filters = f
	l.params = first
	l.products = nil
	l.hasMore = false
	l.loading = true
	l.mu.Unlock()

	page, err := l.source.ListProducts(ctx, BuildQuery(f, first.Page))

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		l.logger.DebugContext(ctx, "dropping stale listing answer",
			slog.Uint64("generation", gen),
			slog.Uint64("current", l.gen),
		)
		return l.viewLocked(), nil
	}
	l.loading = false
	if err != nil {
		return l.viewLocked(), err
	}

	l.products = page.Products
	l.hasMore = pagination.HasMore(page.Metadata, len(page.Products), first.Limit)
	return l.viewLocked(), nil
}

// Next loads the page after the current one and appends it. It is a no-op
// while a request is in flight or when no more pages are expected. An empty
// page ends the listing and leaves the results unchanged.
func (l *Listing) Next(ctx context.Context) (View, error) {
	l.mu.Lock()
	if l.params.Page == 0 {
		f := l.filters
		l.mu.Unlock()
		return l.Apply(ctx, f)
	}
	if l.loading || !l.hasMore {
		defer l.mu.Unlock()
		return l.viewLocked(), nil
	}
	l.gen++
	gen := l.gen
	next := l.params.Next()
	f := l.filters
	l.loading = true
	l.mu.Unlock()

	page, err := l.source.ListProducts(ctx, BuildQuery(f, next.Page))

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		l.logger.DebugContext(ctx, "dropping stale listing answer",
			slog.Uint64("generation", gen),
			slog.Uint64("current", l.gen),
		)
		return l.viewLocked(), nil
	}
	l.loading = false
	if err != nil {
		return l.viewLocked(), err
	}

	if len(page.Products) == 0 {
		l.hasMore = false
		return l.viewLocked(), nil
	}
	l.products = append(l.products, page.Products...)
	l.params = next
	l.hasMore = pagination.HasMore(page.Metadata, len(page.Products), next.Limit)
	return l.viewLocked(), nil
}

// View returns the current listing state.
func (l *Listing) View() View {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.viewLocked()
}

func (l *Listing) viewLocked() View {
	products := make([]domain.Product, len(l.products))
	copy(products, l.products)
	return View{
		Filters:  l.filters,
		Products: products,
		Page:     l.params.Page,
		HasMore:  l.hasMore,
		Loading:  l.loading,
	}
}
