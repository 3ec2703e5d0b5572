package catalog

import (
	"net/url"
	"strings"

	"github.com/utafrali/storefront/pkg/pagination"
)

// PageSize is the fixed number of products requested per page.
const PageSize = 12

// DefaultSort orders listings by descending price.
const DefaultSort = "-price"

// Filters are the listing selections made in the UI. All non-empty filters
// apply together.
type Filters struct {
	Keyword       string `json:"keyword,omitempty"`
	CategoryID    string `json:"categoryId,omitempty"`
	BrandID       string `json:"brandId,omitempty"`
	SubcategoryID string `json:"subcategoryId,omitempty"`
	Sort          string `json:"sort,omitempty"`
}

// Normalize trims every filter value.
func (f Filters) Normalize() Filters {
	return Filters{
		Keyword:       strings.TrimSpace(f.Keyword),
		CategoryID:    strings.TrimSpace(f.CategoryID),
		BrandID:       strings.TrimSpace(f.BrandID),
		SubcategoryID: strings.TrimSpace(f.SubcategoryID),
		Sort:          strings.TrimSpace(f.Sort),
	}
}

// BuildQuery returns the product-listing query for f and page. The result is
// deterministic: limit, page and sort are always present, and each filter is
// added only when set.
func BuildQuery(f Filters, page int) url.Values {
	f = f.Normalize()

	q := url.Values{}
	pagination.NewParams(page, PageSize).Apply(q)
	if f.Sort == "" {
		f.Sort = DefaultSort
	}
	q.Set("sort", f.Sort)
	if f.Keyword != "" {
		q.Set("keyword", f.Keyword)
	}
	if f.CategoryID != "" {
		q.Set("category[in]", f.CategoryID)
	}
	if f.BrandID != "" {
		q.Set("brand", f.BrandID)
	}
	if f.SubcategoryID != "" {
		q.Set("subcategory", f.SubcategoryID)
	}
	return q
}
