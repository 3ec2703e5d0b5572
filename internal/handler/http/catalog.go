package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/pkg/httputil"
)

const maxFilterLen = 200

// ListProducts handles GET /api/v1/catalog/products
// Query parameters keyword, category, brand, subcategory and sort restart
// the listing at page one.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := catalog.Filters{
		Keyword:       q.Get("keyword"),
		CategoryID:    q.Get("category"),
		BrandID:       q.Get("brand"),
		SubcategoryID: q.Get("subcategory"),
		Sort:          q.Get("sort"),
	}
	for _, v := range []string{f.Keyword, f.CategoryID, f.BrandID, f.SubcategoryID, f.Sort} {
		if len(v) > maxFilterLen {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "filter values must be at most 200 characters"},
			})
			return
		}
	}

	view, err := sf.ApplyFilters(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// NextProducts handles POST /api/v1/catalog/products/next
func (h *Handler) NextProducts(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	view, err := sf.NextPage(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// GetProduct handles GET /api/v1/catalog/products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, p)
}

// ListCategories handles GET /api/v1/catalog/categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, categories)
}

// ListSubcategories handles GET /api/v1/catalog/categories/{id}/subcategories
func (h *Handler) ListSubcategories(w http.ResponseWriter, r *http.Request) {
	subs, err := h.catalog.Subcategories(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, subs)
}

// ListBrands handles GET /api/v1/catalog/brands
func (h *Handler) ListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.catalog.Brands(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, brands)
}
