package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// GetWishlist handles GET /api/v1/wishlist
func (h *Handler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	snap, err := sf.FetchWishlist(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, snap)
}

// AddWishlistItem handles POST /api/v1/wishlist/items
func (h *Handler) AddWishlistItem(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	var req ProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.DecodeError(w, r, err)
		return
	}
	l, err := sf.AddToWishlist(r.Context(), req.ProductID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, l)
}

// ToggleWishlistItem handles POST /api/v1/wishlist/items/{productId}/toggle
func (h *Handler) ToggleWishlistItem(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	l, err := sf.ToggleWishlist(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, l)
}

// RemoveWishlistItem handles DELETE /api/v1/wishlist/items/{productId}
func (h *Handler) RemoveWishlistItem(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	l, err := sf.RemoveFromWishlist(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, l)
}
