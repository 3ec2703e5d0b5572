package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// --- Request DTOs ---

// ProductRequest names the product a cart or wishlist mutation applies to.
type ProductRequest struct {
	ProductID string `json:"productId" validate:"required,max=64"`
}

// UpdateQuantityRequest is the JSON request body for setting a line quantity.
// Quantities below one are rejected by the cart; removal has its own route.
type UpdateQuantityRequest struct {
	Count *int `json:"count" validate:"required"`
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	snap, err := sf.FetchCart(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, snap)
}

// AddCartItem handles POST /api/v1/cart/items
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	var req ProductRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.DecodeError(w, r, err)
		return
	}
	c, err := sf.AddToCart(r.Context(), req.ProductID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, c)
}

// UpdateCartItem handles PUT /api/v1/cart/items/{productId}
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.DecodeError(w, r, err)
		return
	}
	c, err := sf.SetCartQuantity(r.Context(), chi.URLParam(r, "productId"), *req.Count)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, c)
}

// RemoveCartItem handles DELETE /api/v1/cart/items/{productId}
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	c, err := sf.RemoveFromCart(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, c)
}
