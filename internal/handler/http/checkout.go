package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// --- Request DTOs ---

// AddressRequest is the JSON request body for creating or editing an address.
type AddressRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Details string `json:"details" validate:"required,max=500"`
	Phone   string `json:"phone" validate:"required,max=20"`
	City    string `json:"city" validate:"required,max=100"`
}

func (req AddressRequest) toDomain(id string) domain.Address {
	return domain.Address{ID: id, Name: req.Name, Details: req.Details, Phone: req.Phone, City: req.City}
}

// SelectAddressRequest picks the shipping address.
type SelectAddressRequest struct {
	AddressID string `json:"addressId" validate:"required"`
}

// --- Handlers ---

// GetCheckout handles GET /api/v1/checkout
func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	st, err := sf.LoadCheckout(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, st)
}

// NewAddress handles POST /api/v1/checkout/addresses/new
func (h *Handler) NewAddress(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	httputil.WriteData(w, http.StatusOK, sf.Checkout.StartNewAddress())
}

// CreateAddress handles POST /api/v1/checkout/addresses
func (h *Handler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	h.saveAddress(w, r, "", http.StatusCreated)
}

// UpdateAddress handles PUT /api/v1/checkout/addresses/{id}
func (h *Handler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, r, apperrors.InvalidInput("address id is required"))
		return
	}
	h.saveAddress(w, r, id, http.StatusOK)
}

func (h *Handler) saveAddress(w http.ResponseWriter, r *http.Request, id string, status int) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	var req AddressRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.DecodeError(w, r, err)
		return
	}
	st, err := sf.SaveAddress(r.Context(), req.toDomain(id))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, status, st)
}

// DeleteAddress handles DELETE /api/v1/checkout/addresses/{id}
func (h *Handler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	st, err := sf.DeleteAddress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, st)
}

// SelectAddress handles PUT /api/v1/checkout/selection
func (h *Handler) SelectAddress(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	var req SelectAddressRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.DecodeError(w, r, err)
		return
	}
	st, err := sf.Checkout.Select(req.AddressID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, st)
}

// PlaceCashOrder handles POST /api/v1/checkout/orders/cash
func (h *Handler) PlaceCashOrder(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	conf, err := sf.PlaceCashOrder(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusCreated, conf)
}

// StartOnlinePayment handles POST /api/v1/checkout/orders/online
func (h *Handler) StartOnlinePayment(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	redirect, err := sf.StartOnlinePayment(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, redirect)
}

// GetConfirmation handles GET /api/v1/checkout/confirmation
func (h *Handler) GetConfirmation(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	conf, found := sf.Checkout.Confirmation()
	if !found {
		h.writeError(w, r, apperrors.NotFound("confirmation", sf.SID()))
		return
	}
	httputil.WriteData(w, http.StatusOK, conf)
}
