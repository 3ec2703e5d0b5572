package http

import (
	"net/http"

	"github.com/utafrali/storefront/internal/storefront"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// GetSession handles GET /api/v1/session
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	httputil.WriteData(w, http.StatusOK, sf.Session.Snapshot())
}

// SignIn handles POST /api/v1/auth/signin
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	var req storefront.Credentials
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.DecodeError(w, r, err)
		return
	}
	sess, err := sf.SignIn(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, sess)
}

// SignUp handles POST /api/v1/auth/signup
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	var req storefront.Registration
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.DecodeError(w, r, err)
		return
	}
	sess, err := sf.SignUp(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusCreated, sess)
}

// ResetPassword handles PUT /api/v1/auth/password
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	var req storefront.PasswordReset
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.DecodeError(w, r, err)
		return
	}
	sess, err := sf.ResetPassword(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, sess)
}

// Logout handles POST /api/v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sf, ok := h.current(w, r)
	if !ok {
		return
	}
	if err := sf.Logout(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, sf.Session.Snapshot())
}
