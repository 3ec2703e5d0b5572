package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/storefront"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
)

// Handler serves the storefront JSON API consumed by the presentation layer.
type Handler struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// NewHandler creates a new storefront HTTP handler.
func NewHandler(c *catalog.Catalog, logger *slog.Logger) *Handler {
	return &Handler{catalog: c, logger: logger}
}

// current returns the request's storefront, answering 500 when the session
// middleware did not run.
func (h *Handler) current(w http.ResponseWriter, r *http.Request) (*storefront.Storefront, bool) {
	sf := storefrontFrom(r.Context())
	if sf == nil {
		h.writeError(w, r, apperrors.Internal(errNoStorefront))
		return nil, false
	}
	return sf, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.WriteError(w, r, err, h.logger)
}

var errNoStorefront = errors.New("storefront missing from request context")
