package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/storefront"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/middleware"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const storefrontKey contextKey = "storefront"

// CookieConfig controls the browser session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// SessionCookie resolves the browser's storefront from the session cookie,
// minting a new session id when the cookie is missing or malformed. The
// storefront is synced with the persisted session before the handler runs.
func SessionCookie(cfg CookieConfig, registry *storefront.Registry, base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if c, err := r.Cookie(cfg.Name); err == nil {
				if id, err := uuid.Parse(strings.TrimSpace(c.Value)); err == nil {
					sid = id.String()
				}
			}
			if sid == "" {
				sid = uuid.New().String()
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.Name,
					Value:    sid,
					Path:     "/",
					MaxAge:   int(cfg.MaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := logger.WithSessionID(r.Context(), sid)
			r = middleware.Enrich(r.WithContext(ctx), base)

			sf, err := registry.Get(r.Context(), sid)
			if err != nil {
				httputil.WriteError(w, r, err, base)
				return
			}
			if err := sf.Sync(r.Context()); err != nil {
				logger.FromContext(r.Context()).WarnContext(r.Context(), "session sync failed, serving cached state",
					slog.String("error", err.Error()),
				)
			}

			ctx = context.WithValue(r.Context(), storefrontKey, sf)
			if userID := sf.Session.Snapshot().UserID; userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}
			next.ServeHTTP(w, middleware.Enrich(r.WithContext(ctx), base))
		})
	}
}

// storefrontFrom returns the storefront resolved by SessionCookie.
func storefrontFrom(ctx context.Context) *storefront.Storefront {
	sf, _ := ctx.Value(storefrontKey).(*storefront.Storefront)
	return sf
}

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:      "UNSUPPORTED_MEDIA_TYPE",
						Message:   "Content-Type must be application/json",
						RequestID: logger.CorrelationIDFromContext(r.Context()),
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
