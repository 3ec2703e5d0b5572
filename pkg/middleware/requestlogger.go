package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/pkg/logger"
)

// RequestLogger stores a request-scoped logger, enriched with the correlation
// and trace identifiers, in the context. Mount it after RequestLogging and
// Tracing. Handlers that learn the session later add it with
// logger.WithSessionID and call Enrich.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Enrich rebuilds the request logger from base after new identifiers were
// added to r's context.
func Enrich(r *http.Request, base *slog.Logger) *http.Request {
	ctx := r.Context()
	return r.WithContext(logger.NewContext(ctx, logger.WithContext(ctx, base)))
}
