// Package middleware holds the HTTP middleware shared by all routes.
package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

const preflightMaxAge = 300 // seconds

// CORS allows browser calls from origins matching one of patterns. A pattern
// is an exact origin or contains one "*" wildcard, such as
// "https://*.lovable.app" or "http://localhost:*". No patterns means no
// cross-origin access. Preflight requests are answered directly.
func CORS(patterns []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   patterns,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           preflightMaxAge,
	}
	if len(patterns) == 0 {
		// go-chi/cors treats an empty list as "allow all".
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	return cors.Handler(opts)
}
