package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS restricts browser access to the dashboard origins configured via
// ALLOWED_ORIGINS. Credentials are allowed because the dashboard sends the
// session JWT on every request.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           600,
	})

	return c.Handler
}
