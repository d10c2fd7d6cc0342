package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// devOrigins are used when the operator leaves CORS_ORIGINS unset, so a
// locally-run web UI still works out of the box.
var devOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:8080",
}

// CORS returns a middleware applying Cross-Origin Resource Sharing headers
// for allowedOrigins. A single "*" entry allows any origin; an empty list
// falls back to devOrigins.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	origins := allowedOrigins
	if len(origins) == 0 {
		origins = devOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID", "X-API-Token", "Authorization"},
		MaxAge:           600,
		AllowCredentials: false,
	})
	return c.Handler
}
