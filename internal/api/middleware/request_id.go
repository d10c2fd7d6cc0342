package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/zhinengfan/clearmedia-go/internal/log"
)

// RequestID reads X-Request-ID from the incoming request (generating one if
// absent), echoes it on the response, and attaches it to the request context
// so downstream logging correlates to it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", reqID)

		ctx := log.ContextWithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
