package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/zhinengfan/clearmedia-go/internal/log"
)

// Recoverer stops a panic in any downstream handler from crashing the
// process, logs it with the request's correlation id, and returns a 500
// in the same {detail} shape as every other Control API error.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			buf := make([]byte, 8192)
			n := runtime.Stack(buf, false)
			stack := string(buf[:n])

			reqID := log.RequestIDFromContext(r.Context())

			pathLabel := r.URL.Path
			if !utf8.ValidString(pathLabel) {
				pathLabel = strings.ToValidUTF8(pathLabel, "")
			}

			log.WithComponentFromContext(r.Context(), "panic-recovery").Error().
				Str("event", "panic.recovered").
				Str("method", r.Method).
				Str("path", pathLabel).
				Str("remote_addr", r.RemoteAddr).
				Str("request_id", reqID).
				Interface("panic_value", rec).
				Str("stack_trace", stack).
				Msg("panic recovered in HTTP handler")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "internal server error"})
		}()

		next.ServeHTTP(w, r)
	})
}
