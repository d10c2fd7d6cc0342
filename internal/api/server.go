package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/zhinengfan/clearmedia-go/internal/api/middleware"
	"github.com/zhinengfan/clearmedia-go/internal/config"
	"github.com/zhinengfan/clearmedia-go/internal/mediastore"
)

// Deps are the Control API's dependencies, all owned and constructed by
// cmd/clearmedia's wiring; the API never opens its own store or config
// connection.
type Deps struct {
	Store         mediastore.Store
	StatusManager *mediastore.StatusManager
	Config        *config.Service
	CORSOrigins   []string
	// TracingServiceName names the tracer requests are recorded under;
	// empty disables request tracing (see internal/api/middleware.StackConfig).
	TracingServiceName string
}

// NewRouter builds the full Control API chi.Mux: the canonical middleware
// stack from internal/api/middleware, followed by the §4.10 route table.
func NewRouter(deps Deps) *chi.Mux {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:            true,
		AllowedOrigins:        deps.CORSOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        deps.TracingServiceName,
		EnableLogging:         true,
		EnableRateLimit:       true,
		RateLimitEnabled:      true,
		RateLimitGlobalRPS:    20,
		RateLimitBurst:        40,
	})

	h := &handlers{store: deps.Store, sm: deps.StatusManager, cfg: deps.Config}

	r.Route("/api", func(r chi.Router) {
		r.Get("/files", h.listFiles)
		r.Get("/files/suggest", h.suggestFiles)
		r.Get("/files/{id}", h.getFile)
		r.Post("/files/{id}/retry", h.retryFile)
		r.Post("/files/batch-retry", h.batchRetry)
		r.Post("/files/batch-delete", h.batchDelete)
		r.Get("/stats", h.stats)
		r.Get("/config", h.getConfig)
		r.Post("/config", h.postConfig)
	})
	return r
}

// handlers carries the Control API's dependencies into each route closure.
type handlers struct {
	store mediastore.Store
	sm    *mediastore.StatusManager
	cfg   *config.Service
}
