/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RequestLogger: Structured request logging (logrus)
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. Metrics:       Prometheus request metrics (when enabled)
  5. CORS:          Cross-origin requests for frontend

ROUTE GROUPS:
  /api/records/*        Paged records, filter options, browse
  /api/periods/*        Period summary
  /api/catalog          Catalog description
  /healthz              Health check
  <MetricsPath>         Prometheus scrape endpoint (when enabled)

SECURITY NOTE:
  No authentication middleware. The API is read-only; deploy it behind
  the same gateway as the rest of the payroll system.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/warp/payroll-browse/metrics"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Logger         *logrus.Logger
	AllowedOrigins []string

	// Metrics, when set, instruments every route and serves MetricsHandler
	// at MetricsPath.
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	MetricsPath    string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/records", func(r chi.Router) {
			r.Get("/", h.ListRecords)
			r.Get("/filters", h.FilterOptions)
			r.Get("/browse", h.Browse)
		})

		r.Route("/periods", func(r chi.Router) {
			r.Get("/summary", h.PeriodSummary)
		})

		r.Get("/catalog", h.GetCatalog)
	})

	r.Get("/healthz", h.Health)

	if opts.Metrics != nil && opts.MetricsHandler != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, opts.MetricsHandler)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", nil)
	})

	return r
}
