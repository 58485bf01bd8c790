// Package rest exposes the graph read API, the websocket stream and the
// operational endpoints over chi.
package rest

import (
	"net/http"

	"gridguardian-backend/internal/application/services"
	"gridguardian-backend/internal/auth"
	"gridguardian-backend/internal/config"
	apperrors "gridguardian-backend/internal/errors"
	"gridguardian-backend/internal/infrastructure/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterConfig holds the router settings.
type RouterConfig struct {
	AllowedOrigins []string
	ServiceName    string
	Map            config.MapDefaults
}

// Router creates and configures the HTTP router.
type Router struct {
	reader    services.GraphReader
	websocket http.HandlerFunc
	collector *observability.Collector
	validator *auth.Validator
	config    RouterConfig
	logger    *zap.Logger
}

// NewRouter creates a router. websocket, collector and validator may be nil:
// the /ws and /metrics routes are then not mounted and /api is open.
func NewRouter(
	reader services.GraphReader,
	websocket http.HandlerFunc,
	collector *observability.Collector,
	validator *auth.Validator,
	cfg RouterConfig,
	logger *zap.Logger,
) *Router {
	return &Router{
		reader:    reader,
		websocket: websocket,
		collector: collector,
		validator: validator,
		config:    cfg,
		logger:    logger,
	}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(Logger(rt.logger))
	if rt.config.ServiceName != "" {
		router.Use(observability.TracingMiddleware(rt.config.ServiceName))
	}
	if rt.collector != nil {
		router.Use(observability.MetricsMiddleware(rt.collector))
	}

	origins := rt.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Trace-ID"},
		AllowCredentials: !containsWildcard(origins),
		MaxAge:           300,
	}))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	router.Get("/swagger/doc.json", serveDoc)
	if rt.collector != nil {
		router.Handle("/metrics", rt.collector.Handler())
	}
	if rt.websocket != nil {
		router.Get("/ws", rt.websocket)
	}

	router.Route("/api", func(r chi.Router) {
		if rt.validator != nil {
			r.Use(Authenticate(rt.validator, rt.logger))
		}

		h := NewGraphHandler(rt.reader, rt.config.Map, rt.logger)
		r.Get("/graph", h.GetGraph)
		r.Get("/edges", h.ListEdges)
		r.Get("/bounds", h.GetBounds)
		r.Route("/points", func(r chi.Router) {
			r.Get("/", h.ListPoints)
			r.Get("/{pointID}", h.GetPoint)
		})
		r.Route("/snapshot", func(r chi.Router) {
			r.Get("/", h.GetSnapshot)
			r.Post("/", h.RefreshSnapshot)
			r.Delete("/", h.DeleteSnapshot)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, rt.logger, apperrors.NotFound("ROUTE_NOT_FOUND", "route not found").Build())
	})

	return router
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck reports 503 until the first graph load has finished.
func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	state := rt.reader.Current(r.Context())
	body := map[string]any{
		"status":   "ready",
		"points":   len(state.Points),
		"revision": state.Revision,
	}
	if state.Err != nil {
		body["error"] = state.Err.Error()
	}
	if state.Loading {
		body["status"] = "loading"
		respondJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	respondJSON(w, http.StatusOK, body)
}
