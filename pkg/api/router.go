package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/rankly/internal/logger"
	"github.com/marmos91/rankly/pkg/api/handlers"
	"github.com/marmos91/rankly/pkg/engine"
)

// requestTimeout bounds every REST request. The websocket route is exempt.
const requestTimeout = 30 * time.Second

// NewRouter creates and configures the chi router with all middleware and routes.
//
// Routes:
//   - GET    /health, /health/ready
//   - GET    /api/v1/cache, /api/v1/cache/entries
//   - DELETE /api/v1/cache, /api/v1/cache/entries?key=
//   - GET    /api/v1/scheduler, POST /api/v1/scheduler/enqueue
//   - GET    /api/v1/resources?key=, /api/v1/resources/content?key=
//   - POST   /api/v1/targets, GET|DELETE /api/v1/targets/{id}
//   - POST   /api/v1/viewport, GET /api/v1/viewport/ws
func NewRouter(eng *engine.Engine, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	healthHandler := handlers.NewHealthHandler(eng)
	r.Route("/health", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	cacheHandler := handlers.NewCacheHandler(eng)
	schedHandler := handlers.NewSchedulerHandler(eng)
	resourceHandler := handlers.NewResourceHandler(eng)
	targetHandler := handlers.NewTargetHandler(eng)
	viewportHandler := handlers.NewViewportHandler(eng, allowedOrigins)

	r.Route("/api/v1", func(r chi.Router) {
		// The stream outlives any request timeout.
		r.Get("/viewport/ws", viewportHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Route("/cache", func(r chi.Router) {
				r.Get("/", cacheHandler.Status)
				r.Delete("/", cacheHandler.Clear)
				r.Get("/entries", cacheHandler.Entries)
				r.Delete("/entries", cacheHandler.Remove)
			})

			r.Route("/scheduler", func(r chi.Router) {
				r.Get("/", schedHandler.Status)
				r.Post("/enqueue", schedHandler.Enqueue)
			})

			r.Route("/resources", func(r chi.Router) {
				r.Get("/", resourceHandler.Get)
				r.Get("/content", resourceHandler.Content)
			})

			r.Route("/targets", func(r chi.Router) {
				r.Post("/", targetHandler.Create)
				r.Get("/{id}", targetHandler.Get)
				r.Delete("/{id}", targetHandler.Delete)
			})

			r.Post("/viewport", viewportHandler.Report)
		})
	})

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs request start at DEBUG and completion at INFO.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.DurationMs(start),
		)
	})
}
