package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	apiMiddleware "github.com/phrazzld/podscribe/internal/api/middleware"
	"github.com/phrazzld/podscribe/internal/api/shared"
)

// RouterConfig collects the handlers mounted by NewRouter
type RouterConfig struct {
	Queue   *QueueHandler
	History *HistoryHandler
	Stream  *StreamHandler
	Logger  *slog.Logger

	// StartedAt is reported as uptime by the health endpoint
	StartedAt time.Time

	// AllowedOrigins is passed to the CORS middleware; empty allows any
	AllowedOrigins []string

	// Metrics is mounted at /metrics when set
	Metrics http.Handler
}

// NewRouter creates the application router with all routes and middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.StartedAt.IsZero() {
		cfg.StartedAt = time.Now()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	health := healthHandler(cfg.StartedAt)

	r.Route("/api", func(r chi.Router) {
		r.Route("/queue", func(r chi.Router) {
			r.Post("/", cfg.Queue.Submit)
			r.Post("/batch", cfg.Queue.SubmitBatch)
			r.Get("/status", cfg.Queue.Status)
			r.Get("/task/{id}", cfg.Queue.GetTask)
			r.Delete("/task/{id}", cfg.Queue.CancelTask)
			r.Delete("/all", cfg.Queue.ClearQueue)
			r.Get("/subscribe", cfg.Stream.SubscribeStatus)
		})

		r.Get("/progress/{sessionId}", cfg.Stream.SubscribeSession)

		r.Route("/history", func(r chi.Router) {
			r.Get("/", cfg.History.List)
			r.Delete("/", cfg.History.Clear)
			r.Get("/{id}", cfg.History.Get)
			r.Delete("/{id}", cfg.History.Delete)
		})

		r.Get("/health", health)
	})

	r.Get("/health", health)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	return r
}

func healthHandler(startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
			Status:    "ok",
			Timestamp: now.UTC(),
			Uptime:    now.Sub(startedAt).Seconds(),
		})
	}
}
