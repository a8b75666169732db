package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BuzzLyutic/task-api/internal/middleware"
)

type RouterOptions struct {
	Logger  *zap.Logger
	Limiter *rate.Limiter
}

func NewRouter(h *TaskHandler, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)

	r.Get("/", h.Welcome)
	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	r.With(middleware.RateLimit(opts.Limiter)).Post("/tasks", h.Create)
	r.Post("/test-task", h.TestTask)

	return r
}
