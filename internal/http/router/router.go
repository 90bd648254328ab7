package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"onfleet-workers-go/internal/http/handlers"
	mw "onfleet-workers-go/internal/http/middleware"
	"onfleet-workers-go/internal/http/middleware/ratelimit"
	"onfleet-workers-go/internal/logx"
)

// APIPrefix is where the workers REST surface is mounted.
const APIPrefix = "/api/v2"

// Params holds everything the sandbox router mounts.
type Params struct {
	Logger  logx.Logger
	Base    *handlers.Handlers
	Workers *handlers.WorkerHandler
	// RateLimit is optional.
	RateLimit *ratelimit.Middleware
	APIKeys   []string
	Timeout   time.Duration
}

// New constructs a chi-based http.Handler with base middleware and routes.
func New(p Params) http.Handler {
	if p.Logger == nil {
		p.Logger = logx.Nop()
	}
	if p.Timeout <= 0 {
		p.Timeout = 5 * time.Second
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Observability(p.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/ping", p.Base.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(p.Base.HealthcheckHead))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(p.Timeout))
		if p.RateLimit != nil {
			r.Use(p.RateLimit.Handler())
		}
		r.Use(mw.APIKeyAuth(p.Logger, p.APIKeys...))

		r.Route(APIPrefix, func(r chi.Router) {
			mountWorkers(r, p.Workers)
		})
		r.Post("/sandbox/workers/{id}/telemetry", p.Workers.ReportTelemetry)
	})

	r.NotFound(p.Base.NotFound)
	r.MethodNotAllowed(p.Base.MethodNotAllowed)

	return r
}

func mountWorkers(r chi.Router, h *handlers.WorkerHandler) {
	r.Route("/workers", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/location", h.GetByLocation)
		r.Post("/metadata", h.MatchMetadata)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Get("/schedule", h.GetSchedule)
			r.Post("/schedule", h.SetSchedule)
		})
	})
	r.Put("/containers/workers/{id}", h.InsertTask)
}
