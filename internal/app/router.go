package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocktrack/stocktrack/internal/auth"
	"github.com/stocktrack/stocktrack/internal/catalog"
	"github.com/stocktrack/stocktrack/internal/ledger"
	"github.com/stocktrack/stocktrack/internal/notify"
	"github.com/stocktrack/stocktrack/internal/observability"
	"github.com/stocktrack/stocktrack/internal/requests"
	"github.com/stocktrack/stocktrack/internal/sku"
	"github.com/stocktrack/stocktrack/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Auth            auth.Middleware
	AuthHandler     *auth.Handler
	SKUHandler      *sku.Handler
	CatalogHandler  *catalog.Handler
	LedgerHandler   *ledger.Handler
	RequestsHandler *requests.Handler
	NotifyHandler   *notify.Handler
	JobHandler      *jobs.Handler
	Pool            *pgxpool.Pool
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Auth:    params.Auth,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		status := "ok"
		code := http.StatusOK
		if params.Pool != nil {
			if err := params.Pool.Ping(req.Context()); err != nil {
				params.Logger.Error("health check", slog.Any("error", err))
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{"status":"` + status + `"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(params.Auth.RequireAuthenticated)

		r.Route("/catalog", func(r chi.Router) {
			params.CatalogHandler.MountRoutes(r)
			r.Route("/sku", func(r chi.Router) {
				params.SKUHandler.MountRoutes(r)
			})
		})
		r.Route("/ledger", func(r chi.Router) {
			params.LedgerHandler.MountRoutes(r)
		})
		r.Route("/requests", func(r chi.Router) {
			params.RequestsHandler.MountRoutes(r)
		})
		r.Route("/notifications", func(r chi.Router) {
			params.NotifyHandler.MountRoutes(r)
		})
		if params.JobHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(params.Auth.RequireAdmin)
				params.JobHandler.MountRoutes(r)
			})
		}
	})

	return r
}
