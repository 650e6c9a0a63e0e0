package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gearbox-ops/gearbox-ops/internal/billing"
	"github.com/gearbox-ops/gearbox-ops/internal/catalog"
	"github.com/gearbox-ops/gearbox-ops/internal/customers"
	"github.com/gearbox-ops/gearbox-ops/internal/fleet"
	"github.com/gearbox-ops/gearbox-ops/internal/jobcards"
	"github.com/gearbox-ops/gearbox-ops/internal/observability"
	"github.com/gearbox-ops/gearbox-ops/internal/rbac"
	"github.com/gearbox-ops/gearbox-ops/internal/settings"
	"github.com/gearbox-ops/gearbox-ops/internal/trash"
	"github.com/gearbox-ops/gearbox-ops/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	RBACMiddleware   rbac.Middleware
	CatalogHandler   *catalog.Handler
	CustomersHandler *customers.Handler
	FleetHandler     *fleet.Handler
	JobsHandler      *jobcards.Handler
	BillingHandler   *billing.Handler
	TrashHandler     *trash.Handler
	SettingsHandler  *settings.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Gearbox defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		mw := params.RBACMiddleware
		if params.CatalogHandler != nil {
			params.CatalogHandler.MountRoutes(r, mw)
		}
		if params.CustomersHandler != nil {
			params.CustomersHandler.MountRoutes(r, mw)
		}
		if params.FleetHandler != nil {
			params.FleetHandler.MountRoutes(r, mw)
		}
		if params.JobsHandler != nil {
			params.JobsHandler.MountRoutes(r, mw)
		}
		if params.BillingHandler != nil {
			params.BillingHandler.MountRoutes(r, mw)
		}
		if params.TrashHandler != nil {
			params.TrashHandler.MountRoutes(r, mw)
		}
		if params.SettingsHandler != nil {
			params.SettingsHandler.MountRoutes(r, mw)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
