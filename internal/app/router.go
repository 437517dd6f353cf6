package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	dashboardhttp "github.com/odyssey-erp/management-dashboard/internal/dashboard/http"
	"github.com/odyssey-erp/management-dashboard/internal/observability"
	"github.com/odyssey-erp/management-dashboard/internal/rbac"
	"github.com/odyssey-erp/management-dashboard/internal/shared"
	summaryhttp "github.com/odyssey-erp/management-dashboard/internal/summary/http"
	"github.com/odyssey-erp/management-dashboard/jobs"
	"github.com/odyssey-erp/management-dashboard/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	RBACMiddleware   rbac.Middleware
	SummaryHandler   *summaryhttp.Handler
	DashboardHandler *dashboardhttp.Handler
	JobHandler       *jobs.Handler
	Health           HealthChecks
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with dashboard defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", healthHandler(params.Health, logger))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, dashboardhttp.BasePath, http.StatusSeeOther)
	})

	if params.SummaryHandler != nil {
		params.SummaryHandler.MountRoutes(r)
	}
	if params.DashboardHandler != nil {
		params.DashboardHandler.MountRoutes(r, params.RBACMiddleware)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler lets browsers keep embedded assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
