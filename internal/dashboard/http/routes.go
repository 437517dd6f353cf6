package dashboardhttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/management-dashboard/internal/shared"
)

// Guard wraps handlers with a permission check.
type Guard interface {
	RequireAny(perms ...string) func(http.Handler) http.Handler
}

// MountRoutes registers the page, refresh and export endpoints.
func (h *Handler) MountRoutes(r chi.Router, guard Guard) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Route(BasePath, func(r chi.Router) {
		r.Use(guard.RequireAny(shared.PermManagementDashboardView))
		r.Get("/", h.handlePage)
		r.Post("/refresh", h.handleRefresh)
		r.Group(func(gr chi.Router) {
			gr.Use(guard.RequireAny(shared.PermManagementDashboardExport))
			gr.Use(limiter)
			gr.Get("/export.csv", h.handleExport("csv"))
			gr.Get("/export.xlsx", h.handleExport("xlsx"))
			gr.Get("/export.pdf", h.handleExport("pdf"))
		})
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if user := strings.TrimSpace(sess.User()); user != "" {
			return "user:" + user, nil
		}
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
