package app

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/management-dashboard/internal/chart"
	"github.com/odyssey-erp/management-dashboard/internal/dashboard"
	dashboardhttp "github.com/odyssey-erp/management-dashboard/internal/dashboard/http"
	"github.com/odyssey-erp/management-dashboard/internal/observability"
	"github.com/odyssey-erp/management-dashboard/internal/shared"
	"github.com/odyssey-erp/management-dashboard/internal/summary"
	"github.com/odyssey-erp/management-dashboard/internal/summary/client"
)

// DashboardWiring collects what the page host needs.
type DashboardWiring struct {
	Config     *Config
	Logger     *slog.Logger
	Summary    *summary.Service
	Sessions   *shared.SessionManager
	CSRF       *shared.CSRFManager
	Authorizer dashboardhttp.Authorizer
	Templates  dashboardhttp.TemplateRenderer
	Metrics    *observability.Metrics
	PDF        dashboardhttp.PDFService
	Audit      dashboardhttp.Auditor
}

// NewDashboardHandler composes the page core with locale, chart and client
// choices taken from configuration.
func NewDashboardHandler(w DashboardWiring) *dashboardhttp.Handler {
	cfg := w.Config
	translator := dashboard.NewTranslator(cfg.Language)
	renderer := dashboard.NewRenderer(dashboard.RendererOptions{
		Logger:     w.Logger,
		Translator: translator,
		Money:      dashboard.NewMoneyFormatter(dashboard.NewCurrencyFormat(cfg.Currency, cfg.Language), cfg.Language),
		Dates:      dashboard.LayoutDateFormatter{Layout: cfg.DashboardDateLayout},
		Chart:      chart.SVG{},
	})

	loads := w.Metrics.Dashboard()
	newPage := func(c dashboard.SummaryClient, n dashboard.Notifier) *dashboard.Page {
		opts := dashboard.Options{
			Logger:   w.Logger,
			Client:   c,
			Renderer: renderer,
			Notifier: n,
		}
		if loads != nil {
			opts.Progress = loads
			opts.Recorder = loads
		}
		return dashboard.NewPage(opts)
	}

	var companies dashboardhttp.CompanyLister
	if w.Summary != nil {
		companies = w.Summary
	}
	return dashboardhttp.NewHandler(dashboardhttp.Options{
		Logger:     w.Logger,
		Templates:  w.Templates,
		CSRF:       w.CSRF,
		Pages:      dashboardhttp.NewPageStore(cfg.DashboardPageTTL, newPage, clientFactory(w)),
		Translator: translator,
		Lang:       cfg.Language.String(),
		Companies:  companies,
		PDF:        w.PDF,
		Audit:      w.Audit,
		Authorizer: w.Authorizer,
	})
}

// clientFactory calls the procedure in-process unless SUMMARY_API_URL points
// at a remote deployment sharing the session store, in which case the session
// cookie and CSRF token are forwarded.
func clientFactory(w DashboardWiring) dashboardhttp.ClientFactory {
	if w.Config.SummaryAPIURL == "" {
		return func(r *http.Request, sess *shared.Session) dashboard.SummaryClient {
			return client.NewLocal(w.Summary, sess.User())
		}
	}
	remote := client.NewHTTPClient(w.Config.SummaryAPIURL, w.Config.SummaryAPITimeout)
	return func(r *http.Request, sess *shared.Session) dashboard.SummaryClient {
		c := remote.WithCookie(&http.Cookie{Name: w.Config.SessionCookieName, Value: sess.ID})
		if w.CSRF == nil {
			return c
		}
		token, err := w.CSRF.EnsureToken(r.Context(), sess)
		if err != nil {
			w.Logger.Warn("summary client csrf token", slog.Any("error", err))
			return c
		}
		// The remote side reads the token from Redis before this response commits.
		if w.Sessions != nil {
			if err := w.Sessions.Save(r.Context(), sess); err != nil {
				w.Logger.Warn("save session for summary client", slog.Any("error", err))
			}
		}
		return c.WithCSRFToken(token)
	}
}
