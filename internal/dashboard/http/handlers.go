package dashboardhttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/odyssey-erp/management-dashboard/internal/dashboard"
	"github.com/odyssey-erp/management-dashboard/internal/shared"
	"github.com/odyssey-erp/management-dashboard/internal/summary"
	"github.com/odyssey-erp/management-dashboard/internal/summary/export"
	"github.com/odyssey-erp/management-dashboard/internal/view"
)

// BasePath is where the dashboard page is mounted.
const BasePath = "/app/management-dashboard"

const (
	pageTitle     = "Management Dashboard"
	exportTimeout = 30 * time.Second
	auditAction   = "management_dashboard.export"
)

var errSessionMissing = errors.New("dashboard: session missing")

// CompanyLister feeds the company picker.
type CompanyLister interface {
	Companies(ctx context.Context) ([]string, error)
}

// PDFService renders the summary to PDF bytes.
type PDFService interface {
	RenderSummary(ctx context.Context, s summary.AnnualSummary) ([]byte, error)
}

// Auditor records exports.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// TemplateRenderer renders full pages.
type TemplateRenderer interface {
	Render(w http.ResponseWriter, name string, data view.TemplateData) error
}

// Options wires the page host.
type Options struct {
	Logger     *slog.Logger
	Templates  TemplateRenderer
	CSRF       *shared.CSRFManager
	Pages      *PageStore
	Translator dashboard.Translator
	Lang       string
	Companies  CompanyLister
	PDF        PDFService
	Audit      Auditor
	Authorizer Authorizer
}

// Authorizer checks the session user against permissions.
type Authorizer interface {
	Authorize(ctx context.Context, perms ...string) error
}

// Handler hosts the dashboard page inside the web app.
type Handler struct {
	logger     *slog.Logger
	templates  TemplateRenderer
	csrf       *shared.CSRFManager
	pages      *PageStore
	t          dashboard.Translator
	lang       string
	companies  CompanyLister
	pdf        PDFService
	audit      Auditor
	authz      Authorizer
	exportPool sync.Pool
}

// NewHandler constructs the page host.
func NewHandler(opts Options) *Handler {
	h := &Handler{
		logger:    opts.Logger,
		templates: opts.Templates,
		csrf:      opts.CSRF,
		pages:     opts.Pages,
		t:         opts.Translator,
		lang:      opts.Lang,
		companies: opts.Companies,
		pdf:       opts.PDF,
		audit:     opts.Audit,
		authz:     opts.Authorizer,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.t == nil {
		h.t = passthrough{}
	}
	h.exportPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

type passthrough struct{}

func (passthrough) T(s string) string { return s }

type filterForm struct {
	Action        string
	RefreshAction string
	YearLabel     string
	CompanyLabel  string
	ApplyLabel    string
	RefreshLabel  string
	Doctype       string
	Year          string
	Company       string
	Companies     []string
	CSRFToken     string
}

type cardTitles struct {
	Trend     string
	Secondary string
	Customers string
	Cash      string
}

type exportLink struct {
	Label string
	Href  string
}

type pageView struct {
	Heading      string
	Loading      bool
	LoadingLabel string
	Filters      filterForm
	Cards        cardTitles
	Containers   dashboard.Containers
	Notices      []dashboard.Notice
	ExportLabel  string
	Exports      []exportLink
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.handleServerError(w, "load page", errSessionMissing)
		return
	}
	entry, created := h.pages.acquire(r, sess)
	page := entry.page

	before := page.Snapshot().Generation
	query := r.URL.Query()
	if query.Has("year") || query.Has("company") {
		year := page.Year.Value()
		if query.Has("year") {
			year = strings.TrimSpace(query.Get("year"))
		}
		company := page.Company.Value()
		if query.Has("company") {
			company = query.Get("company")
		}
		page.ApplyFilters(r.Context(), year, company)
	}
	if created && page.Snapshot().Generation == before {
		page.Load(r.Context())
	}

	csrfToken := ""
	if h.csrf != nil {
		token, err := h.csrf.EnsureToken(r.Context(), sess)
		if err != nil {
			h.handleServerError(w, "csrf token", err)
			return
		}
		csrfToken = token
	}

	snap := page.Snapshot()
	vm := pageView{
		Heading:      h.t.T(pageTitle),
		Loading:      snap.Loading,
		LoadingLabel: h.t.T(dashboard.FreezeMessage),
		Filters: filterForm{
			Action:        BasePath,
			RefreshAction: BasePath + "/refresh",
			YearLabel:     page.Year.Label,
			CompanyLabel:  page.Company.Label,
			ApplyLabel:    h.t.T("Apply"),
			RefreshLabel:  h.t.T("Refresh"),
			Doctype:       page.Company.Doctype,
			Year:          yearString(snap.Year),
			Company:       snap.Company,
			Companies:     h.listCompanies(r.Context()),
			CSRFToken:     csrfToken,
		},
		Cards: cardTitles{
			Trend:     h.t.T("Monthly Sales vs Purchases"),
			Secondary: h.t.T("Net Profit (proxy) & Working Capital"),
			Customers: h.t.T("Top Customers"),
			Cash:      h.t.T("Cash & Bank (as of period end)"),
		},
		Containers:  snap.Containers,
		Notices:     entry.notices.Drain(),
		ExportLabel: h.t.T("Export"),
	}
	if h.canExport(r.Context()) {
		vm.Exports = exportLinks(filterQuery(snap.Year, snap.Company))
	}

	data := view.TemplateData{
		Title:       vm.Heading,
		Lang:        h.lang,
		CSRFToken:   csrfToken,
		Flash:       sess.PopFlash(),
		CurrentPath: r.URL.Path,
		Data:        vm,
	}
	if err := h.templates.Render(w, "pages/dashboard.html", data); err != nil {
		h.handleServerError(w, "render template", err)
	}
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.handleServerError(w, "refresh", errSessionMissing)
		return
	}
	entry, _ := h.pages.acquire(r, sess)
	entry.page.Load(r.Context())
	snap := entry.page.Snapshot()
	target := BasePath
	if q := filterQuery(snap.Year, snap.Company); q != "" {
		target += "?" + q
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) handleExport(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil {
			h.handleServerError(w, "export", errSessionMissing)
			return
		}
		if format == "pdf" && h.pdf == nil {
			http.Error(w, "PDF export is not configured", http.StatusServiceUnavailable)
			return
		}
		entry, _ := h.pages.acquire(r, sess)
		args, err := exportArgs(r.URL.Query(), entry.page)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), exportTimeout)
		defer cancel()

		client := entry.page.Client()
		if client == nil {
			h.handleServerError(w, "export", errors.New("dashboard: summary client not configured"))
			return
		}
		payload, err := client.AnnualSummary(ctx, args)
		if err != nil {
			h.handleServerError(w, "load summary", err)
			return
		}
		if payload == nil {
			payload = &summary.AnnualSummary{}
		}

		buf := h.exportPool.Get().(*bytes.Buffer)
		buf.Reset()
		defer func() {
			buf.Reset()
			h.exportPool.Put(buf)
		}()

		var contentType string
		switch format {
		case "csv":
			contentType = "text/csv; charset=utf-8"
			err = export.WriteSummaryCSV(buf, *payload)
		case "xlsx":
			contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
			err = export.WriteSummaryXLSX(buf, *payload)
		case "pdf":
			contentType = "application/pdf"
			var pdf []byte
			pdf, err = h.pdf.RenderSummary(ctx, *payload)
			buf.Write(pdf)
		default:
			http.NotFound(w, r)
			return
		}
		if err != nil {
			h.handleServerError(w, "write "+format, err)
			return
		}

		h.recordExport(ctx, sess, format, *payload)

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", exportFilename(*payload, format)))
		if _, err := w.Write(buf.Bytes()); err != nil {
			h.logError("stream "+format, err)
		}
	}
}

func (h *Handler) recordExport(ctx context.Context, sess *shared.Session, format string, s summary.AnnualSummary) {
	if h.audit == nil {
		return
	}
	actor, _ := strconv.ParseInt(strings.TrimSpace(sess.User()), 10, 64)
	err := h.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   auditAction,
		Entity:   "company",
		EntityID: s.Company,
		Meta: map[string]any{
			"format": format,
			"period": s.Period.Label,
			"start":  s.Period.StartDate,
			"end":    s.Period.EndDate,
		},
	})
	if err != nil {
		h.logger.Warn("audit export", slog.String("format", format), slog.Any("error", err))
	}
}

func (h *Handler) canExport(ctx context.Context) bool {
	if h.authz == nil {
		return false
	}
	return h.authz.Authorize(ctx, shared.PermManagementDashboardExport) == nil
}

func (h *Handler) listCompanies(ctx context.Context) []string {
	if h.companies == nil {
		return nil
	}
	names, err := h.companies.Companies(ctx)
	if err != nil {
		h.logger.Warn("list companies", slog.Any("error", err))
		return nil
	}
	return names
}

// exportArgs reads year and company from the query, falling back to the
// page's current filters for absent keys.
func exportArgs(q url.Values, page *dashboard.Page) (dashboard.Args, error) {
	args := page.Args()
	if q.Has("year") {
		raw := strings.TrimSpace(q.Get("year"))
		if raw == "" {
			args.Year = nil
		} else {
			year, err := strconv.Atoi(raw)
			if err != nil {
				return dashboard.Args{}, fmt.Errorf("invalid year %q", raw)
			}
			args.Year = &year
		}
	}
	if q.Has("company") {
		company := strings.TrimSpace(q.Get("company"))
		if company == "" {
			args.Company = nil
		} else {
			args.Company = &company
		}
	}
	return args, nil
}

func exportLinks(query string) []exportLink {
	links := make([]exportLink, 0, 3)
	for _, f := range []struct{ label, ext string }{{"CSV", "csv"}, {"Excel", "xlsx"}, {"PDF", "pdf"}} {
		href := BasePath + "/export." + f.ext
		if query != "" {
			href += "?" + query
		}
		links = append(links, exportLink{Label: f.label, Href: href})
	}
	return links
}

func filterQuery(year *int, company string) string {
	values := url.Values{}
	if year != nil {
		values.Set("year", strconv.Itoa(*year))
	}
	if company != "" {
		values.Set("company", company)
	}
	return values.Encode()
}

func exportFilename(s summary.AnnualSummary, ext string) string {
	label := s.Period.Label
	if label == "" {
		label = "summary"
	}
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, strings.TrimSpace(s.Company+" "+label))
	if name == "" {
		name = "summary"
	}
	return fmt.Sprintf("management-dashboard-%s.%s", name, ext)
}

func yearString(year *int) string {
	if year == nil {
		return ""
	}
	return strconv.Itoa(*year)
}

func (h *Handler) handleServerError(w http.ResponseWriter, op string, err error) {
	h.logError(op, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) logError(op string, err error) {
	h.logger.Error("management dashboard", slog.String("op", op), slog.Any("error", err))
}
