package dashboard

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/management-dashboard/internal/summary"
)

// User facing notice shown when a load fails.
const (
	NoticeTitle     = "Management Dashboard"
	NoticeMessage   = "Could not load dashboard data. Please contact your system administrator."
	NoticeIndicator = "red"
	FreezeMessage   = "Loading annual summary…"
)

var errNoClient = errors.New("dashboard: summary client not configured")

// Containers hold the last rendered fragments. They change only when a load
// succeeds, so a failed load leaves the previous render in place.
type Containers struct {
	KPIs         template.HTML
	Secondary    template.HTML
	Chart        template.HTML
	TopCustomers template.HTML
	CashBank     template.HTML
	Rendered     bool
}

// Snapshot is a consistent copy of the page state.
type Snapshot struct {
	Year       *int
	Company    string
	Loading    bool
	Generation uint64
	Containers Containers
}

// Options wires a Page with its capabilities.
type Options struct {
	Logger   *slog.Logger
	Client   SummaryClient
	Renderer *Renderer
	Notifier Notifier
	Progress ProgressIndicator
	Recorder LoadRecorder
	Now      func() time.Time
}

// Page is one dashboard instance: its filter controls, its loader and its
// rendered containers. It is safe for concurrent use.
type Page struct {
	Year    *IntControl
	Company *LinkControl

	logger   *slog.Logger
	client   SummaryClient
	renderer *Renderer
	notifier Notifier
	progress ProgressIndicator
	recorder LoadRecorder
	now      func() time.Time

	mu         sync.Mutex
	generation uint64
	loading    bool
	containers Containers

	applyMu sync.Mutex
	ctxMu   sync.Mutex
	hookCtx context.Context
}

// NewPage builds a page whose year defaults to the current calendar year.
// Every control change triggers one Load.
func NewPage(opts Options) *Page {
	p := &Page{
		logger:   opts.Logger,
		client:   opts.Client,
		renderer: opts.Renderer,
		notifier: opts.Notifier,
		progress: opts.Progress,
		recorder: opts.Recorder,
		now:      opts.Now,
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.renderer == nil {
		p.renderer = NewRenderer(RendererOptions{Logger: p.logger})
	}
	if p.now == nil {
		p.now = time.Now
	}

	p.Year = NewIntControl(p.renderer.t.T("Year"), p.now().Year())
	p.Company = NewLinkControl(p.renderer.t.T("Company"), "Company")
	p.Year.OnChange(p.reloadFromHook)
	p.Company.OnChange(p.reloadFromHook)
	return p
}

// ApplyFilters sets both controls, loading with ctx for each one that changes.
func (p *Page) ApplyFilters(ctx context.Context, year, company any) {
	p.applyMu.Lock()
	defer p.applyMu.Unlock()
	p.setHookContext(ctx)
	defer p.setHookContext(nil)

	p.Year.SetValue(year)
	p.Company.SetValue(company)
}

func (p *Page) setHookContext(ctx context.Context) {
	p.ctxMu.Lock()
	p.hookCtx = ctx
	p.ctxMu.Unlock()
}

func (p *Page) reloadFromHook() {
	p.ctxMu.Lock()
	ctx := p.hookCtx
	p.ctxMu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	p.Load(ctx)
}

// Args builds the request arguments from the current control values.
func (p *Page) Args() Args {
	var args Args
	if year, ok := p.Year.Int(); ok {
		args.Year = &year
	}
	if company := p.Company.String(); company != "" {
		args.Company = &company
	}
	return args
}

// Load fetches the summary and renders KPIs, chart and breakdowns in that
// order. Only the latest load may render or notify; earlier loads that settle
// afterwards are dropped.
func (p *Page) Load(ctx context.Context) {
	args := p.Args()

	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.loading = true
	p.mu.Unlock()

	loadID := uuid.NewString()
	started := p.now()
	logger := p.logger.With(slog.String("load_id", loadID), slog.Uint64("generation", gen))

	if p.progress != nil {
		p.progress.Freeze(p.renderer.t.T(FreezeMessage))
		defer p.progress.Unfreeze()
	}

	payload, err := p.fetch(ctx, args)

	// Renderers and capabilities run outside p.mu so they may read the page
	// back. The generation is checked again before containers are replaced.
	var next Containers
	if err == nil && p.isLatest(gen) {
		kpis := p.renderer.RenderKPIs(payload)
		chart := p.renderer.RenderMonthlyChart(payload)
		lists := p.renderer.RenderBreakdowns(payload)
		next = Containers{
			KPIs:         kpis.KPIs,
			Secondary:    kpis.Secondary,
			Chart:        chart,
			TopCustomers: lists.TopCustomers,
			CashBank:     lists.CashBank,
			Rendered:     true,
		}
	}

	p.mu.Lock()
	latest := p.generation
	superseded := gen != latest
	if !superseded {
		p.loading = false
		if err == nil {
			p.containers = next
		}
	}
	p.mu.Unlock()

	switch {
	case superseded:
		logger.Debug("dashboard load superseded", slog.Uint64("latest", latest))
		p.record(OutcomeSuperseded, started)
	case err != nil:
		logger.Error("dashboard load", slog.Any("error", err))
		p.record(OutcomeError, started)
		if p.notifier != nil {
			p.notifier.Notify(Notice{
				Title:     p.renderer.t.T(NoticeTitle),
				Message:   p.renderer.t.T(NoticeMessage),
				Indicator: NoticeIndicator,
			})
		}
	default:
		p.record(OutcomeSuccess, started)
	}
}

func (p *Page) isLatest(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return gen == p.generation
}

func (p *Page) fetch(ctx context.Context, args Args) (*summary.AnnualSummary, error) {
	if p.client == nil {
		return nil, errNoClient
	}
	return p.client.AnnualSummary(ctx, args)
}

func (p *Page) record(outcome string, started time.Time) {
	if p.recorder != nil {
		p.recorder.RecordLoad(outcome, p.now().Sub(started).Seconds())
	}
}

// Client returns the summary client loads go through.
func (p *Page) Client() SummaryClient {
	return p.client
}

// Loading reports whether the latest load is still in flight.
func (p *Page) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// Snapshot returns the filters, loading state and containers.
func (p *Page) Snapshot() Snapshot {
	args := p.Args()
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Year:       args.Year,
		Company:    p.Company.String(),
		Loading:    p.loading,
		Generation: p.generation,
		Containers: p.containers,
	}
}
