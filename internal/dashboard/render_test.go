package dashboard

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/management-dashboard/internal/summary"
)

type fakeCurrency struct {
	err   error
	panic bool
}

func (f fakeCurrency) Format(amount float64) (string, error) {
	if f.panic {
		panic("formatter exploded")
	}
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("Rp %.0f", amount), nil
}

type recordingChart struct {
	calls int
	last  ChartConfig
	err   error
}

func (c *recordingChart) Render(cfg ChartConfig) (template.HTML, error) {
	c.calls++
	c.last = cfg
	if c.err != nil {
		return "", c.err
	}
	return template.HTML(`<svg data-test="chart"></svg>`), nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRenderer(chart ChartWidget) *Renderer {
	return NewRenderer(RendererOptions{
		Logger: quietLogger(),
		Money:  NewMoneyFormatter(fakeCurrency{}, language.English),
		Dates:  LayoutDateFormatter{Layout: "2006-01"},
		Chart:  chart,
	})
}

func samplePayload() *summary.AnnualSummary {
	return &summary.AnnualSummary{
		Company: "Odyssey Trading",
		Period:  summary.PeriodInfo{Label: "2024", StartDate: "2024-01-01", EndDate: "2024-12-31"},
		KPIs: summary.KPIs{
			SalesTotal:     12000,
			PurchasesTotal: 7000,
			NetProfit:      3000,
			AROutstanding:  800,
			APOutstanding:  300,
			IncomeTotal:    9000,
			ExpenseTotal:   6000,
		},
		Trends: summary.Trends{
			MonthlySales:     []summary.MonthTotal{{Month: "2024-01-01", Total: 100}, {Month: "2024-03-01", Total: 300}},
			MonthlyPurchases: []summary.MonthTotal{{Month: "2024-02-01", Total: 50}},
		},
		Breakdowns: summary.Breakdowns{
			TopCustomers: []summary.CustomerTotal{{Customer: "Acme Corp", Total: 5000}, {Customer: "Beta", Total: 9000}},
			CashBank:     []summary.CashBankBalance{{Account: "1110 - Cash", AccountName: "Cash", AccountType: "Cash", Balance: 250}},
		},
	}
}

func TestRenderMonthlyChartEmptyNeverCallsWidget(t *testing.T) {
	chart := &recordingChart{}
	r := newTestRenderer(chart)

	payload := samplePayload()
	payload.Trends = summary.Trends{}

	out := r.RenderMonthlyChart(payload)
	assert.Contains(t, string(out), "No data for the selected period.")
	assert.Zero(t, chart.calls)

	out = r.RenderMonthlyChart(nil)
	assert.Contains(t, string(out), "No data for the selected period.")
	assert.Zero(t, chart.calls)
}

func TestBuildMonthlySeriesDisjointUnion(t *testing.T) {
	sales := []summary.MonthTotal{{Month: "2024-05-01", Total: 5}, {Month: "2024-01-01", Total: 1}}
	purchases := []summary.MonthTotal{{Month: "2024-03-01", Total: 3}, {Month: "2024-02-01", Total: 2}}

	series := BuildMonthlySeries(sales, purchases, nil)

	require.Len(t, series.Months, len(sales)+len(purchases))
	assert.Equal(t, []string{"2024-01-01", "2024-02-01", "2024-03-01", "2024-05-01"}, series.Months)
	assert.Equal(t, []float64{1, 0, 0, 5}, series.Sales)
	assert.Equal(t, []float64{0, 2, 3, 0}, series.Purchases)
	assert.Equal(t, []string{"01-01-2024", "01-02-2024", "01-03-2024", "01-05-2024"}, series.Labels)
}

func TestBuildMonthlySeriesSharedMonths(t *testing.T) {
	sales := []summary.MonthTotal{{Month: "2024-01-01", Total: 10}, {Month: "2024-02-01", Total: 20}}
	purchases := []summary.MonthTotal{{Month: "2024-02-01", Total: 7}}

	series := BuildMonthlySeries(sales, purchases, LayoutDateFormatter{Layout: "Jan 2006"})

	assert.Equal(t, []string{"2024-01-01", "2024-02-01"}, series.Months)
	assert.Equal(t, []string{"Jan 2024", "Feb 2024"}, series.Labels)
	assert.Equal(t, []float64{10, 20}, series.Sales)
	assert.Equal(t, []float64{0, 7}, series.Purchases)
}

func TestRenderMonthlyChartConfig(t *testing.T) {
	chart := &recordingChart{}
	r := newTestRenderer(chart)

	out := r.RenderMonthlyChart(samplePayload())
	assert.Contains(t, string(out), `<svg data-test="chart"></svg>`)
	require.Equal(t, 1, chart.calls)

	cfg := chart.last
	assert.Equal(t, "axis-mixed", cfg.Type)
	assert.Equal(t, 240, cfg.Height)
	assert.Equal(t, []string{"#4F46E5", "#F59E0B"}, cfg.Colors)
	assert.Equal(t, LineOptions{HideDots: false, RegionFill: true}, cfg.LineOptions)
	assert.True(t, cfg.AxisOptions.XIsSeries)
	assert.Equal(t, []string{"2024-01", "2024-02", "2024-03"}, cfg.Data.Labels)
	require.Len(t, cfg.Data.Datasets, 2)
	assert.Equal(t, Dataset{Name: "Sales", ChartType: "line", Values: []float64{100, 0, 300}}, cfg.Data.Datasets[0])
	assert.Equal(t, Dataset{Name: "Purchases", ChartType: "line", Values: []float64{0, 50, 0}}, cfg.Data.Datasets[1])
}

func TestRenderMonthlyChartWithoutWidget(t *testing.T) {
	const unavailable = "Chart library not available. Data was loaded, but chart rendering is unavailable."

	out := newTestRenderer(nil).RenderMonthlyChart(samplePayload())
	assert.Contains(t, string(out), unavailable)

	failing := &recordingChart{err: errors.New("no canvas")}
	out = newTestRenderer(failing).RenderMonthlyChart(samplePayload())
	assert.Contains(t, string(out), unavailable)
	assert.Equal(t, 1, failing.calls)
}

func TestWorkingCapital(t *testing.T) {
	assert.Equal(t, 500.0, WorkingCapital(summary.KPIs{AROutstanding: 500}))
	assert.Equal(t, -200.0, WorkingCapital(summary.KPIs{APOutstanding: 200}))
	assert.Equal(t, 500.0, WorkingCapital(summary.KPIs{AROutstanding: 800, APOutstanding: 300}))

	view := newTestRenderer(nil).BuildKPIView(&summary.AnnualSummary{KPIs: summary.KPIs{AROutstanding: 500}})
	require.Len(t, view.Secondary, 3)
	assert.Equal(t, "Working Capital (AR - AP)", view.Secondary[2].Label)
	assert.Equal(t, "Rp 500", view.Secondary[2].Value)
}

func TestRenderKPIs(t *testing.T) {
	frag := newTestRenderer(nil).RenderKPIs(samplePayload())

	kpis := string(frag.KPIs)
	assert.Contains(t, kpis, "Annual Summary — 2024")
	assert.Contains(t, kpis, "Period: 2024-01-01 → 2024-12-31")
	for _, label := range []string{"Sales", "Purchases", "Net Profit (proxy)", "Receivables (Outstanding)", "Payables (Outstanding)"} {
		assert.Contains(t, kpis, label)
	}
	assert.Contains(t, kpis, "Rp 12000")
	assert.Equal(t, 5, strings.Count(kpis, `class="md-kpi"`))

	secondary := string(frag.Secondary)
	assert.Contains(t, secondary, "Income")
	assert.Contains(t, secondary, "Rp 9000")
	assert.Contains(t, secondary, "Rp 500")
}

func TestRenderKPIsNilPayload(t *testing.T) {
	view := newTestRenderer(nil).BuildKPIView(nil)
	assert.Equal(t, "Annual Summary — ", view.Title)
	assert.Equal(t, "Period:  → ", view.Subtitle)
	for _, tile := range append(view.Tiles, view.Secondary...) {
		assert.Equal(t, "Rp 0", tile.Value)
	}
}

func TestRenderBreakdownsIndependentPlaceholders(t *testing.T) {
	r := newTestRenderer(nil)

	payload := samplePayload()
	payload.Breakdowns.TopCustomers = nil
	out := r.RenderBreakdowns(payload)
	assert.Contains(t, string(out.TopCustomers), "No customers found for the selected period.")
	assert.NotContains(t, string(out.CashBank), "No Cash/Bank accounts found.")
	assert.Contains(t, string(out.CashBank), "Cash")

	payload = samplePayload()
	payload.Breakdowns.CashBank = nil
	out = r.RenderBreakdowns(payload)
	assert.Contains(t, string(out.CashBank), "No Cash/Bank accounts found.")
	assert.NotContains(t, string(out.TopCustomers), "No customers found")

	out = r.RenderBreakdowns(nil)
	assert.Contains(t, string(out.TopCustomers), "No customers found for the selected period.")
	assert.Contains(t, string(out.CashBank), "No Cash/Bank accounts found.")
}

func TestRenderBreakdownsKeepsOrderAndFallsBackToAccount(t *testing.T) {
	payload := samplePayload()
	payload.Breakdowns.CashBank = append(payload.Breakdowns.CashBank, summary.CashBankBalance{Account: "1120 - Bank BCA", Balance: 10})

	out := newTestRenderer(nil).RenderBreakdowns(payload)
	customers := string(out.TopCustomers)
	assert.Less(t, strings.Index(customers, "Acme Corp"), strings.Index(customers, "Beta"))
	assert.Contains(t, customers, `href="/app/customer/Acme%20Corp"`)
	assert.Contains(t, string(out.CashBank), "1120 - Bank BCA")
	assert.Contains(t, string(out.CashBank), `<span class="md-badge"></span>`)
}

func TestRenderBreakdownsEscapesMarkup(t *testing.T) {
	payload := samplePayload()
	payload.Breakdowns.TopCustomers = []summary.CustomerTotal{{Customer: `<script>alert("x")</script>`, Total: 1}}
	payload.Breakdowns.CashBank = []summary.CashBankBalance{{Account: "a", AccountName: `<img src=x onerror=alert(1)>`, AccountType: "<b>Bank</b>"}}
	payload.Period.Label = "<i>2024</i>"

	r := newTestRenderer(nil)
	out := r.RenderBreakdowns(payload)
	customers := string(out.TopCustomers)
	assert.NotContains(t, customers, "<script>")
	assert.Contains(t, customers, "&lt;script&gt;")
	assert.Contains(t, customers, `href="/app/customer/%3Cscript%3Ealert%28%22x%22%29%3C%2Fscript%3E"`)

	cash := string(out.CashBank)
	assert.NotContains(t, cash, "<img")
	assert.Contains(t, cash, "&lt;img")
	assert.Contains(t, cash, "&lt;b&gt;Bank&lt;/b&gt;")

	kpis := string(r.RenderKPIs(payload).KPIs)
	assert.NotContains(t, kpis, "<i>2024</i>")
	assert.Contains(t, kpis, "&lt;i&gt;2024&lt;/i&gt;")
}

func TestCustomerHref(t *testing.T) {
	assert.Equal(t, "/app/customer/Acme%20Corp", CustomerHref("Acme Corp"))
	assert.Equal(t, "/app/customer/A%2FB%20%26%20Co", CustomerHref("A/B & Co"))
}

func TestMoneyFallback(t *testing.T) {
	cases := []struct {
		name string
		cf   CurrencyFormatter
		want string
	}{
		{"formatter ok", fakeCurrency{}, "Rp 1234"},
		{"nil formatter", nil, "1,234.50"},
		{"formatter error", fakeCurrency{err: errors.New("unknown currency")}, "1,234.50"},
		{"formatter panic", fakeCurrency{panic: true}, "1,234.50"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMoneyFormatter(tc.cf, language.English)
			assert.NotPanics(t, func() {
				assert.Equal(t, tc.want, m.Money(1234.5))
			})
		})
	}

	var zero MoneyFormatter
	assert.Equal(t, "0.00", zero.Money(0))
}

func TestCurrencyFormat(t *testing.T) {
	f := NewCurrencyFormat(mustCurrency(t, "USD"), language.English)
	out, err := f.Format(1234.5)
	require.NoError(t, err)
	assert.Contains(t, out, "1,234.50")

	_, err = f.Format(nan())
	assert.Error(t, err)
}

func TestTranslator(t *testing.T) {
	id := NewTranslator(language.Indonesian)
	assert.Equal(t, "Penjualan", id.T("Sales"))
	assert.Equal(t, "Tidak ada akun Kas/Bank.", id.T("No Cash/Bank accounts found."))
	assert.Equal(t, "Unmapped label", id.T("Unmapped label"))
	assert.Equal(t, "100%", id.T("100%"))

	en := NewTranslator(language.English)
	assert.Equal(t, "Sales", en.T("Sales"))
}

func TestLayoutDateFormatter(t *testing.T) {
	f := LayoutDateFormatter{}
	assert.Equal(t, "01-03-2024", f.FormatDate("2024-03-01"))
	assert.Equal(t, "01-03-2024", f.FormatDate("2024-03"))
	assert.Equal(t, "Q1", f.FormatDate("Q1"))
}
