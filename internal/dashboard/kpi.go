package dashboard

import (
	"html/template"

	"github.com/odyssey-erp/management-dashboard/internal/summary"
)

// Tile is a labelled, formatted figure.
type Tile struct {
	Label string
	Value string
}

// KPIView is the data behind the KPI header, the tile grid and the secondary panel.
type KPIView struct {
	Title     string
	Subtitle  string
	Tiles     []Tile
	Secondary []Tile
}

// KPIFragments are the rendered KPI containers.
type KPIFragments struct {
	KPIs      template.HTML
	Secondary template.HTML
}

// WorkingCapital is receivables minus payables outstanding.
func WorkingCapital(k summary.KPIs) float64 {
	return k.AROutstanding - k.APOutstanding
}

// BuildKPIView maps a payload to the KPI view. A nil payload yields empty
// labels and zero amounts.
func (r *Renderer) BuildKPIView(payload *summary.AnnualSummary) KPIView {
	var (
		k      summary.KPIs
		period summary.PeriodInfo
	)
	if payload != nil {
		k = payload.KPIs
		period = payload.Period
	}

	return KPIView{
		Title:    r.t.T("Annual Summary") + " — " + period.Label,
		Subtitle: r.t.T("Period") + ": " + period.StartDate + " → " + period.EndDate,
		Tiles: []Tile{
			{Label: r.t.T("Sales"), Value: r.money.Money(k.SalesTotal)},
			{Label: r.t.T("Purchases"), Value: r.money.Money(k.PurchasesTotal)},
			{Label: r.t.T("Net Profit (proxy)"), Value: r.money.Money(k.NetProfit)},
			{Label: r.t.T("Receivables (Outstanding)"), Value: r.money.Money(k.AROutstanding)},
			{Label: r.t.T("Payables (Outstanding)"), Value: r.money.Money(k.APOutstanding)},
		},
		Secondary: []Tile{
			{Label: r.t.T("Income"), Value: r.money.Money(k.IncomeTotal)},
			{Label: r.t.T("Expense"), Value: r.money.Money(k.ExpenseTotal)},
			{Label: r.t.T("Working Capital (AR - AP)"), Value: r.money.Money(WorkingCapital(k))},
		},
	}
}

// RenderKPIs renders the KPI header with tiles and the secondary panel.
func (r *Renderer) RenderKPIs(payload *summary.AnnualSummary) KPIFragments {
	view := r.BuildKPIView(payload)
	return KPIFragments{
		KPIs:      r.execute("kpis", view),
		Secondary: r.execute("secondary", view),
	}
}
