package dashboard

import (
	"html/template"
	"log/slog"
	"sort"

	"github.com/odyssey-erp/management-dashboard/internal/summary"
)

// Monthly chart presentation constants.
const (
	ChartType       = "axis-mixed"
	ChartHeight     = 240
	SalesColor      = "#4F46E5"
	PurchasesColor  = "#F59E0B"
	datasetLineType = "line"
)

// Dataset is one named series of a chart.
type Dataset struct {
	Name      string    `json:"name"`
	ChartType string    `json:"chartType"`
	Values    []float64 `json:"values"`
}

// ChartData holds the x labels and the aligned datasets.
type ChartData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// LineOptions tune line datasets.
type LineOptions struct {
	HideDots   bool `json:"hideDots"`
	RegionFill bool `json:"regionFill"`
}

// AxisOptions tune the axes.
type AxisOptions struct {
	XIsSeries bool `json:"xIsSeries"`
}

// ChartConfig is handed to a ChartWidget.
type ChartConfig struct {
	Data        ChartData   `json:"data"`
	Type        string      `json:"type"`
	Height      int         `json:"height"`
	Colors      []string    `json:"colors"`
	LineOptions LineOptions `json:"lineOptions"`
	AxisOptions AxisOptions `json:"axisOptions"`
}

// MonthlySeries aligns sales and purchases over the union of their months.
type MonthlySeries struct {
	Months    []string
	Labels    []string
	Sales     []float64
	Purchases []float64
}

// Empty reports whether neither series had a month.
func (s MonthlySeries) Empty() bool {
	return len(s.Months) == 0
}

// BuildMonthlySeries merges both series over the sorted union of month keys.
// A month missing from one series is zero there. When a series repeats a month
// the last total wins.
func BuildMonthlySeries(sales, purchases []summary.MonthTotal, dates DateFormatter) MonthlySeries {
	salesBy := indexMonths(sales)
	purchasesBy := indexMonths(purchases)

	seen := make(map[string]struct{}, len(salesBy)+len(purchasesBy))
	months := make([]string, 0, len(salesBy)+len(purchasesBy))
	for _, set := range []map[string]float64{salesBy, purchasesBy} {
		for month := range set {
			if _, ok := seen[month]; ok {
				continue
			}
			seen[month] = struct{}{}
			months = append(months, month)
		}
	}
	sort.Strings(months)

	if dates == nil {
		dates = LayoutDateFormatter{}
	}
	series := MonthlySeries{
		Months:    months,
		Labels:    make([]string, len(months)),
		Sales:     make([]float64, len(months)),
		Purchases: make([]float64, len(months)),
	}
	for i, month := range months {
		series.Labels[i] = dates.FormatDate(month)
		series.Sales[i] = salesBy[month]
		series.Purchases[i] = purchasesBy[month]
	}
	return series
}

func indexMonths(rows []summary.MonthTotal) map[string]float64 {
	out := make(map[string]float64, len(rows))
	for _, row := range rows {
		out[row.Month] = row.Total
	}
	return out
}

// MonthlyChartConfig builds the two line datasets for the series.
func (r *Renderer) MonthlyChartConfig(series MonthlySeries) ChartConfig {
	return ChartConfig{
		Data: ChartData{
			Labels: series.Labels,
			Datasets: []Dataset{
				{Name: r.t.T("Sales"), ChartType: datasetLineType, Values: series.Sales},
				{Name: r.t.T("Purchases"), ChartType: datasetLineType, Values: series.Purchases},
			},
		},
		Type:        ChartType,
		Height:      ChartHeight,
		Colors:      []string{SalesColor, PurchasesColor},
		LineOptions: LineOptions{HideDots: false, RegionFill: true},
		AxisOptions: AxisOptions{XIsSeries: true},
	}
}

// RenderMonthlyChart renders the monthly trend chart or a placeholder. A
// missing or failing chart widget is not an error for the caller.
func (r *Renderer) RenderMonthlyChart(payload *summary.AnnualSummary) template.HTML {
	var sales, purchases []summary.MonthTotal
	if payload != nil {
		sales = payload.Trends.MonthlySales
		purchases = payload.Trends.MonthlyPurchases
	}

	series := BuildMonthlySeries(sales, purchases, r.dates)
	if series.Empty() {
		return r.execute("empty", r.t.T("No data for the selected period."))
	}

	unavailable := r.t.T("Chart library not available. Data was loaded, but chart rendering is unavailable.")
	if r.chart == nil {
		return r.execute("empty", unavailable)
	}
	svg, err := r.chart.Render(r.MonthlyChartConfig(series))
	if err != nil {
		r.logger.Warn("dashboard chart render", slog.Any("error", err))
		return r.execute("empty", unavailable)
	}
	return r.execute("chart", svg)
}
