package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/management-dashboard/internal/summary"
)

func sampleSummary() summary.AnnualSummary {
	return summary.AnnualSummary{
		Company: "Odyssey Trading",
		Period:  summary.PeriodInfo{Label: "2024", StartDate: "2024-01-01", EndDate: "2024-12-31"},
		KPIs: summary.KPIs{
			SalesTotal:     1200,
			PurchasesTotal: 800,
			NetProfit:      250.5,
			AROutstanding:  300,
			APOutstanding:  100,
			IncomeTotal:    1000,
			ExpenseTotal:   749.5,
		},
		Trends: summary.Trends{
			MonthlySales:     []summary.MonthTotal{{Month: "2024-02-01", Total: 700}, {Month: "2024-01-01", Total: 500}},
			MonthlyPurchases: []summary.MonthTotal{{Month: "2024-03-01", Total: 800}},
		},
		Breakdowns: summary.Breakdowns{
			TopCustomers: []summary.CustomerTotal{{Customer: "<Acme>", Total: 900}},
			CashBank:     []summary.CashBankBalance{{Account: "1110 - Cash", AccountName: "Cash", AccountType: "Cash", Balance: 42}},
		},
	}
}

func TestWriteSummaryCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummaryCSV(&buf, sampleSummary()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "KPI Summary\nMetric,Value\nCompany,Odyssey Trading\n"))
	assert.Contains(t, out, "Working Capital (AR - AP),200.00\n")
	assert.Contains(t, out, "\n\nMonthly Sales vs Purchases\nMonth,Sales,Purchases\n2024-01-01,500.00,0.00\n2024-02-01,700.00,0.00\n2024-03-01,0.00,800.00\n")
	assert.Contains(t, out, "<Acme>,900.00\n")
	assert.Contains(t, out, "1110 - Cash,Cash,Cash,42.00\n")
}

func TestWriteSummaryXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummaryXLSX(&buf, sampleSummary()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"KPI Summary", "Monthly Sales vs Purchases", "Top Customers", "Cash & Bank"}, f.GetSheetList())

	rows, err := f.GetRows("Monthly Sales vs Purchases", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Month", "Sales", "Purchases"}, rows[0])
	assert.Equal(t, []string{"2024-03-01", "0", "800"}, rows[3])

	value, err := f.GetCellValue("KPI Summary", "B2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "Odyssey Trading", value)
}

type stubRenderer struct {
	html string
	err  error
}

func (s *stubRenderer) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	s.html = html
	return []byte("%PDF-1.7"), s.err
}

func TestPDFExporter(t *testing.T) {
	renderer := &stubRenderer{}
	exp := NewPDFExporter(renderer)
	exp.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC) }

	pdf, err := exp.RenderSummary(context.Background(), sampleSummary())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(pdf))

	assert.Contains(t, renderer.html, "Annual Summary — 2024")
	assert.Contains(t, renderer.html, "Generated 2025-01-02 03:04")
	assert.Contains(t, renderer.html, "&lt;Acme&gt;")
	assert.NotContains(t, renderer.html, "<Acme>")
	assert.Contains(t, renderer.html, `<td class="amount">900.00</td>`)

	_, err = NewPDFExporter(nil).RenderSummary(context.Background(), sampleSummary())
	assert.Error(t, err)
}
