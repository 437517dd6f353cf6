// Package export writes annual summaries as CSV, XLSX and PDF documents.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/odyssey-erp/management-dashboard/internal/dashboard"
	"github.com/odyssey-erp/management-dashboard/internal/summary"
)

// Section is a titled table of an exported summary.
type Section struct {
	Title  string
	Header []string
	Rows   [][]any
}

// Sections lays the summary out as KPI, monthly trend, top customer and
// cash & bank tables. Amounts stay float64 so each writer can format them.
func Sections(s summary.AnnualSummary) []Section {
	k := s.KPIs
	kpis := Section{
		Title:  "KPI Summary",
		Header: []string{"Metric", "Value"},
		Rows: [][]any{
			{"Company", s.Company},
			{"Period", s.Period.Label},
			{"Start Date", s.Period.StartDate},
			{"End Date", s.Period.EndDate},
			{"Sales", k.SalesTotal},
			{"Purchases", k.PurchasesTotal},
			{"Net Profit (proxy)", k.NetProfit},
			{"Receivables (Outstanding)", k.AROutstanding},
			{"Payables (Outstanding)", k.APOutstanding},
			{"Income", k.IncomeTotal},
			{"Expense", k.ExpenseTotal},
			{"Working Capital (AR - AP)", dashboard.WorkingCapital(k)},
		},
	}

	series := dashboard.BuildMonthlySeries(s.Trends.MonthlySales, s.Trends.MonthlyPurchases, rawMonths{})
	monthly := Section{Title: "Monthly Sales vs Purchases", Header: []string{"Month", "Sales", "Purchases"}}
	for i, month := range series.Months {
		monthly.Rows = append(monthly.Rows, []any{month, series.Sales[i], series.Purchases[i]})
	}

	customers := Section{Title: "Top Customers", Header: []string{"Customer", "Total"}}
	for _, c := range s.Breakdowns.TopCustomers {
		customers.Rows = append(customers.Rows, []any{c.Customer, c.Total})
	}

	cash := Section{Title: "Cash & Bank", Header: []string{"Account", "Account Name", "Type", "Balance"}}
	for _, a := range s.Breakdowns.CashBank {
		cash.Rows = append(cash.Rows, []any{a.Account, a.AccountName, a.AccountType, a.Balance})
	}

	return []Section{kpis, monthly, customers, cash}
}

// WriteSummaryCSV writes every section, separated by a blank line.
func WriteSummaryCSV(w io.Writer, s summary.AnnualSummary) error {
	writer := csv.NewWriter(w)
	for i, section := range Sections(s) {
		if i > 0 {
			if err := writer.Write([]string{}); err != nil {
				return err
			}
		}
		if err := writer.Write([]string{section.Title}); err != nil {
			return err
		}
		if err := writer.Write(section.Header); err != nil {
			return err
		}
		for _, row := range section.Rows {
			if err := writer.Write(cellStrings(row)); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

type rawMonths struct{}

func (rawMonths) FormatDate(key string) string { return key }

func cellStrings(row []any) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		switch v := cell.(type) {
		case float64:
			out[i] = formatFloat(v)
		case string:
			out[i] = v
		}
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
