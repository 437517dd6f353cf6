package summary

// AnnualSummary is the payload returned by the annual summary procedure. The
// dashboard page treats every field as optional: a missing section decodes to
// its zero value and renders as "no data".
type AnnualSummary struct {
	Company    string     `json:"company,omitempty"`
	Period     PeriodInfo `json:"period"`
	KPIs       KPIs       `json:"kpis"`
	Trends     Trends     `json:"trends"`
	Breakdowns Breakdowns `json:"breakdowns"`
}

// PeriodInfo describes the reporting interval in wire form.
type PeriodInfo struct {
	Label     string `json:"label"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// KPIs carries the headline totals for the period.
type KPIs struct {
	SalesTotal     float64 `json:"sales_total"`
	PurchasesTotal float64 `json:"purchases_total"`
	NetProfit      float64 `json:"net_profit"`
	AROutstanding  float64 `json:"ar_outstanding"`
	APOutstanding  float64 `json:"ap_outstanding"`
	IncomeTotal    float64 `json:"income_total"`
	ExpenseTotal   float64 `json:"expense_total"`
}

// Trends holds the monthly series.
type Trends struct {
	MonthlySales     []MonthTotal `json:"monthly_sales"`
	MonthlyPurchases []MonthTotal `json:"monthly_purchases"`
}

// MonthTotal is a single point of a monthly series. Month is keyed as
// YYYY-MM-01 by the procedure.
type MonthTotal struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

// Breakdowns holds the ranked lists.
type Breakdowns struct {
	TopCustomers []CustomerTotal   `json:"top_customers"`
	CashBank     []CashBankBalance `json:"cash_bank"`
}

// CustomerTotal is one row of the top customers ranking.
type CustomerTotal struct {
	Customer string  `json:"customer"`
	Total    float64 `json:"total"`
}

// CashBankBalance is the balance of a cash or bank ledger as of period end.
type CashBankBalance struct {
	Account     string  `json:"account"`
	AccountName string  `json:"account_name,omitempty"`
	AccountType string  `json:"account_type,omitempty"`
	Balance     float64 `json:"balance"`
}
