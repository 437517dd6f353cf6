package summary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// InvoiceKind selects the invoice ledger an aggregate runs against.
type InvoiceKind int

const (
	// SalesInvoices aggregates over submitted sales invoices.
	SalesInvoices InvoiceKind = iota
	// PurchaseInvoices aggregates over submitted purchase invoices.
	PurchaseInvoices
)

func (k InvoiceKind) table() (string, error) {
	switch k {
	case SalesInvoices:
		return "sales_invoices", nil
	case PurchaseInvoices:
		return "purchase_invoices", nil
	default:
		return "", fmt.Errorf("summary: unknown invoice kind %d", k)
	}
}

// Scope bounds an aggregate to a company and a date range (inclusive).
type Scope struct {
	Company string
	Start   time.Time
	End     time.Time
}

// FiscalYear is a named fiscal year row.
type FiscalYear struct {
	Name  string
	Start time.Time
	End   time.Time
}

// InvoiceTotals sums grand total and outstanding amount for an invoice ledger.
type InvoiceTotals struct {
	GrandTotal  decimal.Decimal
	Outstanding decimal.Decimal
}

// ProfitAndLoss is the GL based P&L proxy.
type ProfitAndLoss struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// MonthRow is one month of an invoice series.
type MonthRow struct {
	Month string
	Total decimal.Decimal
}

// CustomerRow is one row of the top customer aggregate.
type CustomerRow struct {
	Customer string
	Total    decimal.Decimal
}

// CashBankRow is the balance of one cash or bank account.
type CashBankRow struct {
	Account     string
	AccountName string
	AccountType string
	Balance     decimal.Decimal
}

// ErrFiscalYearNotFound is returned when the named fiscal year does not exist.
var ErrFiscalYearNotFound = errors.New("summary: fiscal year not found")

// Repository exposes the queries the annual summary relies on.
type Repository interface {
	DefaultCompany(ctx context.Context, user string) (string, error)
	FiscalYear(ctx context.Context, name string) (FiscalYear, error)
	InvoiceTotals(ctx context.Context, kind InvoiceKind, scope Scope) (InvoiceTotals, error)
	ProfitAndLoss(ctx context.Context, scope Scope) (ProfitAndLoss, error)
	MonthlyTotals(ctx context.Context, kind InvoiceKind, scope Scope) ([]MonthRow, error)
	TopCustomers(ctx context.Context, scope Scope, limit int) ([]CustomerRow, error)
	CashBankBalances(ctx context.Context, company string, asOf time.Time) ([]CashBankRow, error)
	Companies(ctx context.Context) ([]string, error)
}

// DBTX is the subset of pgxpool.Pool used by PGRepository.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	db DBTX
}

// NewPGRepository builds a repository on top of a pgx pool or transaction.
func NewPGRepository(db DBTX) *PGRepository {
	return &PGRepository{db: db}
}

const defaultCompanySQL = `
SELECT COALESCE(
    (SELECT value FROM user_defaults WHERE user_id = $1 AND key = 'company' AND value <> '' LIMIT 1),
    (SELECT name FROM companies ORDER BY name ASC LIMIT 1),
    ''
)`

// DefaultCompany resolves the user's default company, falling back to the
// first company by name. An empty string means nothing is configured.
func (r *PGRepository) DefaultCompany(ctx context.Context, user string) (string, error) {
	var company string
	if err := r.db.QueryRow(ctx, defaultCompanySQL, user).Scan(&company); err != nil {
		return "", fmt.Errorf("summary: default company: %w", err)
	}
	return company, nil
}

// FiscalYear loads the dates of a named fiscal year.
func (r *PGRepository) FiscalYear(ctx context.Context, name string) (FiscalYear, error) {
	const query = `SELECT name, year_start_date, year_end_date FROM fiscal_years WHERE name = $1`
	var fy FiscalYear
	err := r.db.QueryRow(ctx, query, name).Scan(&fy.Name, &fy.Start, &fy.End)
	if errors.Is(err, pgx.ErrNoRows) {
		return FiscalYear{}, ErrFiscalYearNotFound
	}
	if err != nil {
		return FiscalYear{}, fmt.Errorf("summary: fiscal year: %w", err)
	}
	return fy, nil
}

// InvoiceTotals sums base_grand_total and outstanding_amount over submitted
// invoices inside the scope.
func (r *PGRepository) InvoiceTotals(ctx context.Context, kind InvoiceKind, scope Scope) (InvoiceTotals, error) {
	table, err := kind.table()
	if err != nil {
		return InvoiceTotals{}, err
	}
	query := fmt.Sprintf(`
SELECT COALESCE(SUM(base_grand_total), 0), COALESCE(SUM(outstanding_amount), 0)
FROM %s
WHERE docstatus = 1
  AND company = $1
  AND posting_date BETWEEN $2 AND $3`, table)

	var totals InvoiceTotals
	if err := r.db.QueryRow(ctx, query, scope.Company, scope.Start, scope.End).Scan(&totals.GrandTotal, &totals.Outstanding); err != nil {
		return InvoiceTotals{}, fmt.Errorf("summary: %s totals: %w", table, err)
	}
	return totals, nil
}

const profitAndLossSQL = `
SELECT
    COALESCE(SUM(CASE WHEN a.root_type = 'Income' THEN g.credit - g.debit END), 0) AS income,
    COALESCE(SUM(CASE WHEN a.root_type = 'Expense' THEN g.debit - g.credit END), 0) AS expense
FROM gl_entries g
JOIN accounts a ON a.name = g.account
WHERE g.is_cancelled = FALSE
  AND g.company = $1
  AND g.posting_date BETWEEN $2 AND $3`

// ProfitAndLoss computes income and expense from GL entries by account root type.
func (r *PGRepository) ProfitAndLoss(ctx context.Context, scope Scope) (ProfitAndLoss, error) {
	var pnl ProfitAndLoss
	if err := r.db.QueryRow(ctx, profitAndLossSQL, scope.Company, scope.Start, scope.End).Scan(&pnl.Income, &pnl.Expense); err != nil {
		return ProfitAndLoss{}, fmt.Errorf("summary: profit and loss: %w", err)
	}
	return pnl, nil
}

// MonthlyTotals groups base_grand_total by posting month, ascending.
func (r *PGRepository) MonthlyTotals(ctx context.Context, kind InvoiceKind, scope Scope) ([]MonthRow, error) {
	table, err := kind.table()
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
SELECT to_char(date_trunc('month', posting_date), 'YYYY-MM-01') AS month,
       COALESCE(SUM(base_grand_total), 0) AS total
FROM %s
WHERE docstatus = 1
  AND company = $1
  AND posting_date BETWEEN $2 AND $3
GROUP BY 1
ORDER BY 1 ASC`, table)

	rows, err := r.db.Query(ctx, query, scope.Company, scope.Start, scope.End)
	if err != nil {
		return nil, fmt.Errorf("summary: %s monthly: %w", table, err)
	}
	defer rows.Close()

	result := make([]MonthRow, 0, 12)
	for rows.Next() {
		var row MonthRow
		if err := rows.Scan(&row.Month, &row.Total); err != nil {
			return nil, fmt.Errorf("summary: %s monthly scan: %w", table, err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

const topCustomersSQL = `
SELECT customer, COALESCE(SUM(base_grand_total), 0) AS total
FROM sales_invoices
WHERE docstatus = 1
  AND company = $1
  AND posting_date BETWEEN $2 AND $3
  AND COALESCE(customer, '') <> ''
GROUP BY customer
ORDER BY total DESC
LIMIT $4`

// TopCustomers ranks customers by invoiced total, highest first.
func (r *PGRepository) TopCustomers(ctx context.Context, scope Scope, limit int) ([]CustomerRow, error) {
	rows, err := r.db.Query(ctx, topCustomersSQL, scope.Company, scope.Start, scope.End, limit)
	if err != nil {
		return nil, fmt.Errorf("summary: top customers: %w", err)
	}
	defer rows.Close()

	result := make([]CustomerRow, 0, limit)
	for rows.Next() {
		var row CustomerRow
		if err := rows.Scan(&row.Customer, &row.Total); err != nil {
			return nil, fmt.Errorf("summary: top customers scan: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

const cashBankSQL = `
SELECT a.name,
       COALESCE(a.account_name, ''),
       COALESCE(a.account_type, ''),
       COALESCE(SUM(g.debit - g.credit), 0) AS balance
FROM accounts a
LEFT JOIN gl_entries g
       ON g.account = a.name
      AND g.is_cancelled = FALSE
      AND g.company = $1
      AND g.posting_date <= $2
WHERE a.company = $1
  AND a.is_group = FALSE
  AND a.disabled = FALSE
  AND a.account_type IN ('Cash', 'Bank')
GROUP BY a.name, a.account_name, a.account_type
ORDER BY a.account_name ASC`

// CashBankBalances values every enabled cash and bank ledger as of asOf.
// Accounts without entries are returned with a zero balance.
func (r *PGRepository) CashBankBalances(ctx context.Context, company string, asOf time.Time) ([]CashBankRow, error) {
	rows, err := r.db.Query(ctx, cashBankSQL, company, asOf)
	if err != nil {
		return nil, fmt.Errorf("summary: cash bank: %w", err)
	}
	defer rows.Close()

	result := make([]CashBankRow, 0)
	for rows.Next() {
		var row CashBankRow
		if err := rows.Scan(&row.Account, &row.AccountName, &row.AccountType, &row.Balance); err != nil {
			return nil, fmt.Errorf("summary: cash bank scan: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// Companies lists every company name, used by the cache warmup job.
func (r *PGRepository) Companies(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT name FROM companies ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("summary: companies: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("summary: companies scan: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
