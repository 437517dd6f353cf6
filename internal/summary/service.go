package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// TopCustomerLimit caps the top customers breakdown.
const TopCustomerLimit = 5

// Years outside this range are rejected before any lookup.
const (
	MinYear = 1900
	MaxYear = 9999
)

var (
	// ErrNoCompany is returned when no company is given, defaulted or configured.
	ErrNoCompany = errors.New("summary: no company found or configured")
	// ErrLoginRequired is returned for guest callers.
	ErrLoginRequired = errors.New("summary: login required")
	// ErrPermissionDenied is returned when the caller lacks the management permission.
	ErrPermissionDenied = errors.New("summary: permission denied")
	// ErrInvalidYear is returned for a year outside MinYear..MaxYear.
	ErrInvalidYear = errors.New("summary: year out of range")
)

// Request carries the procedure arguments. All fields are optional.
type Request struct {
	Year       *int   `json:"year" validate:"omitempty,gte=1900,lte=9999"`
	FiscalYear string `json:"fiscal_year" validate:"max=140"`
	Company    string `json:"company" validate:"max=140"`
}

// Service computes annual summaries with the cache layer in front of the repository.
type Service struct {
	repo  Repository
	cache *Cache
	now   func() time.Time
}

// NewService wires a Repository with a Cache helper. cache may be nil.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Cache exposes the cache helper so jobs can bump it.
func (s *Service) Cache() *Cache {
	return s.cache
}

// Companies lists the companies known to the repository.
func (s *Service) Companies(ctx context.Context) ([]string, error) {
	return s.repo.Companies(ctx)
}

// GetAnnualSummary resolves company and period for user and returns the summary.
func (s *Service) GetAnnualSummary(ctx context.Context, user string, req Request) (AnnualSummary, error) {
	if req.Year != nil && (*req.Year < MinYear || *req.Year > MaxYear) {
		return AnnualSummary{}, fmt.Errorf("%w: %d", ErrInvalidYear, *req.Year)
	}
	company, err := s.resolveCompany(ctx, user, req.Company)
	if err != nil {
		return AnnualSummary{}, err
	}
	year := 0
	if req.Year != nil {
		year = *req.Year
	}
	period := s.resolvePeriod(ctx, year, req.FiscalYear)

	loader := func(ctx context.Context) (interface{}, error) {
		return s.compute(ctx, company, period)
	}

	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return AnnualSummary{}, err
		}
		return value.(AnnualSummary), nil
	}

	key, err := s.cache.BuildKey(ctx, keyAnnual(company, period))
	if err != nil {
		return AnnualSummary{}, err
	}
	var out AnnualSummary
	if err := s.cache.FetchJSON(ctx, key, &out, loader); err != nil {
		return AnnualSummary{}, err
	}
	return out, nil
}

func (s *Service) resolveCompany(ctx context.Context, user, company string) (string, error) {
	if company = strings.TrimSpace(company); company != "" {
		return company, nil
	}
	company, err := s.repo.DefaultCompany(ctx, user)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCompany, err)
	}
	if strings.TrimSpace(company) == "" {
		return "", ErrNoCompany
	}
	return company, nil
}

// resolvePeriod prefers a named fiscal year and falls back to the calendar year
// whenever the lookup fails.
func (s *Service) resolvePeriod(ctx context.Context, year int, fiscalYear string) Period {
	if name := strings.TrimSpace(fiscalYear); name != "" {
		fy, err := s.repo.FiscalYear(ctx, name)
		if err == nil {
			p := Period{Start: fy.Start, End: fy.End, Label: name}
			if p.valid() {
				return p
			}
		}
	}
	return CalendarPeriod(year, s.now())
}

func (s *Service) compute(ctx context.Context, company string, period Period) (AnnualSummary, error) {
	scope := Scope{Company: company, Start: period.Start, End: period.End}

	var (
		sales, purchases     InvoiceTotals
		pnl                  ProfitAndLoss
		salesRows, purchRows []MonthRow
		customerRows         []CustomerRow
		cashRows             []CashBankRow
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sales, err = s.repo.InvoiceTotals(ctx, SalesInvoices, scope)
		return err
	})
	g.Go(func() error {
		var err error
		purchases, err = s.repo.InvoiceTotals(ctx, PurchaseInvoices, scope)
		return err
	})
	g.Go(func() error {
		var err error
		pnl, err = s.repo.ProfitAndLoss(ctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		salesRows, err = s.repo.MonthlyTotals(ctx, SalesInvoices, scope)
		return err
	})
	g.Go(func() error {
		var err error
		purchRows, err = s.repo.MonthlyTotals(ctx, PurchaseInvoices, scope)
		return err
	})
	g.Go(func() error {
		var err error
		customerRows, err = s.repo.TopCustomers(ctx, scope, TopCustomerLimit)
		return err
	})
	g.Go(func() error {
		var err error
		cashRows, err = s.repo.CashBankBalances(ctx, company, period.End)
		return err
	})
	if err := g.Wait(); err != nil {
		return AnnualSummary{}, err
	}

	return AnnualSummary{
		Company: company,
		Period:  period.Info(),
		KPIs: KPIs{
			SalesTotal:     toFloat(sales.GrandTotal),
			PurchasesTotal: toFloat(purchases.GrandTotal),
			AROutstanding:  toFloat(sales.Outstanding),
			APOutstanding:  toFloat(purchases.Outstanding),
			IncomeTotal:    toFloat(pnl.Income),
			ExpenseTotal:   toFloat(pnl.Expense),
			NetProfit:      toFloat(pnl.Income.Sub(pnl.Expense)),
		},
		Trends: Trends{
			MonthlySales:     toMonthTotals(salesRows),
			MonthlyPurchases: toMonthTotals(purchRows),
		},
		Breakdowns: Breakdowns{
			TopCustomers: toCustomerTotals(customerRows),
			CashBank:     toCashBank(cashRows),
		},
	}, nil
}

func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func toMonthTotals(rows []MonthRow) []MonthTotal {
	out := make([]MonthTotal, 0, len(rows))
	for _, row := range rows {
		out = append(out, MonthTotal{Month: row.Month, Total: toFloat(row.Total)})
	}
	return out
}

func toCustomerTotals(rows []CustomerRow) []CustomerTotal {
	out := make([]CustomerTotal, 0, len(rows))
	for _, row := range rows {
		out = append(out, CustomerTotal{Customer: row.Customer, Total: toFloat(row.Total)})
	}
	return out
}

func toCashBank(rows []CashBankRow) []CashBankBalance {
	out := make([]CashBankBalance, 0, len(rows))
	for _, row := range rows {
		out = append(out, CashBankBalance{
			Account:     row.Account,
			AccountName: row.AccountName,
			AccountType: row.AccountType,
			Balance:     toFloat(row.Balance),
		})
	}
	return out
}
