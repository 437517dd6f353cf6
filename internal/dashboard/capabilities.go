package dashboard

import (
	"context"
	"html/template"

	"github.com/odyssey-erp/management-dashboard/internal/summary"
)

// Args are the request arguments sent to the summary procedure.
type Args struct {
	Year    *int    `json:"year"`
	Company *string `json:"company"`
}

// SummaryClient invokes the remote annual summary procedure.
type SummaryClient interface {
	AnnualSummary(ctx context.Context, args Args) (*summary.AnnualSummary, error)
}

// Translator maps a user facing string to the active language.
type Translator interface {
	T(s string) string
}

// CurrencyFormatter renders an amount in the company currency.
type CurrencyFormatter interface {
	Format(amount float64) (string, error)
}

// DateFormatter renders a month key such as 2024-03-01 as a user facing label.
type DateFormatter interface {
	FormatDate(key string) string
}

// ChartWidget draws a chart from a configuration.
type ChartWidget interface {
	Render(cfg ChartConfig) (template.HTML, error)
}

// Notice is a modal message shown to the user.
type Notice struct {
	Title     string
	Message   string
	Indicator string
}

// Notifier shows notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// ProgressIndicator blocks the page while a load is in flight.
type ProgressIndicator interface {
	Freeze(message string)
	Unfreeze()
}

// LoadRecorder observes load outcomes.
type LoadRecorder interface {
	RecordLoad(outcome string, seconds float64)
}

// Load outcomes reported to a LoadRecorder.
const (
	OutcomeSuccess    = "success"
	OutcomeError      = "error"
	OutcomeSuperseded = "superseded"
)
