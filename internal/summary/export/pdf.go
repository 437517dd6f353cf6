package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/odyssey-erp/management-dashboard/internal/summary"
)

// HTMLRenderer converts an HTML document to PDF. report.Client satisfies it.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

var pdfTemplate = template.Must(template.New("summary-pdf").Funcs(template.FuncMap{
	"cell": func(v any) string {
		if f, ok := v.(float64); ok {
			return formatFloat(f)
		}
		s, _ := v.(string)
		return s
	},
	"isAmount": func(v any) bool {
		_, ok := v.(float64)
		return ok
	},
}).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title>
<style>
body{font-family:sans-serif;margin:24px;color:#0f172a}
h1{font-size:20px;margin-bottom:4px}
.meta{color:#475569;font-size:12px;margin-bottom:16px}
table{width:100%;border-collapse:collapse;margin-bottom:20px}
th,td{border:1px solid #e2e8f0;padding:6px;font-size:12px;text-align:left}
th{background:#f1f5f9}
td.amount{text-align:right}
</style></head>
<body>
<h1>{{.Title}}</h1>
<div class="meta">{{.Company}} · {{.Period}} · Generated {{.Generated}}</div>
{{range .Sections}}<section>
<h2>{{.Title}}</h2>
<table><thead><tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>{{range .Rows}}<tr>{{range .}}<td{{if isAmount .}} class="amount"{{end}}>{{cell .}}</td>{{end}}</tr>{{end}}</tbody></table>
</section>
{{end}}</body></html>`))

// PDFExporter renders the summary as HTML and hands it to an HTMLRenderer.
type PDFExporter struct {
	renderer HTMLRenderer
	now      func() time.Time
}

// NewPDFExporter constructs a PDFExporter.
func NewPDFExporter(renderer HTMLRenderer) *PDFExporter {
	return &PDFExporter{renderer: renderer, now: time.Now}
}

// RenderSummary returns the PDF bytes for s.
func (p *PDFExporter) RenderSummary(ctx context.Context, s summary.AnnualSummary) ([]byte, error) {
	if p == nil || p.renderer == nil {
		return nil, errors.New("export: pdf renderer not configured")
	}
	html, err := p.HTML(s)
	if err != nil {
		return nil, err
	}
	return p.renderer.RenderHTML(ctx, html)
}

// HTML renders the printable document.
func (p *PDFExporter) HTML(s summary.AnnualSummary) (string, error) {
	now := time.Now
	if p != nil && p.now != nil {
		now = p.now
	}
	var buf bytes.Buffer
	err := pdfTemplate.Execute(&buf, struct {
		Title     string
		Company   string
		Period    string
		Generated string
		Sections  []Section
	}{
		Title:     "Annual Summary — " + s.Period.Label,
		Company:   s.Company,
		Period:    s.Period.StartDate + " → " + s.Period.EndDate,
		Generated: now().Format("2006-01-02 15:04"),
		Sections:  Sections(s),
	})
	if err != nil {
		return "", fmt.Errorf("export: pdf html: %w", err)
	}
	return buf.String(), nil
}
