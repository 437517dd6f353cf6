package dashboard

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
)

//go:embed templates/*.html
var fragmentFS embed.FS

var fragments = template.Must(template.ParseFS(fragmentFS, "templates/*.html"))

// Renderer turns a summary payload into escaped HTML fragments.
type Renderer struct {
	logger *slog.Logger
	t      Translator
	money  MoneyFormatter
	dates  DateFormatter
	chart  ChartWidget
}

// RendererOptions carries the capabilities a Renderer uses. Nil fields fall
// back to pass-through translation, localized numbers and raw month keys.
type RendererOptions struct {
	Logger     *slog.Logger
	Translator Translator
	Money      MoneyFormatter
	Dates      DateFormatter
	Chart      ChartWidget
}

// NewRenderer constructs a Renderer.
func NewRenderer(opts RendererOptions) *Renderer {
	r := &Renderer{
		logger: opts.Logger,
		t:      opts.Translator,
		money:  opts.Money,
		dates:  opts.Dates,
		chart:  opts.Chart,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.t == nil {
		r.t = identityTranslator{}
	}
	if r.dates == nil {
		r.dates = LayoutDateFormatter{}
	}
	return r
}

func (r *Renderer) execute(name string, data any) template.HTML {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		r.logger.Error("dashboard fragment", slog.String("template", name), slog.Any("error", err))
		return ""
	}
	return template.HTML(buf.String())
}
