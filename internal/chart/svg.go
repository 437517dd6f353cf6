// Package chart draws dashboard charts as inline SVG on the server.
package chart

import (
	"errors"
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/odyssey-erp/management-dashboard/internal/dashboard"
)

// Layout defaults.
const (
	DefaultWidth   = 720
	DefaultHeight  = 240
	DefaultPadding = 32.0
	DefaultTicks   = 5
	legendHeight   = 18.0
)

var defaultPalette = []string{"#4F46E5", "#F59E0B", "#10B981", "#EF4444"}

// SVG renders axis charts with line and bar datasets. The zero value is ready to use.
type SVG struct {
	Width     int
	Padding   float64
	TickCount int
	AxisColor string
	GridColor string
	Title     string
}

// Render implements dashboard.ChartWidget.
func (s SVG) Render(cfg dashboard.ChartConfig) (template.HTML, error) {
	labels := cfg.Data.Labels
	if len(labels) == 0 {
		return "", errors.New("chart: labels required")
	}
	if len(cfg.Data.Datasets) == 0 {
		return "", errors.New("chart: datasets required")
	}
	for _, ds := range cfg.Data.Datasets {
		if len(ds.Values) != len(labels) {
			return "", fmt.Errorf("chart: dataset %q has %d values for %d labels", ds.Name, len(ds.Values), len(labels))
		}
	}

	width := s.Width
	if width <= 0 {
		width = DefaultWidth
	}
	height := cfg.Height
	if height <= 0 {
		height = DefaultHeight
	}
	padding := s.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	ticks := s.TickCount
	if ticks <= 0 {
		ticks = DefaultTicks
	}
	axisColor := fallback(s.AxisColor, "#475569")
	gridColor := fallback(s.GridColor, "#E2E8F0")

	plot := frame{
		left:   padding + 16,
		top:    padding + legendHeight,
		width:  float64(width) - 2*padding - 16,
		height: float64(height) - 2*padding - legendHeight,
	}
	if plot.width <= 0 || plot.height <= 0 {
		return "", errors.New("chart: viewport too small")
	}
	plot.min, plot.max = bounds(cfg.Data.Datasets)
	plot.count = len(labels)

	titleID := makeID(s.Title, "title")
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="%s" data-chart-type="%s">`,
		width, height, titleID, template.HTMLEscapeString(cfg.Type))
	fmt.Fprintf(&b, `<title id="%s">%s</title>`, titleID, template.HTMLEscapeString(fallback(s.Title, seriesNames(cfg.Data.Datasets))))

	for i := 0; i <= ticks; i++ {
		ratio := float64(i) / float64(ticks)
		y := plot.top + plot.height - ratio*plot.height
		value := plot.min + (plot.max-plot.min)*ratio
		fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="0.5" stroke-dasharray="2,4" aria-hidden="true"></line>`,
			plot.left, y, plot.left+plot.width, y, gridColor)
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="end">%s</text>`,
			plot.left-6, y+4, axisColor, formatTick(value))
	}

	fmt.Fprintf(&b, `<g stroke="%s" aria-hidden="true">`, axisColor)
	fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="1"></line>`, plot.left, plot.top, plot.left, plot.top+plot.height)
	fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="1"></line>`, plot.left, plot.baseline(), plot.left+plot.width, plot.baseline())
	b.WriteString("</g>")

	bars := barDatasets(cfg.Data.Datasets)
	barIndex := 0
	for i, ds := range cfg.Data.Datasets {
		color := colorAt(cfg.Colors, i)
		if ds.ChartType == "bar" {
			writeBars(&b, plot, ds, color, barIndex, bars)
			barIndex++
			continue
		}
		writeLine(&b, plot, ds, color, cfg.LineOptions)
	}

	every := labelStep(len(labels), cfg.AxisOptions.XIsSeries)
	for i, label := range labels {
		if i%every != 0 {
			continue
		}
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`,
			plot.x(i), plot.top+plot.height+14, axisColor, template.HTMLEscapeString(label))
	}

	legendX := plot.left
	for i, ds := range cfg.Data.Datasets {
		color := colorAt(cfg.Colors, i)
		fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="10" height="10" rx="2" fill="%s"></rect>`, legendX, padding, color)
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="11">%s</text>`, legendX+14, padding+9, axisColor, template.HTMLEscapeString(ds.Name))
		legendX += 24 + 7*float64(len([]rune(ds.Name)))
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

type frame struct {
	left, top, width, height float64
	min, max                 float64
	count                    int
}

func (f frame) x(i int) float64 {
	if f.count <= 1 {
		return f.left + f.width/2
	}
	return f.left + float64(i)*f.width/float64(f.count-1)
}

func (f frame) y(v float64) float64 {
	return f.top + f.height - (v-f.min)*f.height/(f.max-f.min)
}

func (f frame) baseline() float64 {
	return f.y(0)
}

func writeLine(b *strings.Builder, plot frame, ds dashboard.Dataset, color string, opts dashboard.LineOptions) {
	var path strings.Builder
	for i, v := range ds.Values {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		if i > 0 {
			path.WriteByte(' ')
		}
		fmt.Fprintf(&path, "%s%.2f %.2f", cmd, plot.x(i), plot.y(v))
	}

	if opts.RegionFill {
		base := plot.baseline()
		area := fmt.Sprintf("%s L%.2f %.2f L%.2f %.2f Z", path.String(), plot.x(len(ds.Values)-1), base, plot.x(0), base)
		fmt.Fprintf(b, `<path d="%s" fill="%s" fill-opacity="0.15" stroke="none" aria-hidden="true"></path>`, area, color)
	}
	fmt.Fprintf(b, `<path d="%s" fill="none" stroke="%s" stroke-width="2" stroke-linejoin="round" stroke-linecap="round" data-series="%s"></path>`,
		path.String(), color, template.HTMLEscapeString(ds.Name))

	if !opts.HideDots {
		for i, v := range ds.Values {
			fmt.Fprintf(b, `<circle cx="%.2f" cy="%.2f" r="3" fill="%s"></circle>`, plot.x(i), plot.y(v), color)
		}
	}
}

func writeBars(b *strings.Builder, plot frame, ds dashboard.Dataset, color string, index, total int) {
	slot := plot.width / float64(max(plot.count, 1))
	barWidth := slot * 0.7 / float64(total)
	for i, v := range ds.Values {
		center := plot.left + slot*(float64(i)+0.5)
		if plot.count > 1 {
			center = plot.x(i)
		}
		x := center - slot*0.35 + float64(index)*barWidth
		top := math.Min(plot.y(v), plot.baseline())
		h := math.Abs(plot.y(v) - plot.baseline())
		fmt.Fprintf(b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" data-series="%s"></rect>`,
			x, top, barWidth, h, color, template.HTMLEscapeString(ds.Name))
	}
}

func barDatasets(sets []dashboard.Dataset) int {
	n := 0
	for _, ds := range sets {
		if ds.ChartType == "bar" {
			n++
		}
	}
	return n
}

// labelStep thins x labels so roughly twelve remain. Series axes keep every label.
func labelStep(n int, series bool) int {
	if series || n <= 12 {
		return 1
	}
	return int(math.Ceil(float64(n) / 12))
}

func bounds(sets []dashboard.Dataset) (float64, float64) {
	minVal, maxVal := 0.0, 0.0
	for _, ds := range sets {
		for _, v := range ds.Values {
			minVal = math.Min(minVal, v)
			maxVal = math.Max(maxVal, v)
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		maxVal = minVal + 1
	}
	return minVal, maxVal
}

func colorAt(colors []string, i int) string {
	if i < len(colors) && strings.TrimSpace(colors[i]) != "" {
		return template.HTMLEscapeString(colors[i])
	}
	return defaultPalette[i%len(defaultPalette)]
}

func seriesNames(sets []dashboard.Dataset) string {
	names := make([]string, 0, len(sets))
	for _, ds := range sets {
		names = append(names, ds.Name)
	}
	return strings.Join(names, " / ")
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return cleaned + "-" + suffix
}

func formatTick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", v/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	case math.Abs(v-math.Round(v)) < 1e-9:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
