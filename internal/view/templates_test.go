package view

import (
	"html/template"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/management-dashboard/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderDashboardPage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	err = engine.Render(rr, "pages/dashboard.html", TemplateData{
		Title:     "Management Dashboard",
		Lang:      "id",
		CSRFToken: "tok",
		Flash:     &shared.FlashMessage{Kind: "success", Message: "<saved>"},
		Data: map[string]any{
			"Heading": "Management Dashboard",
			"Filters": map[string]any{"Action": "/app/management-dashboard", "Year": 2024, "Company": "Acme & Co"},
			"Containers": map[string]any{
				"KPIs": template.HTML(`<div class="md-kpi">ok</div>`),
			},
			"Cards": map[string]any{"Trend": "Monthly Sales vs Purchases"},
		},
	})
	require.NoError(t, err)

	body := rr.Body.String()
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, body, `<html lang="id">`)
	assert.Contains(t, body, `&lt;saved&gt;`)
	assert.Contains(t, body, `value="Acme &amp; Co"`)
	assert.Contains(t, body, `<div class="md-kpi">ok</div>`)
	assert.Contains(t, body, "Monthly Sales vs Purchases")
}

func TestRenderNilEngine(t *testing.T) {
	var engine *Engine
	assert.Error(t, engine.Render(httptest.NewRecorder(), "pages/dashboard.html", TemplateData{}))
}
