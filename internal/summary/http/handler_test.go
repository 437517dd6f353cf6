package summaryhttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/management-dashboard/internal/platform/httpx"
	"github.com/odyssey-erp/management-dashboard/internal/rbac"
	"github.com/odyssey-erp/management-dashboard/internal/shared"
	"github.com/odyssey-erp/management-dashboard/internal/summary"
)

type stubService struct {
	out      summary.AnnualSummary
	err      error
	lastUser string
	lastReq  summary.Request
	calls    int
}

func (s *stubService) GetAnnualSummary(ctx context.Context, user string, req summary.Request) (summary.AnnualSummary, error) {
	s.calls++
	s.lastUser = user
	s.lastReq = req
	return s.out, s.err
}

type stubAuthz struct{ err error }

func (s stubAuthz) Authorize(ctx context.Context, perms ...string) error { return s.err }

func newTestRouter(svc SummaryService, authz Authorizer) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, svc, authz, 0)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func withUser(req *http.Request, user string) *http.Request {
	sess := &shared.Session{ID: "s1"}
	if user != "" {
		sess.SetUser(user)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func sampleSummary() summary.AnnualSummary {
	return summary.AnnualSummary{
		Company: "Odyssey Trading",
		Period:  summary.PeriodInfo{Label: "2024", StartDate: "2024-01-01", EndDate: "2024-12-31"},
		KPIs:    summary.KPIs{SalesTotal: 1200, NetProfit: 300},
	}
}

func decodeProblem(t *testing.T, rr *httptest.ResponseRecorder) httpx.ProblemDetail {
	t.Helper()
	assert.Equal(t, httpx.ProblemContentType, rr.Header().Get("Content-Type"))
	var p httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	return p
}

func TestAnnualSummaryGetReturnsEnvelope(t *testing.T) {
	svc := &stubService{out: sampleSummary()}
	router := newTestRouter(svc, stubAuthz{})

	req := withUser(httptest.NewRequest(http.MethodGet, MethodPath+"?year=2024&company=Odyssey+Trading", nil), "7")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Message summary.AnnualSummary `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, sampleSummary(), body.Message)

	assert.Equal(t, "7", svc.lastUser)
	require.NotNil(t, svc.lastReq.Year)
	assert.Equal(t, 2024, *svc.lastReq.Year)
	assert.Equal(t, "Odyssey Trading", svc.lastReq.Company)
}

func TestAnnualSummaryPostJSON(t *testing.T) {
	svc := &stubService{out: sampleSummary()}
	router := newTestRouter(svc, stubAuthz{})

	req := httptest.NewRequest(http.MethodPost, MethodPath, strings.NewReader(`{"year": 2023, "company": null}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, withUser(req, "7"))

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, svc.lastReq.Year)
	assert.Equal(t, 2023, *svc.lastReq.Year)
	assert.Empty(t, svc.lastReq.Company)
}

func TestAnnualSummaryPostForm(t *testing.T) {
	svc := &stubService{out: sampleSummary()}
	router := newTestRouter(svc, stubAuthz{})

	req := httptest.NewRequest(http.MethodPost, MethodPath, strings.NewReader("fiscal_year=FY+2024-25"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, withUser(req, "7"))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, svc.lastReq.Year)
	assert.Equal(t, "FY 2024-25", svc.lastReq.FiscalYear)
}

func TestAnnualSummaryErrors(t *testing.T) {
	cases := []struct {
		name   string
		user   string
		url    string
		authz  error
		svcErr error
		status int
		detail string
	}{
		{name: "guest", url: MethodPath, status: http.StatusForbidden, detail: "Login required"},
		{name: "non numeric user", user: "guest", url: MethodPath, authz: rbac.ErrUnauthenticated, status: http.StatusForbidden, detail: "Login required"},
		{name: "missing permission", user: "7", url: MethodPath, authz: rbac.ErrForbidden, status: http.StatusForbidden, detail: "You are not permitted to access this dashboard."},
		{name: "year not integer", user: "7", url: MethodPath + "?year=abc", status: http.StatusBadRequest},
		{name: "year out of range", user: "7", url: MethodPath + "?year=12000", status: http.StatusBadRequest},
		{name: "no company", user: "7", url: MethodPath, svcErr: fmt.Errorf("%w: relation missing", summary.ErrNoCompany), status: http.StatusUnprocessableEntity, detail: "No Company found/configured."},
		{name: "database failure", user: "7", url: MethodPath, svcErr: errors.New("summary: cash bank: timeout"), status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{err: tc.svcErr}
			router := newTestRouter(svc, stubAuthz{err: tc.authz})

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodGet, tc.url, nil), tc.user))

			assert.Equal(t, tc.status, rr.Code)
			problem := decodeProblem(t, rr)
			assert.Equal(t, tc.status, problem.Status)
			if tc.detail != "" {
				assert.Equal(t, tc.detail, problem.Detail)
			}
			if tc.status == http.StatusBadRequest || tc.status == http.StatusForbidden {
				assert.Zero(t, svc.calls)
			}
		})
	}
}

func TestAnnualSummaryServiceYearRangeIsBadRequest(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("%w: 1800", summary.ErrInvalidYear)}
	router := newTestRouter(svc, stubAuthz{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodGet, MethodPath, nil), "7"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	problem := decodeProblem(t, rr)
	assert.Equal(t, "year must be between 1900 and 9999", problem.Detail)
	assert.NotContains(t, problem.Detail, "summary:")
}
