package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odyssey-erp/management-dashboard/internal/shared"
)

type stubSource struct {
	perms []string
	err   error
}

func (s stubSource) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	return s.perms, s.err
}

func ctxWithUser(user string) context.Context {
	sess := &shared.Session{}
	sess.SetUser(user)
	return shared.ContextWithSession(context.Background(), sess)
}

func TestAuthorize(t *testing.T) {
	m := Middleware{Service: stubSource{perms: []string{"Management.View_Dashboard"}}}

	assert.NoError(t, m.Authorize(ctxWithUser("4"), shared.PermManagementDashboardView))
	assert.ErrorIs(t, m.Authorize(context.Background(), shared.PermManagementDashboardView), ErrUnauthenticated)
	assert.ErrorIs(t, m.Authorize(ctxWithUser("guest"), shared.PermManagementDashboardView), ErrUnauthenticated)
	assert.ErrorIs(t, m.Authorize(ctxWithUser("4"), shared.PermManagementDashboardExport), ErrForbidden)
	assert.NoError(t, m.Authorize(context.Background()))
}

func TestRequireAny(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	cases := []struct {
		name   string
		source stubSource
		ctx    context.Context
		code   int
	}{
		{"granted", stubSource{perms: []string{shared.PermManagementDashboardView}}, ctxWithUser("1"), http.StatusNoContent},
		{"missing permission", stubSource{}, ctxWithUser("1"), http.StatusForbidden},
		{"no session", stubSource{}, context.Background(), http.StatusForbidden},
		{"lookup failure", stubSource{err: errors.New("db down")}, ctxWithUser("1"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := Middleware{Service: tc.source}.RequireAny(shared.PermManagementDashboardView)(ok)
			req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(tc.ctx)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tc.code, rr.Code)
		})
	}
}
