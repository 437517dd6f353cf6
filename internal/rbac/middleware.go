package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/odyssey-erp/management-dashboard/internal/shared"
)

var (
	// ErrUnauthenticated is returned when the request carries no user.
	ErrUnauthenticated = errors.New("rbac: unauthenticated")
	// ErrForbidden is returned when the user lacks every required permission.
	ErrForbidden = errors.New("rbac: forbidden")
)

// PermissionSource resolves the permissions of a user.
type PermissionSource interface {
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service PermissionSource
	Logger  *slog.Logger
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := m.Authorize(r.Context(), perms...)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrForbidden):
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			default:
				if m.Logger != nil {
					m.Logger.Error("rbac require any", slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		})
	}
}

// Authorize checks the session user in ctx against perms. It returns
// ErrUnauthenticated, ErrForbidden, or a lookup error.
func (m Middleware) Authorize(ctx context.Context, perms ...string) error {
	normalized := normalizePermissions(perms)
	if len(normalized) == 0 {
		return nil
	}
	userID, ok := m.currentUserID(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	if m.Service == nil {
		return errors.New("rbac: permission source missing")
	}
	granted, err := m.Service.EffectivePermissions(ctx, userID)
	if err != nil {
		return err
	}
	if hasAnyPermission(granted, normalized) {
		return nil
	}
	return ErrForbidden
}

func (m Middleware) currentUserID(ctx context.Context) (int64, bool) {
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("rbac parse user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, ok := unique[p]; ok {
			continue
		}
		unique[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}
