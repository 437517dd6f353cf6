package summaryhttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/management-dashboard/internal/platform/httpx"
	"github.com/odyssey-erp/management-dashboard/internal/rbac"
	"github.com/odyssey-erp/management-dashboard/internal/shared"
	"github.com/odyssey-erp/management-dashboard/internal/summary"
)

// MethodPath is the remote procedure path the dashboard page calls.
const MethodPath = "/api/method/management_dashboard.management_dashboard.api.annual_summary.get_annual_summary"

const defaultTimeout = 10 * time.Second

var errInvalidArgument = errors.New("invalid argument")

// SummaryService computes the annual summary for a user.
type SummaryService interface {
	GetAnnualSummary(ctx context.Context, user string, req summary.Request) (summary.AnnualSummary, error)
}

// Authorizer checks the session user against permissions.
type Authorizer interface {
	Authorize(ctx context.Context, perms ...string) error
}

// Handler serves the annual summary procedure.
type Handler struct {
	logger   *slog.Logger
	service  SummaryService
	authz    Authorizer
	validate *validator.Validate
	timeout  time.Duration
}

// NewHandler constructs the procedure handler. A zero timeout uses the default.
func NewHandler(logger *slog.Logger, service SummaryService, authz Authorizer, timeout time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Handler{
		logger:   logger,
		service:  service,
		authz:    authz,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		timeout:  timeout,
	}
}

func (h *Handler) handleAnnualSummary(w http.ResponseWriter, r *http.Request) {
	user, err := h.authorize(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	req, err := parseRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, fmt.Errorf("%w: %s", errInvalidArgument, describeValidation(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	out, err := h.service.GetAnnualSummary(ctx, user, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.Message(w, out)
}

func (h *Handler) authorize(ctx context.Context) (string, error) {
	sess := shared.SessionFromContext(ctx)
	if sess == nil || strings.TrimSpace(sess.User()) == "" {
		return "", summary.ErrLoginRequired
	}
	if h.authz == nil {
		return "", errors.New("summary http: authorizer missing")
	}
	switch err := h.authz.Authorize(ctx, shared.PermManagementDashboardView); {
	case err == nil:
		return strings.TrimSpace(sess.User()), nil
	case errors.Is(err, rbac.ErrUnauthenticated):
		return "", summary.ErrLoginRequired
	case errors.Is(err, rbac.ErrForbidden):
		return "", summary.ErrPermissionDenied
	default:
		return "", err
	}
}

// Problem details shown to callers. Sentinel messages stay in Go style.
const (
	detailLoginRequired    = "Login required"
	detailPermissionDenied = "You are not permitted to access this dashboard."
	detailNoCompany        = "No Company found/configured."
)

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, summary.ErrLoginRequired):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", detailLoginRequired)
	case errors.Is(err, summary.ErrPermissionDenied):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", detailPermissionDenied)
	case errors.Is(err, errInvalidArgument):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, summary.ErrInvalidYear):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed",
			fmt.Sprintf("year must be between %d and %d", summary.MinYear, summary.MaxYear))
	case errors.Is(err, summary.ErrNoCompany):
		h.logger.Warn("annual summary without company", slog.Any("error", err))
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", detailNoCompany)
	default:
		h.logger.Error("annual summary", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

type rawArgs struct {
	Year       any     `json:"year"`
	FiscalYear *string `json:"fiscal_year"`
	Company    *string `json:"company"`
}

// parseRequest reads arguments from a JSON body, or from the query string and
// form values otherwise.
func parseRequest(r *http.Request) (summary.Request, error) {
	if r.Method == http.MethodPost && isJSON(r.Header.Get("Content-Type")) {
		var raw rawArgs
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return summary.Request{}, fmt.Errorf("%w: malformed json body", errInvalidArgument)
		}
		year, err := coerceYear(raw.Year)
		if err != nil {
			return summary.Request{}, err
		}
		return summary.Request{Year: year, FiscalYear: deref(raw.FiscalYear), Company: deref(raw.Company)}, nil
	}

	if err := r.ParseForm(); err != nil {
		return summary.Request{}, fmt.Errorf("%w: %v", errInvalidArgument, err)
	}
	return fromValues(r.Form)
}

func fromValues(values url.Values) (summary.Request, error) {
	var year any
	if v := strings.TrimSpace(values.Get("year")); v != "" {
		year = v
	}
	parsed, err := coerceYear(year)
	if err != nil {
		return summary.Request{}, err
	}
	return summary.Request{
		Year:       parsed,
		FiscalYear: strings.TrimSpace(values.Get("fiscal_year")),
		Company:    strings.TrimSpace(values.Get("company")),
	}, nil
}

func coerceYear(v any) (*int, error) {
	switch year := v.(type) {
	case nil:
		return nil, nil
	case float64:
		if year != math.Trunc(year) {
			return nil, fmt.Errorf("%w: year must be an integer", errInvalidArgument)
		}
		n := int(year)
		return &n, nil
	case string:
		year = strings.TrimSpace(year)
		if year == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(year)
		if err != nil {
			return nil, fmt.Errorf("%w: year must be an integer", errInvalidArgument)
		}
		return &n, nil
	default:
		return nil, fmt.Errorf("%w: year must be an integer", errInvalidArgument)
	}
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(fields, ", ")
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
