// Package client calls the annual summary procedure on behalf of the dashboard page.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/odyssey-erp/management-dashboard/internal/dashboard"
	"github.com/odyssey-erp/management-dashboard/internal/platform/httpx"
	"github.com/odyssey-erp/management-dashboard/internal/shared"
	"github.com/odyssey-erp/management-dashboard/internal/summary"
	summaryhttp "github.com/odyssey-erp/management-dashboard/internal/summary/http"
)

const maxErrorBody = 4 << 10

// HTTPClient posts to a remote summary endpoint.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	cookie  *http.Cookie
	csrf    string
}

// NewHTTPClient constructs a client for baseURL. A non-positive timeout disables it.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	c := &http.Client{}
	if timeout > 0 {
		c.Timeout = timeout
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), http: c}
}

// WithCookie returns a copy that forwards the session cookie on every call.
func (c *HTTPClient) WithCookie(cookie *http.Cookie) *HTTPClient {
	clone := *c
	clone.cookie = cookie
	return &clone
}

// WithCSRFToken returns a copy that sends token in the CSRF header, which the
// remote middleware requires for POST.
func (c *HTTPClient) WithCSRFToken(token string) *HTTPClient {
	clone := *c
	clone.csrf = token
	return &clone
}

// AnnualSummary implements dashboard.SummaryClient.
func (c *HTTPClient) AnnualSummary(ctx context.Context, args dashboard.Args) (*summary.AnnualSummary, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("summary client: encode args: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+summaryhttp.MethodPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("summary client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.csrf != "" {
		req.Header.Set(shared.CSRFHeader, c.csrf)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("summary client: call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeProblem(resp)
	}

	var envelope struct {
		Message *summary.AnnualSummary `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("summary client: decode response: %w", err)
	}
	return envelope.Message, nil
}

// RemoteError is a non-2xx answer from the procedure.
type RemoteError struct {
	Status int
	Title  string
	Detail string
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("summary client: %d %s", e.Status, e.Title)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func decodeProblem(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var problem httpx.ProblemDetail
	if err := json.Unmarshal(raw, &problem); err != nil || problem.Title == "" {
		problem.Title = http.StatusText(resp.StatusCode)
	}
	return &RemoteError{Status: resp.StatusCode, Title: problem.Title, Detail: problem.Detail}
}

// Local calls an in-process summary service as a fixed user.
type Local struct {
	service *summary.Service
	user    string
}

// NewLocal adapts service for user.
func NewLocal(service *summary.Service, user string) *Local {
	return &Local{service: service, user: user}
}

// AnnualSummary implements dashboard.SummaryClient.
func (l *Local) AnnualSummary(ctx context.Context, args dashboard.Args) (*summary.AnnualSummary, error) {
	if l == nil || l.service == nil {
		return nil, errors.New("summary client: local service missing")
	}
	req := summary.Request{Year: args.Year}
	if args.Company != nil {
		req.Company = *args.Company
	}
	out, err := l.service.GetAnnualSummary(ctx, l.user, req)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
