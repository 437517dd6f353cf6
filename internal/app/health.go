package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/management-dashboard/internal/platform/httpx"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisPinger adapts a go-redis client to Pinger.
type RedisPinger struct {
	Client *redis.Client
}

// Ping implements Pinger.
func (p RedisPinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}

// HealthChecks lists the dependencies /healthz probes. Postgres and Redis are
// required; PDF only reports.
type HealthChecks struct {
	Postgres Pinger
	Redis    Pinger
	PDF      Pinger
}

type healthReport struct {
	Status   string `json:"status"`
	Postgres string `json:"postgres,omitempty"`
	Redis    string `json:"redis,omitempty"`
	PDF      string `json:"pdf,omitempty"`
}

func healthHandler(checks HealthChecks, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		report := healthReport{Status: "ok"}
		status := http.StatusOK
		probe := func(name string, p Pinger, required bool) string {
			if p == nil {
				return ""
			}
			if err := p.Ping(ctx); err != nil {
				logger.Warn("health probe failed", slog.String("dependency", name), slog.Any("error", err))
				if required {
					report.Status = "degraded"
					status = http.StatusServiceUnavailable
				}
				return "unavailable"
			}
			return "ok"
		}
		report.Postgres = probe("postgres", checks.Postgres, true)
		report.Redis = probe("redis", checks.Redis, true)
		report.PDF = probe("pdf", checks.PDF, false)
		httpx.JSON(w, status, report)
	}
}
