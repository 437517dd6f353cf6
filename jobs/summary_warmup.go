package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/management-dashboard/internal/jobs"
	"github.com/odyssey-erp/management-dashboard/internal/summary"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const (
	warmupCompanyTimeout = 20 * time.Second
	warmupLockKey        = "lock:" + TaskSummaryWarmup
	warmupLockTTL        = 15 * time.Minute
)

// SummaryWarmer is the part of summary.Service the warmup drives.
type SummaryWarmer interface {
	Companies(ctx context.Context) ([]string, error)
	GetAnnualSummary(ctx context.Context, user string, req summary.Request) (summary.AnnualSummary, error)
}

// SummaryWarmupJob fills the annual summary cache ahead of the first visit.
type SummaryWarmupJob struct {
	Service SummaryWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics

	// Locks keeps two workers from warming at once. Nil disables locking.
	Locks *redislock.Client
	clock func() time.Time
}

// NewSummaryWarmupJob wires dependencies for the warmup handler.
func NewSummaryWarmupJob(service SummaryWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *SummaryWarmupJob {
	return &SummaryWarmupJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskSummaryWarmup. A company that fails is logged and
// skipped; the task fails once every company has been tried.
func (j *SummaryWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Service == nil {
		return errors.New("summary warmup: handler not configured")
	}
	var payload SummaryWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("summary warmup: payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Scope == "" {
		payload.Scope = ScopeCurrent
	}

	tracker := j.metrics().Track(TaskSummaryWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("scope", payload.Scope))
	if j.Locks != nil {
		lock, err := j.Locks.Obtain(ctx, warmupLockKey, warmupLockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			logger.Info("summary warmup already running elsewhere")
			return nil
		}
		if err != nil {
			return fmt.Errorf("summary warmup: lock: %w", err)
		}
		defer func() {
			_ = lock.Release(context.WithoutCancel(ctx))
		}()
	}

	start := j.now()
	logger.Info("starting summary warmup")

	companies, err := j.Service.Companies(ctx)
	if err != nil {
		logger.Error("load companies", slog.Any("error", err))
		return err
	}
	if len(companies) == 0 {
		logger.Info("no companies to warm")
		return nil
	}

	years := warmupYears(payload.Scope, start)
	var failures []error
	warmed := 0
	for _, company := range companies {
		if err := j.warmCompany(ctx, company, years); err != nil {
			logger.Error("warm company", slog.String("company", company), slog.Any("error", err))
			failures = append(failures, fmt.Errorf("%s: %w", company, err))
			j.metrics().AddWarmed(false, 1)
			continue
		}
		warmed++
	}
	j.metrics().AddWarmed(true, warmed*len(years))

	logger.Info("completed summary warmup",
		slog.Int("companies", warmed),
		slog.Int("failed", len(failures)),
		slog.Duration("duration", j.now().Sub(start)))
	return errors.Join(failures...)
}

func (j *SummaryWarmupJob) warmCompany(ctx context.Context, company string, years []int) error {
	ctx, cancel := context.WithTimeout(ctx, warmupCompanyTimeout)
	defer cancel()
	for _, year := range years {
		year := year // per-iteration copy; go 1.21 shares the loop variable
		if _, err := j.Service.GetAnnualSummary(ctx, "", summary.Request{Year: &year, Company: company}); err != nil {
			return err
		}
	}
	return nil
}

func warmupYears(scope string, now time.Time) []int {
	if scope == ScopeCurrentOnly {
		return []int{now.Year()}
	}
	return []int{now.Year(), now.Year() - 1}
}

func (j *SummaryWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSummaryWarmup))
	}
	return slog.Default().With(slog.String("job", TaskSummaryWarmup))
}

func (j *SummaryWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *SummaryWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
