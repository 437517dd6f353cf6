package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/management-dashboard/internal/jobs"
)

// CacheBumper invalidates the summary cache.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// SummaryBumpJob bumps the summary cache version after ledger postings.
type SummaryBumpJob struct {
	Cache   CacheBumper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskSummaryBump.
func (j *SummaryBumpJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Cache == nil {
		return errors.New("summary bump: cache not configured")
	}
	var payload SummaryBumpPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("summary bump: payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	err := metrics.Track(TaskSummaryBump).End(j.Cache.Bump(ctx))
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err != nil {
		logger.Error("summary cache bump", slog.String("reason", payload.Reason), slog.Any("error", err))
		return err
	}
	logger.Info("summary cache bumped", slog.String("reason", payload.Reason))
	return nil
}
