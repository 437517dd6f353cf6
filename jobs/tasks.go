package jobs

import (
	"encoding/json"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSummaryWarmup precomputes annual summaries for every company.
	TaskSummaryWarmup = "management:summary_warmup"
	// TaskSummaryBump invalidates every cached annual summary.
	TaskSummaryBump = "management:summary_bump"

	// WarmupCron runs the warmup nightly at 01:15 UTC.
	WarmupCron = "15 1 * * *"

	// ScopeCurrent warms the current and previous calendar year.
	ScopeCurrent = "current"
	// ScopeCurrentOnly warms the current calendar year alone.
	ScopeCurrentOnly = "current_only"
)

// SummaryWarmupPayload selects which years the warmup covers.
type SummaryWarmupPayload struct {
	Scope string `json:"scope"`
}

// SummaryBumpPayload records why the cache was invalidated.
type SummaryBumpPayload struct {
	Reason string `json:"reason,omitempty"`
}

// NewSummaryWarmupTask constructs the warmup task. An empty scope means ScopeCurrent.
func NewSummaryWarmupTask(scope string) (*asynq.Task, error) {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		scope = ScopeCurrent
	}
	data, err := json.Marshal(SummaryWarmupPayload{Scope: scope})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSummaryWarmup, data, asynq.Queue(QueueDefault), asynq.MaxRetry(2)), nil
}

// NewSummaryBumpTask constructs the cache bump task.
func NewSummaryBumpTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(SummaryBumpPayload{Reason: strings.TrimSpace(reason)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSummaryBump, data, asynq.Queue(QueueDefault)), nil
}
