package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/management-dashboard/internal/app"
	jobmetrics "github.com/odyssey-erp/management-dashboard/internal/jobs"
	"github.com/odyssey-erp/management-dashboard/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	deps, err := app.OpenDeps(ctx, cfg, logger)
	if err != nil {
		logger.Error("open dependencies", slog.Any("error", err))
		os.Exit(1)
	}
	defer deps.Close()

	summaryService := app.NewSummaryService(cfg, deps.Pool, deps.Redis)
	metrics := jobmetrics.NewMetrics(nil)

	warmupJob := jobs.NewSummaryWarmupJob(summaryService, logger, metrics)
	warmupJob.Locks = redislock.New(deps.Redis)
	bumpJob := &jobs.SummaryBumpJob{Cache: summaryService.Cache(), Logger: logger, Metrics: metrics}

	warmupTask, err := jobs.NewSummaryWarmupTask(jobs.ScopeCurrent)
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: app.AsynqOpts(cfg),
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSummaryWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskSummaryBump, Handler: bumpJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: jobs.WarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(2)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
