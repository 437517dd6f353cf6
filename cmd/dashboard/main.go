package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/management-dashboard/internal/app"
	dashboardhttp "github.com/odyssey-erp/management-dashboard/internal/dashboard/http"
	"github.com/odyssey-erp/management-dashboard/internal/observability"
	"github.com/odyssey-erp/management-dashboard/internal/rbac"
	"github.com/odyssey-erp/management-dashboard/internal/shared"
	"github.com/odyssey-erp/management-dashboard/internal/summary/export"
	summaryhttp "github.com/odyssey-erp/management-dashboard/internal/summary/http"
	"github.com/odyssey-erp/management-dashboard/internal/view"
	"github.com/odyssey-erp/management-dashboard/jobs"
	"github.com/odyssey-erp/management-dashboard/report"
)

const usage = `usage: dashboard [command]

commands:
  serve             run the HTTP server (default)
  warmup [scope]    enqueue a summary cache warmup (current|current_only)
  bump [reason]     enqueue a summary cache invalidation
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	cmd, args := "serve", []string(nil)
	if len(os.Args) > 1 {
		cmd, args = os.Args[1], os.Args[2:]
	}
	switch cmd {
	case "serve", "warmup", "bump":
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "serve":
		err = serve(ctx, stop, cfg, logger)
	case "warmup":
		err = enqueue(ctx, cfg, logger, func(c *jobs.Client) (*asynq.TaskInfo, error) {
			return c.EnqueueSummaryWarmup(ctx, argOr(args, jobs.ScopeCurrent))
		})
	case "bump":
		err = enqueue(ctx, cfg, logger, func(c *jobs.Client) (*asynq.TaskInfo, error) {
			return c.EnqueueSummaryBump(ctx, argOr(args, "manual"))
		})
	}
	if err != nil {
		logger.Error(cmd, slog.Any("error", err))
		os.Exit(1)
	}
}

func argOr(args []string, def string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return def
}

func enqueue(ctx context.Context, cfg *app.Config, logger *slog.Logger, fn func(*jobs.Client) (*asynq.TaskInfo, error)) error {
	client := jobs.NewClient(app.AsynqOpts(cfg))
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()
	info, err := fn(client)
	if err != nil {
		return err
	}
	if info == nil {
		logger.Info("task already queued")
		return nil
	}
	logger.Info("task enqueued", slog.String("type", info.Type), slog.String("id", info.ID), slog.String("queue", info.Queue))
	return nil
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	deps, err := app.OpenDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	summaryService := app.NewSummaryService(cfg, deps.Pool, deps.Redis)
	if err := summaryService.Cache().ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("summary invalidation listener", slog.Any("error", err))
	}

	sessionManager := shared.NewSessionManager(deps.Redis, cfg.SessionCookieName, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	rbacService := rbac.NewService(deps.Pool)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}
	metrics := observability.NewMetrics()

	reportClient := report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout, report.PageOptions{Landscape: true})

	summaryHandler := summaryhttp.NewHandler(logger, summaryService, rbacMiddleware, cfg.AppRequestTimeout)
	dashboardHandler := app.NewDashboardHandler(app.DashboardWiring{
		Config:     cfg,
		Logger:     logger,
		Summary:    summaryService,
		Sessions:   sessionManager,
		CSRF:       csrfManager,
		Authorizer: rbacMiddleware,
		Templates:  templates,
		Metrics:    metrics,
		PDF:        export.NewPDFExporter(reportClient),
		Audit:      shared.NewAuditLogger(deps.Pool),
	})

	inspector := asynq.NewInspector(app.AsynqOpts(cfg))
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		RBACMiddleware:   rbacMiddleware,
		SummaryHandler:   summaryHandler,
		DashboardHandler: dashboardHandler,
		JobHandler:       jobs.NewHandler(inspector, logger),
		Health: app.HealthChecks{
			Postgres: deps.Pool,
			Redis:    app.RedisPinger{Client: deps.Redis},
			PDF:      reportClient,
		},
		Metrics: metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("dashboard", dashboardhttp.BasePath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
