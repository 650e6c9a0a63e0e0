package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gearbox-ops/gearbox-ops/internal/app"
	"github.com/gearbox-ops/gearbox-ops/internal/catalog"
	"github.com/gearbox-ops/gearbox-ops/internal/customers"
	"github.com/gearbox-ops/gearbox-ops/internal/jobcards"
	"github.com/gearbox-ops/gearbox-ops/internal/jobmetrics"
	"github.com/gearbox-ops/gearbox-ops/internal/platform/db"
	"github.com/gearbox-ops/gearbox-ops/internal/settings"
	"github.com/gearbox-ops/gearbox-ops/internal/shared"
	"github.com/gearbox-ops/gearbox-ops/internal/trash"
	"github.com/gearbox-ops/gearbox-ops/jobs"
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

	store, err := db.Open(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		logger.Error("connect database", slog.String("driver", cfg.DBDriver), slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	auditLogger := shared.NewAuditLogger(store)
	metrics := jobmetrics.NewMetrics(nil)

	ledger := catalog.NewLedger()
	jobsRepo := jobcards.NewRepository(store, ledger)
	settingsService := settings.NewService(settings.NewRepository(store))
	jobsService := jobcards.NewService(logger, jobsRepo, settingsService, auditLogger)

	trashService := trash.NewService(logger, cfg.TrashRetention)
	trashService.Register(trash.EntityJobs, trash.NewJobBin(jobsRepo))
	trashService.Register(trash.EntityCustomers, trash.NewCustomerBin(customers.NewRepository(store)))

	sweep := jobs.NewSweepHandler(logger, trashService, metrics)
	reconcile := jobs.NewReconcileHandler(logger, jobsService, metrics)

	now := time.Now().UTC()
	purgeTask, err := jobs.NewTrashPurgeTask(now)
	if err != nil {
		logger.Error("build purge task", slog.Any("error", err))
		os.Exit(1)
	}
	reconcileTask, err := jobs.NewTotalsReconcileTask(now)
	if err != nil {
		logger.Error("build reconcile task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTrashPurge, Handler: sweep.Handle},
			{Type: jobs.TaskTotalsReconcile, Handler: reconcile.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 3 * * *", Task: reconcileTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
