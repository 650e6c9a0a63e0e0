package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/gearbox-ops/gearbox-ops/internal/app"
	"github.com/gearbox-ops/gearbox-ops/internal/billing"
	"github.com/gearbox-ops/gearbox-ops/internal/catalog"
	"github.com/gearbox-ops/gearbox-ops/internal/customers"
	"github.com/gearbox-ops/gearbox-ops/internal/fleet"
	"github.com/gearbox-ops/gearbox-ops/internal/jobcards"
	"github.com/gearbox-ops/gearbox-ops/internal/observability"
	"github.com/gearbox-ops/gearbox-ops/internal/platform/cache"
	"github.com/gearbox-ops/gearbox-ops/internal/platform/db"
	"github.com/gearbox-ops/gearbox-ops/internal/rbac"
	"github.com/gearbox-ops/gearbox-ops/internal/settings"
	"github.com/gearbox-ops/gearbox-ops/internal/shared"
	"github.com/gearbox-ops/gearbox-ops/internal/trash"
	"github.com/gearbox-ops/gearbox-ops/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	var catalogCache *cache.Cache
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, catalog cache disabled", slog.Any("error", err))
	} else {
		catalogCache = cache.NewCache(redisClient, cfg.CacheTTL)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	auditLogger := shared.NewAuditLogger(store)
	rbacMiddleware := rbac.Middleware{Logger: logger}
	metrics := observability.NewMetrics()

	ledger := catalog.NewLedger()
	catalogRepo := catalog.NewRepository(store, ledger)
	catalogService := catalog.NewService(catalogRepo, catalogCache)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	customersRepo := customers.NewRepository(store)
	customersService := customers.NewService(customersRepo)
	customersHandler := customers.NewHandler(logger, customersService)

	fleetRepo := fleet.NewRepository(store)
	fleetService := fleet.NewService(fleetRepo)
	fleetHandler := fleet.NewHandler(logger, fleetService)

	settingsRepo := settings.NewRepository(store)
	settingsService := settings.NewService(settingsRepo)
	settingsHandler := settings.NewHandler(logger, settingsService)

	jobsRepo := jobcards.NewRepository(store, ledger)
	jobsService := jobcards.NewService(logger, jobsRepo, settingsService, auditLogger)
	jobsHandler := jobcards.NewHandler(logger, jobsService)

	billingRepo := billing.NewRepository(store)
	billingService := billing.NewService(logger, billingRepo, jobsRepo, settingsService, auditLogger)
	billingHandler := billing.NewHandler(logger, billingService)

	trashService := trash.NewService(logger, cfg.TrashRetention)
	trashService.Register(trash.EntityJobs, trash.NewJobBin(jobsRepo))
	trashService.Register(trash.EntityCustomers, trash.NewCustomerBin(customersRepo))
	trashHandler := trash.NewHandler(logger, trashService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		RBACMiddleware:   rbacMiddleware,
		CatalogHandler:   catalogHandler,
		CustomersHandler: customersHandler,
		FleetHandler:     fleetHandler,
		JobsHandler:      jobsHandler,
		BillingHandler:   billingHandler,
		TrashHandler:     trashHandler,
		SettingsHandler:  settingsHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
