package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/postloop/autopublisher/internal/api"
	"github.com/postloop/autopublisher/internal/clock"
	"github.com/postloop/autopublisher/internal/config"
	"github.com/postloop/autopublisher/internal/db"
	"github.com/postloop/autopublisher/internal/gateway"
	"github.com/postloop/autopublisher/internal/guard"
	"github.com/postloop/autopublisher/internal/metrics"
	"github.com/postloop/autopublisher/internal/ratelimiter"
	"github.com/postloop/autopublisher/internal/repository"
	"github.com/postloop/autopublisher/internal/scheduler"
	"github.com/postloop/autopublisher/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	clk := clock.System{}

	queueRepo := repository.NewPgQueueRepository(pool)
	policyRepo := repository.NewPgPolicyRepository(pool)

	webhook := gateway.NewWebhookGateway(cfg.GatewayBaseURL, cfg.GatewayTimeout)
	limiters := ratelimiter.New(cfg.RateLimit)
	gw := gateway.NewRateLimited(webhook, webhook, webhook, limiters)

	// ---- services ----
	queueSvc := service.NewQueueService(queueRepo, policyRepo, gw, gw, webhook, clk, logger)
	queueSvc.OnPublished = m.ItemsPublished.Inc
	queueSvc.OnPublishFailed = m.PublishFailures.Inc
	queueSvc.OnReviewRequested = m.ReviewsRequested.Inc
	queueSvc.OnPaused = m.QueuesPaused.Inc

	policySvc := service.NewPolicyService(policyRepo, queueSvc, clk, logger)

	planSvc := service.NewPlanService(policyRepo, queueSvc, gw, webhook, gw, clk, logger)
	planSvc.OnPlanGenerated = m.PlansGenerated.Inc
	planSvc.OnPaused = m.QueuesPaused.Inc

	// ---- background processes ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	tenants := guard.NewInMemory()
	loop := scheduler.NewLoop(
		scheduler.Config{
			TickInterval:       cfg.TickInterval,
			MinProcessInterval: cfg.MinProcessInterval,
			CallTimeout:        cfg.CallTimeout,
		},
		policyRepo, queueRepo, queueSvc, planSvc, tenants, clk,
		scheduler.MetricHooks{
			OnTick:         m.ObserveTick,
			ActivePolicies: func(n int) { m.ActivePolicies.Set(float64(n)) },
		},
		logger,
	)
	go loop.Run(workerCtx)

	escalator := scheduler.NewEscalator(
		scheduler.EscalatorConfig{
			PollInterval:     cfg.EscalatorInterval,
			ReminderInterval: cfg.ReminderInterval,
			MaxReminders:     cfg.MaxReminders,
		},
		queueRepo, gw, clk,
		scheduler.EscalatorHooks{
			OnReminderSent: m.RemindersSent.Inc,
			OnAutoSkipped:  m.ItemsAutoSkipped.Inc,
		},
		logger,
	)
	go escalator.Run(workerCtx)

	// ---- HTTP server ----
	router := api.NewRouter(queueSvc, policySvc, planSvc, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal the loop and escalator to stop picking up new ticks.
	cancelWorkers()

	// 3. Wait for in-flight tenant ticks to finish their current item.
	loop.Wait()

	logger.Info("server stopped cleanly")
}
