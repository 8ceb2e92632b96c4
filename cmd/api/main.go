package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/elite-waitlist/internal/api/router"
	"github.com/wolfman30/elite-waitlist/internal/app/bootstrap"
	"github.com/wolfman30/elite-waitlist/internal/bridge"
	appconfig "github.com/wolfman30/elite-waitlist/internal/config"
	"github.com/wolfman30/elite-waitlist/internal/countdown"
	"github.com/wolfman30/elite-waitlist/internal/funnel"
	httpmiddleware "github.com/wolfman30/elite-waitlist/internal/http/middleware"
	"github.com/wolfman30/elite-waitlist/internal/leads"
	"github.com/wolfman30/elite-waitlist/internal/observability/metrics"
	"github.com/wolfman30/elite-waitlist/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting elite-waitlist API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	fmt.Println("Server exited gracefully")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	metricsHandler, waitlistMetrics := setupMetrics()

	def, err := loadDefinition(cfg.WaitlistDefinitionPath)
	if err != nil {
		return err
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}
	pgPool := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pgPool != nil {
		defer pgPool.Close()
	}

	store, storeKind, err := bootstrap.BuildCountdownStore(cfg.CountdownStore, bootstrap.CountdownBackends{
		Redis:    redisClient,
		Postgres: pgPool,
		StateDir: cfg.CountdownDir,
	}, logger)
	if err != nil {
		return err
	}
	clock, err := countdown.NewClock(ctx, store, countdown.Options{
		Key:     cfg.CountdownKey,
		Default: cfg.CountdownDefault,
		Logger:  logger,
		Metrics: waitlistMetrics,
	})
	if err != nil {
		return fmt.Errorf("restore countdown: %w", err)
	}
	logger.Info("countdown ready",
		"store", storeKind,
		"restored", clock.Restored(),
		"remaining", countdown.Format(clock.Remaining()),
	)

	formBridge, err := bridge.New(bridge.Config{
		Endpoint:    cfg.WaitlistEndpoint,
		GracePeriod: cfg.WaitlistGracePeriod,
	}, logger, waitlistMetrics)
	if err != nil {
		return err
	}

	sessions := leads.NewInMemoryRepository()
	leadsHandler := leads.NewHandler(sessions, def, formBridge, logger, waitlistMetrics)
	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// Background workers stop with workerCtx, after the server has drained.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	workers.Add(3)
	go func() {
		defer workers.Done()
		if err := clock.Run(workerCtx, cfg.CountdownTick); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("countdown stopped", "error", err)
		}
	}()
	go func() {
		defer workers.Done()
		leadsHandler.RunSweeper(workerCtx, cfg.SessionSweepInterval, cfg.SessionTTL)
	}()
	go func() {
		defer workers.Done()
		limiter.Run(workerCtx)
	}()

	countdownHandler := countdown.NewHandler(clock, cfg.CountdownTick, logger)
	routerCfg := &router.Config{
		Logger:             logger,
		LeadsHandler:       leadsHandler,
		CountdownHandler:   countdownHandler,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
		HealthChecks:       healthChecks(redisClient, pgPool),
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(routerCfg),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv.RegisterOnShutdown(countdownHandler.Shutdown)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			cancelWorkers()
			workers.Wait()
			return err
		}
	}

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	cancelWorkers()
	workers.Wait()
	if err := formBridge.Wait(shutdownCtx); err != nil {
		logger.Warn("pending submissions still in flight", "error", err)
	}
	if err := formBridge.Close(shutdownCtx); err != nil {
		logger.Warn("pending submissions not drained", "error", err)
	}

	logger.Info("server stopped", "countdown_remaining", countdown.Format(clock.Remaining()))
	return nil
}

func setupMetrics() (http.Handler, *metrics.WaitlistMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	waitlistMetrics := metrics.NewWaitlistMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), waitlistMetrics
}

func loadDefinition(path string) (*funnel.Definition, error) {
	if path == "" {
		return funnel.DefaultDefinition()
	}
	def, err := funnel.LoadDefinition(path)
	if err != nil {
		return nil, fmt.Errorf("load waitlist definition: %w", err)
	}
	return def, nil
}

func healthChecks(redisClient *redis.Client, pool *pgxpool.Pool) map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	return checks
}
