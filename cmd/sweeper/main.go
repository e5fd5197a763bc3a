package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rahulbagri/phonelot-backend/internal/history"
	"github.com/rahulbagri/phonelot-backend/internal/ledger"
	"github.com/rahulbagri/phonelot-backend/internal/lifecycle"
	"github.com/rahulbagri/phonelot-backend/internal/locks"
	"github.com/rahulbagri/phonelot-backend/internal/pricing"
	"github.com/rahulbagri/phonelot-backend/internal/sweep"
	"github.com/rahulbagri/phonelot-backend/pkg/config"
	"github.com/rahulbagri/phonelot-backend/pkg/db"
	"github.com/rahulbagri/phonelot-backend/pkg/logger"
	"github.com/rahulbagri/phonelot-backend/pkg/metrics"
	"github.com/rahulbagri/phonelot-backend/pkg/migrate"
	"github.com/rahulbagri/phonelot-backend/pkg/outbox"
	"github.com/rahulbagri/phonelot-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sweeper"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "sweeper"

	logg = logger.New(logger.Options{
		ServiceName: "sweeper",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient.DB()); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

	lock, err := sweep.NewRedisLock(redisClient, cfg.Sweeper.LockKey, cfg.Sweeper.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweeper lock", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, dbClient, jobMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to build sweeper jobs", err)
		os.Exit(1)
	}

	service, err := sweep.NewService(sweep.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Sweeper.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweeper service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	go serveMetrics(ctx, logg, cfg.Sweeper.MetricsPort)

	logg.Info(ctx, "starting sweeper")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sweeper stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "sweeper shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, jobMetrics *metrics.JobMetrics) (*sweep.Registry, error) {
	conn := dbClient.DB()

	policy, err := pricing.NewPolicy(cfg.Marketplace.LeadCostPercent)
	if err != nil {
		return nil, err
	}
	lockMgr, err := locks.NewManager(conn, cfg.Marketplace.LockTTL)
	if err != nil {
		return nil, err
	}
	ledgerService, err := ledger.NewService(ledger.NewRepository(conn), dbClient)
	if err != nil {
		return nil, err
	}

	machine, err := lifecycle.NewMachine(
		lifecycle.NewOrdersRepository(conn),
		lockMgr,
		ledgerService,
		history.NewRecorder(conn),
		outbox.NewService(outbox.NewRepository(conn), logg),
		policy,
		dbClient,
		logg,
	)
	if err != nil {
		return nil, err
	}

	lockExpiry, err := sweep.NewLockExpiryJob(sweep.LockExpiryJobParams{
		Logger:    logg,
		Locks:     lockMgr,
		Machine:   machine,
		Metrics:   jobMetrics,
		BatchSize: cfg.Sweeper.BatchSize,
	})
	if err != nil {
		return nil, err
	}

	retention, err := sweep.NewOutboxRetentionJob(sweep.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(conn),
	})
	if err != nil {
		return nil, err
	}

	return sweep.NewRegistry(lockExpiry, retention), nil
}

func serveMetrics(ctx context.Context, logg *logger.Logger, port string) {
	if port == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "metrics server stopped unexpectedly", err)
	}
}
