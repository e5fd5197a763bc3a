package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/rahulbagri/phonelot-backend/api/routes"
	"github.com/rahulbagri/phonelot-backend/internal/credits"
	"github.com/rahulbagri/phonelot-backend/internal/history"
	"github.com/rahulbagri/phonelot-backend/internal/ledger"
	"github.com/rahulbagri/phonelot-backend/internal/lifecycle"
	"github.com/rahulbagri/phonelot-backend/internal/locks"
	"github.com/rahulbagri/phonelot-backend/internal/marketplace"
	"github.com/rahulbagri/phonelot-backend/internal/partners"
	"github.com/rahulbagri/phonelot-backend/internal/pricing"
	"github.com/rahulbagri/phonelot-backend/internal/serviceability"
	"github.com/rahulbagri/phonelot-backend/pkg/config"
	"github.com/rahulbagri/phonelot-backend/pkg/db"
	"github.com/rahulbagri/phonelot-backend/pkg/logger"
	"github.com/rahulbagri/phonelot-backend/pkg/migrate"
	"github.com/rahulbagri/phonelot-backend/pkg/outbox"
	"github.com/rahulbagri/phonelot-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	marketplaceService, creditsService, err := buildServices(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	router := routes.NewRouter(cfg, logg, dbClient, redisClient, marketplaceService, creditsService)

	port := cfg.App.Port
	if fromEnv := os.Getenv("PORT"); fromEnv != "" {
		port = fromEnv
	}

	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"port": port,
	})
	logg.Info(ctx, "starting api server")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (marketplace.Service, credits.Service, error) {
	conn := dbClient.DB()

	policy, err := pricing.NewPolicy(cfg.Marketplace.LeadCostPercent)
	if err != nil {
		return nil, nil, err
	}
	lockMgr, err := locks.NewManager(conn, cfg.Marketplace.LockTTL)
	if err != nil {
		return nil, nil, err
	}
	ledgerService, err := ledger.NewService(ledger.NewRepository(conn), dbClient)
	if err != nil {
		return nil, nil, err
	}
	coverage, err := serviceability.NewIndex(conn)
	if err != nil {
		return nil, nil, err
	}

	trail := history.NewRecorder(conn)
	events := outbox.NewService(outbox.NewRepository(conn), logg)
	partnerRepo := partners.NewRepository(conn)

	machine, err := lifecycle.NewMachine(
		lifecycle.NewOrdersRepository(conn),
		lockMgr,
		ledgerService,
		trail,
		events,
		policy,
		dbClient,
		logg,
	)
	if err != nil {
		return nil, nil, err
	}

	marketplaceService, err := marketplace.NewService(
		marketplace.NewRepository(conn),
		partnerRepo,
		machine,
		lockMgr,
		coverage,
		trail,
		events,
		policy,
		dbClient,
		logg,
	)
	if err != nil {
		return nil, nil, err
	}

	creditsService, err := credits.NewService(partnerRepo, ledgerService, events, dbClient, logg)
	if err != nil {
		return nil, nil, err
	}

	return marketplaceService, creditsService, nil
}
