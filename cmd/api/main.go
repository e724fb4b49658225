package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aurumly/bullion-backend/api/routes"
	"github.com/aurumly/bullion-backend/internal/addresses"
	"github.com/aurumly/bullion-backend/internal/catalog"
	"github.com/aurumly/bullion-backend/internal/ledger"
	"github.com/aurumly/bullion-backend/internal/otp"
	"github.com/aurumly/bullion-backend/internal/purchases"
	"github.com/aurumly/bullion-backend/internal/rates"
	"github.com/aurumly/bullion-backend/internal/redemptions"
	"github.com/aurumly/bullion-backend/internal/users"
	"github.com/aurumly/bullion-backend/pkg/config"
	"github.com/aurumly/bullion-backend/pkg/db"
	"github.com/aurumly/bullion-backend/pkg/logger"
	"github.com/aurumly/bullion-backend/pkg/metrics"
	"github.com/aurumly/bullion-backend/pkg/migrate"
	"github.com/aurumly/bullion-backend/pkg/redis"
	"github.com/aurumly/bullion-backend/pkg/sms"
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

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	smsClient, err := sms.NewClient(cfg.SMS)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap sms gateway", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	pipeline := metrics.NewPipelineMetrics(registry)

	svcs, err := buildServices(dbClient, smsClient, cfg, logg, pipeline)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, svcs, registry),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(
	dbClient *db.Client,
	smsClient *sms.Client,
	cfg *config.Config,
	logg *logger.Logger,
	pipeline *metrics.PipelineMetrics,
) (routes.Services, error) {
	gdb := dbClient.DB()

	userSvc, err := users.NewService(users.NewRepository(gdb))
	if err != nil {
		return routes.Services{}, err
	}
	catalogSvc, err := catalog.NewService(catalog.NewRepository(gdb))
	if err != nil {
		return routes.Services{}, err
	}
	addressSvc, err := addresses.NewService(addresses.NewRepository(gdb))
	if err != nil {
		return routes.Services{}, err
	}
	rateSvc, err := rates.NewService(rates.NewRepository(gdb), dbClient)
	if err != nil {
		return routes.Services{}, err
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(gdb), dbClient)
	if err != nil {
		return routes.Services{}, err
	}
	purchaseSvc, err := purchases.NewService(purchases.NewRepository(gdb), rateSvc, ledgerSvc, dbClient, cfg.Purchase, pipeline)
	if err != nil {
		return routes.Services{}, err
	}
	otpSvc, err := otp.NewService(otp.NewRepository(gdb), dbClient, smsClient, userSvc, cfg.OTP, logg)
	if err != nil {
		return routes.Services{}, err
	}
	redemptionSvc, err := redemptions.NewService(
		redemptions.NewRepository(gdb),
		dbClient,
		ledgerSvc,
		otpSvc,
		rateSvc,
		catalogSvc,
		addressSvc,
		userSvc,
		logg,
	)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Ledger:      ledgerSvc,
		Rates:       rateSvc,
		Purchases:   purchaseSvc,
		Otp:         otpSvc,
		Redemptions: redemptionSvc,
		Catalog:     catalogSvc,
		Addresses:   addressSvc,
	}, nil
}
