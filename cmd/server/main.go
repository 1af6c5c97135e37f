package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/Peluchemoreno/esti-mate-billing/internal/config"
	"github.com/Peluchemoreno/esti-mate-billing/internal/infrastructure/database"
	grpcServer "github.com/Peluchemoreno/esti-mate-billing/internal/infrastructure/grpc"
	httpServer "github.com/Peluchemoreno/esti-mate-billing/internal/infrastructure/http"
	"github.com/Peluchemoreno/esti-mate-billing/internal/infrastructure/jobs"
	stripeprovider "github.com/Peluchemoreno/esti-mate-billing/internal/infrastructure/provider/stripe"
	"github.com/Peluchemoreno/esti-mate-billing/internal/metrics"
	"github.com/Peluchemoreno/esti-mate-billing/internal/usecase"
	"github.com/Peluchemoreno/esti-mate-billing/pkg/logger"
	"github.com/Peluchemoreno/esti-mate-billing/pkg/messaging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	plans, err := config.LoadPlanTable(cfg.Billing.PlansFile)
	if err != nil {
		zapLogger.Fatal("Failed to load plan table", zap.Error(err))
	}

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	rdb, err := messaging.NewRedisClient(startCtx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	cancelStart()
	if err != nil {
		zapLogger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Initialize repositories
	repos := database.NewRepositories(db, rdb, &cfg.Billing, zapLogger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	billingMetrics := metrics.NewBillingMetrics(registry)

	stripe := stripeprovider.NewStripeProvider(stripeprovider.Options{
		SecretKey:         cfg.Stripe.SecretKey,
		Timeout:           cfg.Stripe.Timeout,
		MaxNetworkRetries: cfg.Stripe.MaxNetworkRetries,
	}, zapLogger)
	verifier := stripeprovider.NewWebhookVerifier(cfg.Stripe.WebhookSecret, cfg.Stripe.WebhookTolerance)

	webhookService := usecase.NewWebhookService(verifier, repos.EventLedger, repos.BillingAccount,
		repos.AccountEvents, plans, zapLogger, billingMetrics)
	sessionService := usecase.NewSessionService(repos.BillingAccount, repos.AccountEvents, stripe,
		plans, cfg.Service.FrontendURL, zapLogger, billingMetrics)
	idempotency := usecase.NewRequestIdempotency(repos.Idempotency, cfg.Billing.IdempotencyTTL,
		cfg.Billing.IdempotencyLease, cfg.Billing.IdempotencyWait, zapLogger, billingMetrics)

	purger, err := jobs.NewLedgerPurger(cfg.Billing.LedgerPurgeSchedule, repos.EventLedger, billingMetrics, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to schedule ledger purge", zap.Error(err))
	}

	ready := func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return errors.Join(sqlDB.PingContext(ctx), rdb.Ping(ctx).Err())
	}

	// Initialize servers
	grpcSrv := grpcServer.NewServer(cfg, zapLogger)
	httpSrv := httpServer.NewServer(cfg, zapLogger, httpServer.Dependencies{
		Webhook:     webhookService,
		Sessions:    sessionService,
		Idempotency: idempotency,
		Accounts:    repos.BillingAccount,
		Gatherer:    registry,
		Ready:       ready,
	})

	purger.Start()

	// Start servers
	go func() {
		if err := grpcSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start gRPC server", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	zapLogger.Info("Billing service started",
		zap.String("environment", cfg.Service.Environment),
		zap.String("version", cfg.Service.Version),
		zap.Int("plans", plans.Len()))

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down servers...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	if err := grpcSrv.Shutdown(ctx); err != nil {
		zapLogger.Error("Failed to shutdown gRPC server", zap.Error(err))
	}

	select {
	case <-purger.Stop().Done():
	case <-ctx.Done():
		zapLogger.Warn("Ledger purge still running at shutdown")
	}

	zapLogger.Info("Servers shut down successfully")
}
