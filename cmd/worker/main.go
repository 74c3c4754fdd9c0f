package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/radiology-api/internal/config"
	"github.com/jwalitptl/radiology-api/internal/notifier"
	"github.com/jwalitptl/radiology-api/internal/repository"
	"github.com/jwalitptl/radiology-api/internal/repository/postgres"
	"github.com/jwalitptl/radiology-api/internal/service/coordinator"
	"github.com/jwalitptl/radiology-api/pkg/clock"
	"github.com/jwalitptl/radiology-api/pkg/logger"
	redisbroker "github.com/jwalitptl/radiology-api/pkg/messaging/redis"
	"github.com/jwalitptl/radiology-api/pkg/metrics"
	"github.com/jwalitptl/radiology-api/pkg/worker"
)

// Processed outbox rows are kept around for a week for debugging before the
// cleanup pass removes them.
const outboxRetention = 7 * 24 * time.Hour

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	lg := newLogger(cfg.Logging)
	zl := lg.Zerolog()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		lg.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, zl)
	if err != nil {
		lg.Fatal(err, "failed to connect to redis")
	}
	defer broker.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New("radiology_worker", registry)
	clk := clock.New()

	base := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(base)
	stockRepo := postgres.NewStockRepository(base)
	outboxRepo := postgres.NewOutboxRepository(base)

	coordService := coordinator.NewService(userRepo, stockRepo, notifier.NewBrokerNotifier(broker), m, zl)

	processor := worker.NewOutboxProcessor(outboxRepo, broker, coordService, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Worker.OutboxBatchSize,
		PollInterval:  cfg.Worker.OutboxInterval,
		RetryAttempts: cfg.Worker.MaxProcessRetries,
		RetryDelay:    time.Second,
	}, clk, lg, m)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go processor.Start(ctx)
	go runLowStockSweep(ctx, coordService, cfg.Worker.LowStockInterval, lg)
	go runOutboxCleanup(ctx, outboxRepo, clk, lg)

	<-ctx.Done()
	lg.Info("Shutting down worker")

	// Give in-flight batches a moment to settle before the process exits.
	time.Sleep(cfg.Worker.ShutdownTimeout)
}

func runLowStockSweep(ctx context.Context, coord *coordinator.Service, interval time.Duration, lg *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			notified, err := coord.SweepLowStock(ctx)
			if err != nil {
				lg.Error(err, "low stock sweep failed")
				continue
			}
			if notified > 0 {
				lg.Info("Low stock sweep complete", "notified", notified)
			}
		}
	}
}

func runOutboxCleanup(ctx context.Context, repo repository.OutboxRepository, clk clock.Clock, lg *logger.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := repo.DeleteProcessedBefore(ctx, clk.Now().Add(-outboxRetention))
			if err != nil {
				lg.Error(err, "outbox cleanup failed")
				continue
			}
			if deleted > 0 {
				lg.Info("Outbox cleanup complete", "deleted", deleted)
			}
		}
	}
}

func newLogger(cfg config.LoggingConfig) *logger.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Pretty:     cfg.Pretty,
	})
}
