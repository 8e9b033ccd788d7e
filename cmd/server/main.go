package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/optkit/optkit/internal/api"
	"github.com/optkit/optkit/internal/api/handler"
	"github.com/optkit/optkit/internal/config"
	"github.com/optkit/optkit/internal/db"
	"github.com/optkit/optkit/internal/gateway"
	"github.com/optkit/optkit/internal/metrics"
	"github.com/optkit/optkit/internal/queue"
	"github.com/optkit/optkit/internal/ratelimiter"
	"github.com/optkit/optkit/internal/repository"
	"github.com/optkit/optkit/internal/service"
	"github.com/optkit/optkit/internal/worker"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

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

	var q queue.BatchQueue
	var depth handler.DepthReporter
	if cfg.AMQPURL != "" {
		amqpQ, err := queue.NewAMQPQueue(cfg.AMQPURL, cfg.QueueName, logger)
		if err != nil {
			logger.Fatal("failed to connect to amqp broker", zap.Error(err))
		}
		defer amqpQ.Close()
		q, depth = amqpQ, amqpQ
		logger.Info("using amqp batch queue", zap.String("queue", cfg.QueueName))
	} else {
		memQ := queue.NewMemoryQueue(cfg.VisibilityTimeout, cfg.MaxDeliveries, logger)
		defer memQ.Close()
		q, depth = memQ, memQ
		logger.Info("using in-process batch queue")
	}

	subscriberRepo := repository.NewPgSubscriberRepository(pool)
	campaignRepo := repository.NewPgCampaignRepository(pool)
	gw := gateway.NewSMTPGateway(cfg.SMTPAddr, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPTimeout)
	limiter := ratelimiter.New(cfg.SendRate)

	subscriptions := service.NewSubscriptionService(subscriberRepo, gw, service.SubscriptionOptions{
		SenderEmail: cfg.SenderEmail,
		AdminEmail:  cfg.AdminEmail,
	}, logger)
	campaigns := service.NewCampaignService(campaignRepo, subscriberRepo, q, service.CampaignOptions{
		BatchSize:     cfg.BatchSize,
		SnapshotLimit: cfg.SnapshotLimit,
	}, logger)

	// ---- batch processor pool ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	onEmailSent, onEmailFailed, onApplied, onNacked := m.WorkerHooks()
	procPool := worker.NewPool(cfg.Workers, q, campaignRepo, gw, limiter, cfg.SenderEmail, logger, worker.MetricHooks{
		OnEmailSent:   onEmailSent,
		OnEmailFailed: onEmailFailed,
		OnApplied:     onApplied,
		OnNacked:      onNacked,
	})
	procPool.Start(workerCtx)

	// Sample the queue depth gauge on a fixed interval.
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.QueueDepth.Set(float64(depth.Depth()))
			case <-workerCtx.Done():
				return
			}
		}
	}()

	// ---- HTTP server ----
	router := api.NewRouter(subscriptions, campaigns, depth, reg, logger)
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

	// 2. Signal the batch processors to stop pulling new batches.
	cancelWorkers()

	// 3. Wait for in-flight batches to settle.
	procPool.Wait()

	logger.Info("server stopped cleanly")
}
