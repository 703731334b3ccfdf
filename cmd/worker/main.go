package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/app"
	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/config"
	"github.com/noah-isme/toko-storefront/internal/notify"
	"github.com/noah-isme/toko-storefront/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := app.Open(bootCtx, cfg, "worker")
	cancel()
	if err != nil {
		bootLogger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel)
		bootLogger.Fatal().Err(err).Msg("initialise dependencies")
	}
	logger := deps.Logger
	defer func() {
		if err := deps.Close(context.Background()); err != nil {
			logger.Error().Err(err).Msg("close dependencies")
		}
	}()

	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	stores := app.NewStores(deps.DB, nil, 0, logger)
	details := app.NewDetailsHandler(cfg, stores, deps.Redis, common.NopEmailSender{}, logger)

	srv := asynq.NewServerFromRedisClient(deps.Redis, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues:      map[string]int{notify.QueueOrders: 1},
		Logger:      asynqLogger{logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Warn().Err(err).Str("type", task.Type()).Int("retried", retried).Int("max_retry", maxRetry).Msg("task failed")
		}),
		ShutdownTimeout: 20 * time.Second,
	})

	mux := asynq.NewServeMux()
	mux.Handle(notify.TypeOrderDetails, details)

	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}
	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker started")

	<-ctx.Done()
	logger.Info().Msg("worker shutting down")
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

// asynqLogger adapts zerolog to asynq's logger interface.
type asynqLogger struct {
	l zerolog.Logger
}

func (a asynqLogger) Debug(args ...any) { a.l.Debug().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...any)  { a.l.Info().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...any)  { a.l.Warn().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...any) { a.l.Error().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...any) { a.l.Fatal().Msg(fmt.Sprint(args...)) }
