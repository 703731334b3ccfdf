package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/config"
	"github.com/noah-isme/toko-storefront/internal/obs"
	"github.com/noah-isme/toko-storefront/internal/store"
)

// Dependencies holds the connections shared by the API and the worker.
type Dependencies struct {
	DB         *pgxpool.Pool
	Redis      *redis.Client
	TaskClient *asynq.Client
	Logger     zerolog.Logger

	closers []func(context.Context) error
}

// Open builds the logger, tracer, Postgres pool, Redis client and task client
// for the named component.
func Open(ctx context.Context, cfg *config.Config, component string) (*Dependencies, error) {
	d := &Dependencies{
		Logger: obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().
			Str("component", component).
			Str("env", cfg.AppEnv).
			Logger(),
	}

	if cfg.EnableTracing {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "toko-storefront-" + component,
			Endpoint:      cfg.OTLPEndpoint,
			Exporter:      cfg.TracingExporter,
			SamplingRatio: cfg.TracingSampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			d.Logger.Error().Err(err).Msg("initialise tracing")
		} else {
			d.closers = append(d.closers, shutdown)
		}
	}

	pool, err := store.OpenPool(ctx, store.PoolOptions{
		URL:             cfg.DatabaseURL,
		ApplicationName: "toko-storefront-" + component,
		Tracer:          obs.PGXTracer{},
	})
	if err != nil {
		_ = d.Close(ctx)
		return nil, err
	}
	d.DB = pool
	d.closers = append(d.closers, func(context.Context) error {
		pool.Close()
		return nil
	})

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		_ = d.Close(ctx)
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		d.Logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(rdb); err != nil {
		d.Logger.Error().Err(err).Msg("instrument redis metrics")
	}
	d.Redis = rdb
	d.closers = append(d.closers, func(context.Context) error { return rdb.Close() })
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = d.Close(ctx)
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	d.TaskClient = asynq.NewClientFromRedisClient(rdb)
	return d, nil
}

// Close releases resources in reverse order of acquisition.
func (d *Dependencies) Close(ctx context.Context) error {
	if d == nil {
		return nil
	}
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
