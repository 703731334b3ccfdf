package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-storefront/internal/app"
	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/config"
	"github.com/noah-isme/toko-storefront/internal/health"
	"github.com/noah-isme/toko-storefront/internal/obs"
	"github.com/noah-isme/toko-storefront/internal/ratelimit"
	"github.com/noah-isme/toko-storefront/internal/resilience"
	"github.com/noah-isme/toko-storefront/internal/security"
	"github.com/noah-isme/toko-storefront/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := app.Open(bootCtx, cfg, "api")
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

	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
	if err := resilience.RegisterMetrics(cfg.MetricsNamespace, nil); err != nil {
		logger.Fatal().Err(err).Msg("register breaker metrics")
	}
	httpMetrics := obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(os.Getenv("OBS_METRICS_BUCKETS_MS")), nil)

	stores := app.NewStores(deps.DB, deps.Redis, cfg.CatalogCacheTTL, logger)
	api, err := app.NewAPI(cfg, stores, deps.TaskClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("wire handlers")
	}

	limiterStore, err := ratelimit.NewRedisStore(deps.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter store")
	}
	cartLimiter, err := ratelimit.New(cfg.RateLimitCartCheck, limiterStore)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse cart check rate limit")
	}
	cartLimit := ratelimit.Handler{
		Limiter: cartLimiter,
		Scope:   "cart_check",
		OnError: func(r *http.Request, err error) {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("rate limiter unavailable")
		},
	}
	idem := common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.SpanNameMiddleware)
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", common.IdempotencyHeader},
		ExposedHeaders: []string{"X-Request-Id", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	healthHandler := health.Handler{Checker: health.Probes{DB: deps.DB, Redis: deps.Redis}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.BodyLimit{Max: security.DefaultMaxBody}.Middleware)
		v.With(cartLimit.Middleware).Post("/cart/check", api.Cart.Check)
		v.With(idem.Middleware).Post("/checkout", api.Checkout.Submit)
		v.Get("/orders/{code}", api.Orders.Get)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           otelhttp.NewHandler(r, "http.server"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-ctx.Done():
		health.SetReady(false)
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
