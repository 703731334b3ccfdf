package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/toko-storefront/internal/money"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	CurrencyCode       string
	CurrencySymbols    map[string]string
	MoneyDecimalPlaces int32
	LimitPerOrderCap   int
	CatalogCacheTTL    time.Duration
	TaxTitle           string

	OrderDetailsBaseURL  string
	OrderDetailsMaxRetry int
	OrderLockTTL         time.Duration
	WorkerConcurrency    int
	ShippingRates        string
	PaymentMethods       []string
	RateLimitCartCheck   string
	IdempotencyTTL       time.Duration
	NotifyEmailFrom      string

	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	EnableTracing    bool
	OTLPEndpoint     string
	TracingExporter  string
	TracingSampling  float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CurrencyCode:       strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "USD")),
		CurrencySymbols:    money.ParseSymbols(k.String("CURRENCY_SYMBOLS")),
		MoneyDecimalPlaces: int32(parseInt(k.String("MONEY_DECIMAL_PLACES"), 2)),
		LimitPerOrderCap:   parseInt(k.String("LIMIT_PER_ORDER_CAP"), 100),
		CatalogCacheTTL:    parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),
		TaxTitle:           strings.TrimSpace(k.String("ORDER_TAX_TITLE")),

		OrderDetailsBaseURL:  strings.TrimSpace(k.String("ORDER_DETAILS_BASE_URL")),
		OrderDetailsMaxRetry: parseInt(k.String("ORDER_DETAILS_MAX_RETRY"), 10),
		OrderLockTTL:         parseDuration(k.String("ORDER_LOCK_TTL"), "2m"),
		WorkerConcurrency:    parseInt(k.String("WORKER_CONCURRENCY"), 10),
		ShippingRates:        valueOrDefault(k.String("SHIPPING_RATES"), "standard:*:5.00"),
		PaymentMethods:       splitAndTrim(valueOrDefault(k.String("PAYMENT_METHODS"), "card,bank_transfer")),
		RateLimitCartCheck:   valueOrDefault(k.String("RATE_LIMIT_CART_CHECK"), "60-M"),
		IdempotencyTTL:       parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		NotifyEmailFrom:      strings.TrimSpace(k.String("NOTIFY_EMAIL_FROM")),

		LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "storefront"),
		EnableTracing:    parseBool(k.String("OBS_ENABLE_TRACING")),
		OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
		TracingSampling:  parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if len(cfg.CurrencyCode) != 3 {
		return nil, fmt.Errorf("CURRENCY_CODE must be a 3-letter code, got %q", cfg.CurrencyCode)
	}
	if cfg.MoneyDecimalPlaces < 0 || cfg.MoneyDecimalPlaces > 4 {
		return nil, fmt.Errorf("MONEY_DECIMAL_PLACES must be between 0 and 4, got %d", cfg.MoneyDecimalPlaces)
	}

	return cfg, nil
}

// Money returns the rounding and display settings handed to the pricing components.
// Configured symbols extend the defaults.
func (c *Config) Money() money.Config {
	mc := money.DefaultConfig()
	mc.DecimalPlaces = c.MoneyDecimalPlaces
	mc.DefaultCurrency = c.CurrencyCode
	for code, sym := range c.CurrencySymbols {
		mc.Symbols[code] = sym
	}
	return mc
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
