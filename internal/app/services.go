package app

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/cart"
	"github.com/noah-isme/toko-storefront/internal/catalog"
	"github.com/noah-isme/toko-storefront/internal/checkout"
	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/config"
	"github.com/noah-isme/toko-storefront/internal/lock"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/notify"
	"github.com/noah-isme/toko-storefront/internal/order"
	"github.com/noah-isme/toko-storefront/internal/payment"
	"github.com/noah-isme/toko-storefront/internal/pricing"
	"github.com/noah-isme/toko-storefront/internal/promotion"
	"github.com/noah-isme/toko-storefront/internal/resilience"
	"github.com/noah-isme/toko-storefront/internal/shipping"
)

// Stores groups the Postgres-backed repositories.
type Stores struct {
	Catalog    catalog.Store
	Promotions *promotion.PGStore
	Orders     *order.PGStore
}

// NewStores builds the repositories on pool. The catalog lookup is cached in
// Redis when rdb is set.
func NewStores(pool order.Pool, rdb *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) Stores {
	var items catalog.Store = catalog.NewPGStore(pool)
	if rdb != nil && cacheTTL > 0 {
		items = catalog.CachedStore{
			Next:   items,
			Cache:  catalog.NewCache(rdb, cacheTTL),
			Logger: logger,
		}
	}
	return Stores{
		Catalog:    items,
		Promotions: promotion.NewPGStore(pool),
		Orders:     order.NewPGStore(pool),
	}
}

// API bundles the HTTP handlers served by cmd/api.
type API struct {
	Money    money.Config
	Cart     *cart.Handler
	Checkout *checkout.Handler
	Orders   *order.Handler
}

// NewAPI wires the pricing components into HTTP handlers.
func NewAPI(cfg *config.Config, s Stores, tasks *asynq.Client, logger zerolog.Logger) (*API, error) {
	mc := cfg.Money()
	calc := pricing.NewCalculator(mc)
	resolver := promotion.NewResolver(s.Promotions, calc)

	rates, err := shipping.ParseRates(cfg.ShippingRates, cfg.CurrencyCode)
	if err != nil {
		return nil, fmt.Errorf("shipping rates: %w", err)
	}

	validator := &cart.Validator{
		Catalog:    s.Catalog,
		Promotions: resolver,
		Calc:       calc,
		Currency:   cfg.CurrencyCode,
	}
	var stock checkout.StockCache
	if cached, ok := s.Catalog.(catalog.CachedStore); ok {
		stock = cached
	}
	svc := checkout.NewService(checkout.Service{
		Cart:           validator,
		Shipping:       rates,
		Payment:        payment.NewMethodValidator(cfg.PaymentMethods...),
		Orders:         s.Orders,
		Details: notify.Enqueuer{
			Client:   tasks,
			MaxRetry: cfg.OrderDetailsMaxRetry,
			Breaker:  resilience.NewBreaker(resilience.Options{Target: "order_details_enqueue", Logger: &logger}),
		},
		Stock:          stock,
		Money:          mc,
		TaxTitle:       cfg.TaxTitle,
		DetailsBaseURL: cfg.OrderDetailsBaseURL,
		Logger:         logger,
	})

	return &API{
		Money:    mc,
		Cart:     &cart.Handler{Validator: validator, Money: mc},
		Checkout: &checkout.Handler{Svc: svc, Money: mc},
		Orders: &order.Handler{
			Svc:   &order.Service{Orders: s.Orders, Promotions: s.Promotions, Calc: calc},
			Money: mc,
		},
	}, nil
}

// NewDetailsHandler wires the order-details job run by cmd/worker.
func NewDetailsHandler(cfg *config.Config, s Stores, rdb *redis.Client, mail common.EmailSender, logger zerolog.Logger) *notify.DetailsHandler {
	return &notify.DetailsHandler{
		Orders:  s.Orders,
		Locker:  lock.Locker{R: rdb},
		LockTTL: cfg.OrderLockTTL,
		Email: notify.EmailNotifier{
			Mail:    mail,
			Enabled: cfg.NotifyEmailFrom != "",
			From:    cfg.NotifyEmailFrom,
			Replay:  notify.RedisOnce{Client: rdb},
		},
		Logger: logger,
	}
}
