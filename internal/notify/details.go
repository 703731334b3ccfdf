package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/lock"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/obs"
	"github.com/noah-isme/toko-storefront/internal/order"
)

// ErrUnknownTax is returned when the payload names a tax policy that does not exist.
var ErrUnknownTax = errors.New("notify: unknown tax policy")

// OrderWriter is the subset of the order store the details job needs.
type OrderWriter interface {
	AttachDetails(ctx context.Context, code string, d order.Details) error
	SettlePromotion(ctx context.Context, code string) (bool, error)
	SetStatus(ctx context.Context, code string, status order.Status, reason string) error
	FindTaxByTitle(ctx context.Context, title string) (order.TaxRecord, bool, error)
}

// Locker serialises work on a single order.
type Locker interface {
	TryWithLock(ctx context.Context, name string, ttl time.Duration, fn func(context.Context) error) error
}

// DetailsHandler processes order-details tasks: it attaches shipping, payment, tax
// and promotion records, settles promotion usage and sends the confirmation email.
// Any failure marks the order as errored and is returned so asynq retries.
type DetailsHandler struct {
	Orders  OrderWriter
	Locker  Locker
	LockTTL time.Duration
	Email   EmailNotifier
	Logger  zerolog.Logger
	Now     func() time.Time
}

func (h *DetailsHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// ProcessTask implements asynq.Handler.
func (h *DetailsHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if h == nil || h.Orders == nil {
		return errors.New("notify: details handler not configured")
	}
	p, err := ParseOrderDetails(t)
	if err != nil {
		h.Logger.Error().Err(err).Msg("drop malformed order details task")
		obs.ObserveOrderDetailsJob("malformed", 0)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	start := h.now()
	log := h.Logger.With().Str("order_code", p.OrderCode).Logger()

	run := func(ctx context.Context) error { return h.apply(ctx, p) }
	if h.Locker != nil {
		ttl := h.LockTTL
		if ttl <= 0 {
			ttl = 30 * time.Second
		}
		err = h.Locker.TryWithLock(ctx, "order:"+p.OrderCode, ttl, run)
	} else {
		err = run(ctx)
	}
	elapsed := float64(h.now().Sub(start).Milliseconds())
	if errors.Is(err, lock.ErrHeld) {
		obs.ObserveOrderDetailsJob("busy", elapsed)
		log.Debug().Msg("order details already in progress")
		return err
	}
	if err != nil {
		obs.ObserveOrderDetailsJob("error", elapsed)
		if serr := h.Orders.SetStatus(context.WithoutCancel(ctx), p.OrderCode, order.StatusError, err.Error()); serr != nil {
			log.Error().Err(serr).Msg("mark order errored")
		}
		log.Error().Err(err).Msg("order details job failed")
		return err
	}
	obs.ObserveOrderDetailsJob("ok", elapsed)
	log.Info().Float64("elapsed_ms", elapsed).Msg("order details attached")
	return nil
}

func (h *DetailsHandler) apply(ctx context.Context, p OrderDetails) error {
	details, err := h.details(ctx, p)
	if err != nil {
		return err
	}
	if err := h.Orders.AttachDetails(ctx, p.OrderCode, details); err != nil {
		return err
	}
	if details.PromotionID != nil {
		if _, err := h.Orders.SettlePromotion(ctx, p.OrderCode); err != nil {
			return err
		}
	}
	return h.Email.SendConfirmation(ctx, p)
}

func (h *DetailsHandler) details(ctx context.Context, p OrderDetails) (order.Details, error) {
	amount, err := money.Parse(p.ShippingAmount, p.Currency)
	if err != nil {
		return order.Details{}, fmt.Errorf("shipping amount: %w", err)
	}
	taxID := p.TaxID
	if taxID == nil && p.TaxTitle != "" {
		rec, ok, err := h.Orders.FindTaxByTitle(ctx, p.TaxTitle)
		if err != nil {
			return order.Details{}, err
		}
		if !ok {
			return order.Details{}, fmt.Errorf("%w: %s", ErrUnknownTax, p.TaxTitle)
		}
		id := rec.ID
		taxID = &id
	}
	return order.Details{
		Shipping: order.ShippingRecord{
			Method:  p.ShippingMethod,
			Amount:  amount,
			Address: p.ShippingTo,
		},
		Payment: order.PaymentRecord{
			Method:  p.PaymentMethod,
			Billing: p.BillingAddress,
		},
		PromotionID: p.PromotionID,
		TaxID:       taxID,
		DetailsURL:  p.DetailsURL,
	}, nil
}
