package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/toko-storefront/internal/cart"
	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/money"
	"github.com/noah-isme/toko-storefront/internal/notify"
	"github.com/noah-isme/toko-storefront/internal/obs"
	"github.com/noah-isme/toko-storefront/internal/order"
	"github.com/noah-isme/toko-storefront/internal/payment"
	"github.com/noah-isme/toko-storefront/internal/shipping"
)

const instrumentationName = "github.com/noah-isme/toko-storefront/internal/checkout"

// ExpectedTotal is the grand total the client displayed when submitting.
type ExpectedTotal struct {
	Amount   string `json:"amount" validate:"required,numeric"`
	Currency string `json:"currency" validate:"required,len=3"`
}

// Input is the checkout submission. Nested parts are validated step by step so
// each failure carries the api tag of the component that rejected it.
type Input struct {
	Coupon             string           `json:"coupon,omitempty"`
	Cart               *cart.Input      `json:"cart" validate:"-"`
	Profile            order.Profile    `json:"profile" validate:"-"`
	Shipping           shipping.Details `json:"shipping" validate:"-"`
	Payment            payment.Details  `json:"payment" validate:"-"`
	BillingAddress     shipping.Address `json:"billing_address" validate:"-"`
	ExpectedGrandTotal *ExpectedTotal   `json:"expected_grand_total,omitempty" validate:"-"`
}

// Result is returned once the order is durably persisted.
type Result struct {
	Order      order.PurchaseOrder
	Cart       cart.Result
	Shipping   money.Money
	GrandTotal money.Money
	// Enqueued is false when the details job could not be queued. The order then
	// carries the error status and awaits reconciliation.
	Enqueued bool
}

// CartChecker validates and prices the submitted cart.
type CartChecker interface {
	Check(ctx context.Context, req cart.CheckRequest) (cart.Result, error)
}

// Orders persists new orders and records their status.
type Orders interface {
	Persist(ctx context.Context, in order.NewOrder) (order.PurchaseOrder, error)
	SetStatus(ctx context.Context, code string, status order.Status, reason string) error
}

// DetailsEnqueuer hands the order to the asynchronous details job.
type DetailsEnqueuer interface {
	Enqueue(ctx context.Context, p notify.OrderDetails) error
}

// StockCache forgets cached item lookups once an order has reserved stock.
type StockCache interface {
	Invalidate(ctx context.Context, skus ...string) error
}

// Service runs the checkout state machine.
type Service struct {
	Cart     CartChecker
	Shipping shipping.Quoter
	Payment  payment.Validator
	Orders   Orders
	Details  DetailsEnqueuer
	// Stock is optional.
	Stock StockCache
	Money money.Config
	// TaxTitle names the tax policy the details job links to new orders.
	TaxTitle string
	// DetailsBaseURL prefixes the order code to build the customer-facing link.
	DetailsBaseURL string
	NewCode        func() string
	Logger         zerolog.Logger

	tracer   trace.Tracer
	failures metric.Int64Counter
}

// NewService wires instrumentation from the global OpenTelemetry providers.
func NewService(s Service) *Service {
	svc := s
	svc.tracer = otel.Tracer(instrumentationName)
	counter, err := otel.Meter(instrumentationName).Int64Counter("checkout.step.failures",
		metric.WithDescription("Checkout submissions that stopped at a given step"))
	if err == nil {
		svc.failures = counter
	}
	return &svc
}

func (s *Service) ready() error {
	if s == nil || s.Cart == nil || s.Shipping == nil || s.Payment == nil || s.Orders == nil {
		return errors.New("checkout service not configured")
	}
	return nil
}

func (s *Service) tracerOrGlobal() trace.Tracer {
	if s.tracer != nil {
		return s.tracer
	}
	return otel.Tracer(instrumentationName)
}

// step runs fn inside its own span and records the outcome.
func (s *Service) step(ctx context.Context, st Step, fn func(context.Context) error) error {
	ctx, span := s.tracerOrGlobal().Start(ctx, "checkout."+st.String())
	defer span.End()
	err := fn(ctx)
	if err == nil {
		obs.IncCheckout(st.String(), "ok")
		return nil
	}
	code := "error"
	if appErr, ok := common.AsAppError(err); ok {
		code = appErr.Code
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, code)
	if s.failures != nil {
		s.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("step", st.String()),
			attribute.String("code", code),
		))
	}
	obs.IncCheckout(st.String(), code)
	return err
}

// Submit validates the cart, shipping, grand total, payment and buyer profile
// in that order, persists the order and queues the details job. A failure before the order is
// persisted leaves nothing behind.
func (s *Service) Submit(ctx context.Context, in Input) (Result, error) {
	if err := s.ready(); err != nil {
		return Result{}, err
	}
	ctx, root := s.tracerOrGlobal().Start(ctx, "checkout.submit")
	defer root.End()

	var (
		res     Result
		cartRes cart.Result
	)
	steps := []struct {
		step Step
		fn   func(context.Context) error
	}{
		{StepStart, func(context.Context) error { return validateInput(in) }},
		{StepCartValidated, func(ctx context.Context) error {
			var err error
			cartRes, err = s.Cart.Check(ctx, cart.CheckRequest{Coupon: in.Coupon, Cart: in.Cart})
			if err == nil && len(cartRes.Lines) == 0 {
				err = common.ErrInvalidCartCheckData
			}
			return common.TagError(err, APICart)
		}},
		{StepShippingValidated, func(ctx context.Context) error {
			var err error
			res.Shipping, err = s.quoteShipping(ctx, in.Shipping, cartRes.Currency)
			return err
		}},
		{StepGrandTotalReconciled, func(context.Context) error {
			var err error
			res.GrandTotal, err = s.reconcile(cartRes.TotalPrice, res.Shipping, in.ExpectedGrandTotal)
			return err
		}},
		{StepPaymentValidated, func(ctx context.Context) error {
			return common.TagError(s.Payment.Validate(ctx, in.Payment, in.BillingAddress), APIPayment)
		}},
		{StepOrderPersisted, func(ctx context.Context) error {
			if err := common.Validate(in.Profile); err != nil {
				return common.TagError(err, APIProfile)
			}
			var err error
			res.Order, err = s.persist(ctx, in.Profile, cartRes)
			if err == nil {
				s.forgetStock(ctx, res.Order)
			}
			return err
		}},
	}
	for _, st := range steps {
		if err := s.step(ctx, st.step, st.fn); err != nil {
			root.SetStatus(codes.Error, st.step.String())
			root.SetAttributes(attribute.String("checkout.failed_step", st.step.String()))
			return Result{}, err
		}
	}
	res.Cart = cartRes
	root.SetAttributes(attribute.String("order.code", res.Order.Code))
	obs.IncOrderCreated(res.Order.Currency)

	err := s.step(ctx, StepDetailsEnqueued, func(ctx context.Context) error {
		return s.enqueue(ctx, in, res)
	})
	if err != nil {
		log := s.Logger.With().Str("order_code", res.Order.Code).Logger()
		log.Error().Err(err).Msg("queue order details")
		if serr := s.Orders.SetStatus(context.WithoutCancel(ctx), res.Order.Code, order.StatusError, err.Error()); serr != nil {
			log.Error().Err(serr).Msg("mark order errored")
		}
		return res, nil
	}
	res.Enqueued = true
	return res, nil
}

func validateInput(in Input) error {
	if in.Cart == nil || len(in.Cart.Items) == 0 {
		return common.TagError(common.ErrInvalidCartCheckData, APICart)
	}
	if err := common.Validate(in.Cart); err != nil {
		return common.TagError(err, APICart)
	}
	if in.ExpectedGrandTotal != nil {
		if err := common.Validate(in.ExpectedGrandTotal); err != nil {
			return common.TagError(err, APICheckout)
		}
	}
	return nil
}

func (s *Service) quoteShipping(ctx context.Context, d shipping.Details, currency string) (money.Money, error) {
	cost, err := s.Shipping.Quote(ctx, d)
	if err != nil {
		return money.Money{}, common.TagError(err, APIShipping)
	}
	if cost.Currency() != money.NormalizeCode(currency) {
		return money.Money{}, common.ErrCurrencyMismatch.
			With("cart_currency", currency).
			With("shipping_currency", cost.Currency()).
			Tagged(APIShipping)
	}
	return cost, nil
}

func (s *Service) reconcile(cartTotal, shippingCost money.Money, expected *ExpectedTotal) (money.Money, error) {
	grand, err := cartTotal.Add(shippingCost)
	if err != nil {
		return money.Money{}, common.ErrCurrencyMismatch.Wrap(err).Tagged(APIShipping)
	}
	if expected == nil {
		return grand, nil
	}
	mismatch := common.ErrGrandTotalMismatch.
		With("expected_grand_total", expected.Amount).
		With("expected_currency", money.NormalizeCode(expected.Currency)).
		With("grand_total", s.Money.Format(grand)).
		With("currency", grand.Currency()).
		Tagged(APICheckout)
	want, err := decimal.NewFromString(strings.TrimSpace(expected.Amount))
	if err != nil {
		return money.Money{}, mismatch.Wrap(err)
	}
	if money.NormalizeCode(expected.Currency) != grand.Currency() || !want.Equal(grand.Amount()) {
		return money.Money{}, mismatch
	}
	return grand, nil
}

func (s *Service) persist(ctx context.Context, profile order.Profile, cartRes cart.Result) (order.PurchaseOrder, error) {
	lines := make([]order.Line, 0, len(cartRes.Lines))
	for _, l := range cartRes.Lines {
		lines = append(lines, order.Line{
			ItemID:       l.Item.ID,
			SKU:          l.Item.SKU,
			Name:         l.Item.Name,
			Quantity:     l.Quantity,
			PricePerUnit: l.BasePrice,
		})
	}
	newCode := s.NewCode
	if newCode == nil {
		newCode = order.NewCode
	}
	const attempts = 3
	var lastErr error
	for i := 0; i < attempts; i++ {
		po, err := s.Orders.Persist(ctx, order.NewOrder{
			Code:     newCode(),
			Profile:  profile,
			Currency: cartRes.Currency,
			Lines:    lines,
		})
		if err == nil {
			return po, nil
		}
		if !errors.Is(err, order.ErrDuplicateCode) {
			if _, ok := common.AsAppError(err); ok {
				return order.PurchaseOrder{}, common.TagError(err, APICart)
			}
			return order.PurchaseOrder{}, fmt.Errorf("persist order: %w", err)
		}
		lastErr = err
	}
	return order.PurchaseOrder{}, fmt.Errorf("persist order after %d attempts: %w", attempts, lastErr)
}

func (s *Service) forgetStock(ctx context.Context, po order.PurchaseOrder) {
	if s.Stock == nil {
		return
	}
	skus := make([]string, 0, len(po.Lines))
	for _, l := range po.Lines {
		skus = append(skus, l.SKU)
	}
	if err := s.Stock.Invalidate(context.WithoutCancel(ctx), skus...); err != nil {
		s.Logger.Warn().Err(err).Str("order_code", po.Code).Msg("catalog cache invalidation failed")
	}
}

func (s *Service) enqueue(ctx context.Context, in Input, res Result) error {
	po, cartRes, shippingCost, grand := res.Order, res.Cart, res.Shipping, res.GrandTotal
	if s.Details == nil {
		return errors.New("details enqueuer not configured")
	}
	p := notify.OrderDetails{
		OrderCode:      po.Code,
		Email:          po.Profile.Email,
		FirstName:      po.Profile.FirstName,
		Currency:       po.Currency,
		ShippingMethod: in.Shipping.Method,
		ShippingAmount: shippingCost.Amount().String(),
		ShippingTo:     in.Shipping.Address,
		PaymentMethod:  in.Payment.Method,
		BillingAddress: in.BillingAddress,
		TaxTitle:       s.TaxTitle,
		GrandTotal:     s.Money.Format(grand),
		DetailsURL:     s.detailsURL(po.Code),
	}
	if cartRes.Coupon != nil {
		id := cartRes.Coupon.ID
		p.PromotionID = &id
		p.PromotionTitle = cartRes.Coupon.Title
	}
	for _, l := range po.Lines {
		p.Items = append(p.Items, notify.ItemSummary{
			SKU:          l.SKU,
			Name:         l.Name,
			Quantity:     l.Quantity,
			PricePerUnit: s.Money.Format(l.PricePerUnit),
		})
	}
	enqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return s.Details.Enqueue(enqCtx, p)
}

func (s *Service) detailsURL(code string) string {
	base := strings.TrimRight(s.DetailsBaseURL, "/")
	if base == "" {
		return ""
	}
	return base + "/" + code
}
