package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/noah-isme/toko-storefront/internal/common"
)

// ReplayProtector guards one-shot side effects.
type ReplayProtector interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// EmailNotifier sends the order confirmation email.
type EmailNotifier struct {
	Mail      common.EmailSender
	Enabled   bool
	From      string
	Replay    ReplayProtector
	ReplayTTL time.Duration
}

// SendConfirmation emails the customer once per order.
func (n EmailNotifier) SendConfirmation(ctx context.Context, p OrderDetails) error {
	if !n.Enabled || n.Mail == nil || strings.TrimSpace(p.Email) == "" {
		return nil
	}
	key := "notify:confirmation:" + p.OrderCode
	if n.Replay != nil {
		ttl := n.ReplayTTL
		if ttl <= 0 {
			ttl = 7 * 24 * time.Hour
		}
		ok, err := n.Replay.Acquire(ctx, key, ttl)
		if err != nil {
			return fmt.Errorf("confirmation replay guard: %w", err)
		}
		if !ok {
			return nil
		}
	}
	msg := common.Email{
		From:    n.From,
		To:      p.Email,
		Subject: fmt.Sprintf("Order %s received", p.OrderCode),
		HTML:    confirmationBody(p),
	}
	if err := n.Mail.Send(ctx, msg); err != nil {
		if n.Replay != nil {
			_ = n.Replay.Release(context.WithoutCancel(ctx), key)
		}
		return fmt.Errorf("send confirmation: %w", err)
	}
	return nil
}

func confirmationBody(p OrderDetails) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p>", html.EscapeString(p.FirstName))
	fmt.Fprintf(&b, "<p>We received order <strong>%s</strong>.</p><ul>", html.EscapeString(p.OrderCode))
	for _, it := range p.Items {
		fmt.Fprintf(&b, "<li>%d x %s (%s) @ %s %s</li>", it.Quantity, html.EscapeString(it.Name),
			html.EscapeString(it.SKU), it.PricePerUnit, p.Currency)
	}
	b.WriteString("</ul>")
	if p.PromotionTitle != "" {
		fmt.Fprintf(&b, "<p>Promotion: %s</p>", html.EscapeString(p.PromotionTitle))
	}
	fmt.Fprintf(&b, "<p>Shipping: %s %s %s</p>", html.EscapeString(p.ShippingMethod), p.ShippingAmount, p.Currency)
	fmt.Fprintf(&b, "<p>Total: %s %s</p>", p.GrandTotal, p.Currency)
	if p.DetailsURL != "" {
		fmt.Fprintf(&b, `<p><a href="%s">View your order</a></p>`, html.EscapeString(p.DetailsURL))
	}
	return b.String()
}
