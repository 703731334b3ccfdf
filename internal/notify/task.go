package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/toko-storefront/internal/shipping"
)

// TypeOrderDetails is the asynq task type for the post-persist details job.
const TypeOrderDetails = "order:details"

// QueueOrders is the asynq queue order tasks are placed on.
const QueueOrders = "orders"

// ItemSummary is an order line as carried in the details payload.
type ItemSummary struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	PricePerUnit string `json:"price_per_unit"`
}

// OrderDetails is the payload handed from checkout to the details job. Payment
// tokens are never included.
type OrderDetails struct {
	OrderCode      string           `json:"order_code"`
	Email          string           `json:"email"`
	FirstName      string           `json:"first_name"`
	Currency       string           `json:"currency"`
	ShippingMethod string           `json:"shipping_method"`
	ShippingAmount string           `json:"shipping_amount"`
	ShippingTo     shipping.Address `json:"shipping_address"`
	PaymentMethod  string           `json:"payment_method"`
	BillingAddress shipping.Address `json:"billing_address"`
	PromotionID    *int64           `json:"promotion_id,omitempty"`
	PromotionTitle string           `json:"promotion_title,omitempty"`
	TaxID          *int64           `json:"tax_id,omitempty"`
	TaxTitle       string           `json:"tax_title,omitempty"`
	Items          []ItemSummary    `json:"items"`
	GrandTotal     string           `json:"grand_total"`
	DetailsURL     string           `json:"details_url"`
}

// TaskID is the deduplication ID for an order's details task.
func TaskID(orderCode string) string {
	return "order-details:" + orderCode
}

// NewOrderDetailsTask builds the asynq task for p. The task ID is derived from the
// order code so the same order is never queued twice.
func NewOrderDetailsTask(p OrderDetails, maxRetry int) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode order details: %w", err)
	}
	if maxRetry <= 0 {
		maxRetry = 10
	}
	return asynq.NewTask(TypeOrderDetails, payload,
		asynq.TaskID(TaskID(p.OrderCode)),
		asynq.MaxRetry(maxRetry),
		asynq.Queue(QueueOrders),
		asynq.Timeout(time.Minute),
		asynq.Retention(24*time.Hour),
	), nil
}

// ParseOrderDetails decodes a details task payload.
func ParseOrderDetails(t *asynq.Task) (OrderDetails, error) {
	var p OrderDetails
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return OrderDetails{}, fmt.Errorf("decode order details: %w", err)
	}
	if p.OrderCode == "" {
		return OrderDetails{}, fmt.Errorf("decode order details: missing order code")
	}
	return p, nil
}
