package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/toko-storefront/internal/resilience"
)

// Enqueuer publishes order-details tasks. When Breaker is set, a broker that
// keeps failing is skipped until the breaker half-opens.
type Enqueuer struct {
	Client   *asynq.Client
	MaxRetry int
	Breaker  *resilience.Breaker
}

// Enqueue queues the details job for an order. Re-enqueueing an order whose task
// is still known to the broker is a no-op.
func (e Enqueuer) Enqueue(ctx context.Context, p OrderDetails) error {
	if e.Client == nil {
		return errors.New("notify: task client not configured")
	}
	task, err := NewOrderDetailsTask(p, e.MaxRetry)
	if err != nil {
		return err
	}
	err = e.Breaker.Do(ctx, func(ctx context.Context) error {
		_, err := e.Client.EnqueueContext(ctx, task)
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("enqueue order details %s: %w", p.OrderCode, err)
	}
	return nil
}
