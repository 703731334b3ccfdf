package obs

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartChecksTotal counts cart check outcomes by result code.
	CartChecksTotal *prometheus.CounterVec
	// CheckoutTotal counts checkout outcomes by the step that ended them.
	CheckoutTotal *prometheus.CounterVec
	// OrdersCreatedTotal counts persisted purchase orders by currency.
	OrdersCreatedTotal *prometheus.CounterVec
	// OrderDetailsJobsTotal counts order-details job outcomes.
	OrderDetailsJobsTotal *prometheus.CounterVec
	// OrderDetailsJobLatency records order-details job latency in milliseconds.
	OrderDetailsJobLatency prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartChecksTotal = mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_checks_total",
			Help:      "Count of cart check outcomes.",
		}, []string{"result"}))
		CheckoutTotal = mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Count of checkout outcomes by terminal step and result.",
		}, []string{"step", "result"}))
		OrdersCreatedTotal = mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Count of persisted purchase orders.",
		}, []string{"currency"}))
		OrderDetailsJobsTotal = mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_details_jobs_total",
			Help:      "Count of order-details job outcomes.",
		}, []string{"result"}))
		OrderDetailsJobLatency = mustRegister(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_details_job_duration_ms",
			Help:      "Latency of order-details jobs in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}))
	})
}

// IncCartCheck records a cart check outcome. No-op until metrics are registered.
func IncCartCheck(result string) {
	if CartChecksTotal != nil {
		CartChecksTotal.WithLabelValues(result).Inc()
	}
}

// IncCheckout records the step and result a checkout ended with.
func IncCheckout(step, result string) {
	if CheckoutTotal != nil {
		CheckoutTotal.WithLabelValues(step, result).Inc()
	}
}

// IncOrderCreated records a persisted order.
func IncOrderCreated(currency string) {
	if OrdersCreatedTotal != nil {
		OrdersCreatedTotal.WithLabelValues(currency).Inc()
	}
}

// ObserveOrderDetailsJob records an order-details job outcome and latency.
func ObserveOrderDetailsJob(result string, ms float64) {
	if OrderDetailsJobsTotal != nil {
		OrderDetailsJobsTotal.WithLabelValues(result).Inc()
	}
	if OrderDetailsJobLatency != nil {
		OrderDetailsJobLatency.Observe(ms)
	}
}

// mustRegister registers c, returning the collector already registered under
// the same descriptor when there is one.
func mustRegister[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(fmt.Errorf("register collector: %w", err))
	}
	return c
}
