package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/resilience"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

var errDown = errors.New("down")

func fail(context.Context) error { return errDown }
func ok(context.Context) error   { return nil }

func TestBreakerOpensAndRecovers(t *testing.T) {
	clk := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := resilience.NewBreaker(resilience.Options{Target: "test", MinRequests: 2, FailureRatio: 0.5, OpenFor: time.Minute, Now: clk.Now})
	ctx := context.Background()

	require.ErrorIs(t, b.Do(ctx, fail), errDown)
	require.Equal(t, resilience.Closed, b.State())
	require.ErrorIs(t, b.Do(ctx, fail), errDown)
	require.Equal(t, resilience.Open, b.State())

	called := false
	err := b.Do(ctx, func(context.Context) error { called = true; return nil })
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.False(t, called)

	clk.now = clk.now.Add(time.Minute)
	require.NoError(t, b.Do(ctx, ok))
	require.Equal(t, resilience.Closed, b.State())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	clk := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := resilience.NewBreaker(resilience.Options{MinRequests: 1, OpenFor: time.Second, Now: clk.Now})
	ctx := context.Background()

	require.Error(t, b.Do(ctx, fail))
	require.Equal(t, resilience.Open, b.State())

	clk.now = clk.now.Add(time.Second)
	require.ErrorIs(t, b.Do(ctx, fail), errDown)
	require.Equal(t, resilience.Open, b.State())
	require.ErrorIs(t, b.Do(ctx, ok), resilience.ErrOpenCircuit)
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	b := resilience.NewBreaker(resilience.Options{MinRequests: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Do(ctx, func(ctx context.Context) error { return ctx.Err() })
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, resilience.Closed, b.State())
}

func TestNilBreakerPassesThrough(t *testing.T) {
	var b *resilience.Breaker
	require.ErrorIs(t, b.Do(context.Background(), fail), errDown)
}

func TestBreakerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, resilience.RegisterMetrics("test", reg))
	require.NoError(t, resilience.RegisterMetrics("test", reg))

	b := resilience.NewBreaker(resilience.Options{Target: "metrics", MinRequests: 1})
	require.Error(t, b.Do(context.Background(), fail))

	count, err := testutil.GatherAndCount(reg, "test_breaker_transitions_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
