package resilience

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned by Do while the breaker refuses calls.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State is the breaker position.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Options tunes a Breaker. Zero values take the defaults noted on each field.
type Options struct {
	// Target labels metrics and logs. Defaults to "default".
	Target string
	// MinRequests observed before the failure ratio is evaluated. Defaults to 5.
	MinRequests int
	// FailureRatio at or above which the breaker opens. Defaults to 0.5.
	FailureRatio float64
	// OpenFor is the cool-off before a half-open probe. Defaults to 30s.
	OpenFor time.Duration
	Logger  *zerolog.Logger
	Now     func() time.Time
}

// Breaker is a failure-ratio circuit breaker guarding one downstream dependency.
// While half-open a single probe is in flight; its outcome closes or reopens
// the circuit.
type Breaker struct {
	opts Options

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	probing   bool
}

// NewBreaker constructs a closed breaker.
func NewBreaker(opts Options) *Breaker {
	if strings.TrimSpace(opts.Target) == "" {
		opts.Target = "default"
	}
	if opts.MinRequests <= 0 {
		opts.MinRequests = 5
	}
	if opts.FailureRatio <= 0 || opts.FailureRatio > 1 {
		opts.FailureRatio = 0.5
	}
	if opts.OpenFor <= 0 {
		opts.OpenFor = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	b := &Breaker{opts: opts}
	recordState(opts.Target, Closed)
	return b
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Do runs fn when the breaker admits the call and records its outcome.
// Cancellation of ctx is not counted as a downstream failure.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if b == nil {
		return fn(ctx)
	}
	if !b.allow(ctx) {
		return ErrOpenCircuit
	}
	err := fn(ctx)
	if err != nil && ctx.Err() != nil {
		b.release()
		return err
	}
	b.report(ctx, err == nil)
	return err
}

func (b *Breaker) allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Open:
		if b.opts.Now().Sub(b.openedAt) < b.opts.OpenFor {
			return false
		}
		b.transitionLocked(ctx, HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

func (b *Breaker) release() {
	b.mu.Lock()
	b.probing = false
	b.mu.Unlock()
}

func (b *Breaker) report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.transitionLocked(ctx, Closed)
		} else {
			b.transitionLocked(ctx, Open)
		}
		return
	}

	if success {
		b.successes++
	} else {
		b.failures++
	}
	total := b.failures + b.successes
	if total < b.opts.MinRequests {
		return
	}
	if float64(b.failures)/float64(total) >= b.opts.FailureRatio {
		b.transitionLocked(ctx, Open)
		return
	}
	if total > b.opts.MinRequests*2 {
		// halve the window so old outcomes fade
		b.successes = (b.successes + 1) / 2
		b.failures = (b.failures + 1) / 2
	}
}

func (b *Breaker) transitionLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	b.failures, b.successes = 0, 0
	switch next {
	case Open:
		b.openedAt = b.opts.Now()
	case Closed:
		b.openedAt = time.Time{}
	}
	recordState(b.opts.Target, next)
	recordTransition(b.opts.Target, prev, next)

	logger := b.logger(ctx)
	evt := logger.Warn().Str("target", b.opts.Target).Str("from_state", prev.String()).Str("to_state", next.String())
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Msg("breaker_transition")
}

func (b *Breaker) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	if b.opts.Logger != nil {
		return b.opts.Logger
	}
	nop := zerolog.Nop()
	return &nop
}
