package resilience

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsMu          sync.RWMutex
	breakerState       *prometheus.GaugeVec
	breakerTransitions *prometheus.CounterVec
)

// RegisterMetrics exposes breaker state and transitions on reg. Breakers
// created before registration start reporting on their next transition.
func RegisterMetrics(namespace string, reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	state := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "breaker_state",
		Help:      "Current breaker state: 0=closed,1=open,2=half-open.",
	}, []string{"target"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "breaker_transitions_total",
		Help:      "Count of breaker state transitions.",
	}, []string{"target", "from", "to"})

	if err := reg.Register(state); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return err
		}
		state = are.ExistingCollector.(*prometheus.GaugeVec)
	}
	if err := reg.Register(transitions); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return err
		}
		transitions = are.ExistingCollector.(*prometheus.CounterVec)
	}

	metricsMu.Lock()
	breakerState, breakerTransitions = state, transitions
	metricsMu.Unlock()
	return nil
}

func recordState(target string, s State) {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	if breakerState == nil {
		return
	}
	breakerState.WithLabelValues(target).Set(float64(s))
}

func recordTransition(target string, from, to State) {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	if breakerTransitions == nil {
		return
	}
	breakerTransitions.WithLabelValues(target, from.String(), to.String()).Inc()
}
