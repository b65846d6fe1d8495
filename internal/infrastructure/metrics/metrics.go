// Package metrics exposes Prometheus collectors for resource calls and store transitions.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ochotona"

// ClientMetrics counts and times Resource Client round trips.
type ClientMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewClientMetrics creates client collectors and registers them.
// A nil registerer leaves the collectors unregistered.
func NewClientMetrics(reg prometheus.Registerer) (*ClientMetrics, error) {
	m := &ClientMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Resource client requests by entity, operation and response status.",
		}, []string{"entity", "operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Resource client round-trip latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"entity", "operation"}),
	}

	var err error
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// Observe records one finished request. Status 0 means no response was received.
func (m *ClientMetrics) Observe(entity, operation string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(entity, operation, label).Inc()
	m.duration.WithLabelValues(entity, operation).Observe(elapsed.Seconds())
}

// Requests returns the request counter for assertions and custom exporters.
func (m *ClientMetrics) Requests() *prometheus.CounterVec {
	return m.requests
}

// StoreMetrics counts Entity Store state transitions.
type StoreMetrics struct {
	transitions *prometheus.CounterVec
}

// NewStoreMetrics creates store collectors and registers them.
func NewStoreMetrics(reg prometheus.Registerer) (*StoreMetrics, error) {
	m := &StoreMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "transitions_total",
			Help:      "Entity store transitions by entity and event.",
		}, []string{"entity", "event"}),
	}

	var err error
	if m.transitions, err = register(reg, m.transitions); err != nil {
		return nil, err
	}
	return m, nil
}

// Transition records one applied event.
func (m *StoreMetrics) Transition(entity, event string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(entity, event).Inc()
}

// Transitions returns the transition counter.
func (m *StoreMetrics) Transitions() *prometheus.CounterVec {
	return m.transitions
}

// register adds c to reg, reusing an identical collector that is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if reg == nil {
		return c, nil
	}
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}
