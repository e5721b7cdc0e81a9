package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fivetwenty-io/taxii2-client/internal/constants"
)

// metrics holds Prometheus metrics for TAXII requests.
type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: constants.MetricsNamespace,
		Subsystem: constants.MetricsSubsystem,
		Name:      "requests_total",
		Help:      "Total TAXII requests by method and response code",
	}, []string{"method", "code"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: constants.MetricsNamespace,
		Subsystem: constants.MetricsSubsystem,
		Name:      "request_duration_seconds",
		Help:      "TAXII request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	registeredRequests, err := register(registerer, requests)
	if err != nil {
		return nil, err
	}

	registeredDuration, err := register(registerer, duration)
	if err != nil {
		return nil, err
	}

	return &metrics{requests: registeredRequests, duration: registeredDuration}, nil
}

// register reuses a collector that another connection already registered.
func register[T prometheus.Collector](registerer prometheus.Registerer, collector T) (T, error) {
	err := registerer.Register(collector)
	if err == nil {
		return collector, nil
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(T); ok {
			return existing, nil
		}
	}

	var zero T

	return zero, fmt.Errorf("registering metric: %w", err)
}

func (m *metrics) observe(method, code string, duration time.Duration) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(method, code).Inc()
	m.duration.WithLabelValues(method).Observe(duration.Seconds())
}
