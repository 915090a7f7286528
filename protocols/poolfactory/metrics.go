package poolfactory

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors of a Factory.
type Metrics struct {
	poolsCreated prometheus.Counter
	poolCount    prometheus.Gauge
	failures     *prometheus.CounterVec
	opDuration   *prometheus.HistogramVec
}

// NewMetrics creates the factory collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		poolsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "poolfactory",
			Name:      "pools_created_total",
			Help:      "Number of pools registered since start.",
		}),
		poolCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "poolfactory",
			Name:      "pools",
			Help:      "Total number of registered pools.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poolfactory",
			Name:      "operation_failures_total",
			Help:      "Failed registry operations by operation and reason.",
		}, []string{"op", "reason"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "poolfactory",
			Name:      "operation_duration_seconds",
			Help:      "Duration of registry operations.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"op"}),
	}

	reg.MustRegister(m.poolsCreated, m.poolCount, m.failures, m.opDuration)
	return m
}

// failureReason maps an operation error to a low-cardinality label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrNotAuthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, ErrPoolAlreadyCreated):
		return "already_created"
	case errors.Is(err, ErrPoolNotFound):
		return "pool_not_found"
	case errors.Is(err, ErrInvalidPoolAddress), errors.Is(err, ErrPoolAddressTaken):
		return "bad_pool_identity"
	default:
		return "backend"
	}
}
