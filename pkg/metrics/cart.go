package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records cart mutation and quote metadata.
type CartMetrics struct {
	duration     *prometheus.HistogramVec
	failure      *prometheus.CounterVec
	itemsRemoved prometheus.Counter
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_op_duration_seconds",
		Help:    "Duration of cart operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_op_failure",
		Help: "Failed cart operations.",
	}, []string{"op"})
	itemsRemoved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_reconcile_items_removed",
		Help: "Cart items removed by availability reconciliation.",
	})
	reg.MustRegister(duration, failure, itemsRemoved)
	return &CartMetrics{
		duration:     duration,
		failure:      failure,
		itemsRemoved: itemsRemoved,
	}
}

// ObserveDuration records the duration of the named operation.
func (c *CartMetrics) ObserveDuration(op string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncFailure increments the failure counter for the named operation.
func (c *CartMetrics) IncFailure(op string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(op)).Inc()
}

// AddItemsRemoved counts items pruned during reconciliation.
func (c *CartMetrics) AddItemsRemoved(n int) {
	if c == nil || c.itemsRemoved == nil || n <= 0 {
		return
	}
	c.itemsRemoved.Add(float64(n))
}

func normalizeLabel(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}
