// Package metrics exposes Prometheus collectors for page loads.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gallery"

// Collector records engine activity
type Collector struct {
	pages    *prometheus.CounterVec
	failures *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	latency  prometheus.Histogram
}

// NewCollector creates the collectors and registers them with reg.
// A nil registerer leaves them unregistered.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_loaded_total",
			Help:      "Records returned by successful page loads, by store.",
		}, []string{"store"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_failures_total",
			Help:      "Page loads that failed, by failure kind.",
		}, []string{"kind"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Store rows rejected during normalization, by store.",
		}, []string{"store"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_load_seconds",
			Help:      "Time spent loading one page.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	if reg != nil {
		reg.MustRegister(c.pages, c.failures, c.skipped, c.latency)
	}
	return c
}

// ObserveRecords counts records returned from store
func (c *Collector) ObserveRecords(store string, n int) {
	if n > 0 {
		c.pages.WithLabelValues(store).Add(float64(n))
	}
}

// ObserveSkipped counts rejected rows from store
func (c *Collector) ObserveSkipped(store string, n int) {
	if n > 0 {
		c.skipped.WithLabelValues(store).Add(float64(n))
	}
}

// ObserveFailure counts a failed load
func (c *Collector) ObserveFailure(kind string) {
	c.failures.WithLabelValues(kind).Inc()
}

// ObserveLatency records how long a load took
func (c *Collector) ObserveLatency(d time.Duration) {
	c.latency.Observe(d.Seconds())
}
