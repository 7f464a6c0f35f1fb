// Package metrics defines the router's Prometheus instrumentation. Every
// metric is registered against a registry the caller supplies rather than
// prometheus.DefaultRegisterer, so embedding this router in a larger
// process never contends over the global registry the way the health-check
// gauges it's grounded on do. All instrumentation here is purely
// observational: nothing in the router reads these back to make decisions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds every metric the router records.
type Collector struct {
	scheduleTotal    *prometheus.CounterVec
	scheduleDuration *prometheus.HistogramVec
	attemptsTotal    *prometheus.CounterVec
	cooldownsTotal   *prometheus.CounterVec
	providerHealthy  *prometheus.GaugeVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
}

// New creates a Collector and registers its metrics against reg.
func New(namespace string, reg prometheus.Registerer) *Collector {
	c := &Collector{
		scheduleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_total",
			Help:      "Total provider scheduling decisions, by strategy and outcome.",
		}, []string{"strategy", "outcome"}),

		scheduleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "schedule_duration_seconds",
			Help:      "End-to-end time spent routing one request, including retries.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"model_group"}),

		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Total provider call attempts, by provider and result.",
		}, []string{"provider_id", "result"}),

		cooldownsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cooldowns_total",
			Help:      "Total times a provider entered cooldown, by error code.",
		}, []string{"provider_id", "code"}),

		providerHealthy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_healthy",
			Help:      "1 if the provider is not currently in cooldown, else 0.",
		}, []string{"provider_id"}),

		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total cache hits, by cache name.",
		}, []string{"cache"}),

		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total cache misses, by cache name.",
		}, []string{"cache"}),
	}

	reg.MustRegister(
		c.scheduleTotal,
		c.scheduleDuration,
		c.attemptsTotal,
		c.cooldownsTotal,
		c.providerHealthy,
		c.cacheHits,
		c.cacheMisses,
	)
	return c
}

func (c *Collector) RecordSchedule(strategy, outcome, modelGroup string, duration time.Duration) {
	c.scheduleTotal.WithLabelValues(strategy, outcome).Inc()
	c.scheduleDuration.WithLabelValues(modelGroup).Observe(duration.Seconds())
}

func (c *Collector) RecordAttempt(providerID, result string) {
	c.attemptsTotal.WithLabelValues(providerID, result).Inc()
}

func (c *Collector) RecordCooldown(providerID, code string) {
	c.cooldownsTotal.WithLabelValues(providerID, code).Inc()
}

func (c *Collector) SetProviderHealthy(providerID string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	c.providerHealthy.WithLabelValues(providerID).Set(v)
}

func (c *Collector) RecordCacheHit(cache string)  { c.cacheHits.WithLabelValues(cache).Inc() }
func (c *Collector) RecordCacheMiss(cache string) { c.cacheMisses.WithLabelValues(cache).Inc() }
