// Package prommetrics implements knn.MetricsCollector on Prometheus.
package prommetrics

import (
	"time"

	"github.com/hupe1980/knn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var _ knn.MetricsCollector = (*Collector)(nil)

// Collector exports search metrics.
type Collector struct {
	// SearchesTotal counts search calls by engine and outcome.
	SearchesTotal *prometheus.CounterVec
	// SearchDuration observes call latency by engine.
	SearchDuration *prometheus.HistogramVec
	// QueriesTotal counts query points searched by engine.
	QueriesTotal *prometheus.CounterVec
	// StageDuration observes pipeline stage latency.
	StageDuration *prometheus.HistogramVec
	// AllocatedBytesTotal counts working memory obtained by searches.
	AllocatedBytesTotal prometheus.Counter
	// AllocationFailuresTotal counts searches rejected for lack of memory.
	AllocationFailuresTotal prometheus.Counter
}

// New creates a Collector and registers it with reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collector{
		SearchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "knn_searches_total",
				Help: "Total number of k-NN search calls",
			},
			[]string{"engine", "status"}, // "pipeline", "sequential" | "ok", "error"
		),
		SearchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "knn_search_duration_seconds",
				Help:    "Latency of k-NN search calls",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 12),
			},
			[]string{"engine"},
		),
		QueriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "knn_queries_total",
				Help: "Total number of query points searched",
			},
			[]string{"engine"},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "knn_stage_duration_seconds",
				Help:    "Latency of individual pipeline stages",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 12),
			},
			[]string{"stage"},
		),
		AllocatedBytesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "knn_allocated_bytes_total",
				Help: "Total working memory obtained by searches",
			},
		),
		AllocationFailuresTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "knn_allocation_failures_total",
				Help: "Total number of searches that could not obtain working memory",
			},
		),
	}
}

// RecordSearch implements knn.MetricsCollector.
func (c *Collector) RecordSearch(engine string, k, queries int, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.SearchesTotal.WithLabelValues(engine, status).Inc()
	c.SearchDuration.WithLabelValues(engine).Observe(duration.Seconds())
	c.QueriesTotal.WithLabelValues(engine).Add(float64(queries))
}

// RecordStage implements knn.MetricsCollector.
func (c *Collector) RecordStage(stage string, duration time.Duration) {
	c.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordAllocation implements knn.MetricsCollector.
func (c *Collector) RecordAllocation(bytes int64, err error) {
	if err != nil {
		c.AllocationFailuresTotal.Inc()
		return
	}
	c.AllocatedBytesTotal.Add(float64(bytes))
}
