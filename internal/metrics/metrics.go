// Package metrics exposes crawl results to prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "partwatch"

type Metrics struct {
	registry *prometheus.Registry

	productsTotal *prometheus.CounterVec
	pagesTotal    *prometheus.CounterVec
	truncated     *prometheus.CounterVec
	categoryFails *prometheus.CounterVec
	runSuccess    prometheus.Gauge
	lastRunTS     prometheus.Gauge
	runDuration   prometheus.Summary
}

// New creates the metrics on their own registry, along with the go runtime collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.productsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "products_total",
		Help:      "Number of products extracted by category",
	}, []string{"category"})
	m.pagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pages_total",
		Help:      "Number of listing pages crawled by category",
	}, []string{"category"})
	m.truncated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "truncated_crawls_total",
		Help:      "Number of category crawls that hit the page ceiling",
	}, []string{"category"})
	m.categoryFails = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "category_failures_total",
		Help:      "Number of category crawls stopped by a network error",
	}, []string{"category"})
	m.runSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "run_success",
		Help:      "1 if the last run stored a snapshot, 0 otherwise",
	})
	m.lastRunTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix timestamp of the last run",
	})
	m.runDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Time spent on a whole run",
	})

	m.registry.MustRegister(
		m.productsTotal, m.pagesTotal, m.truncated, m.categoryFails,
		m.runSuccess, m.lastRunTS, m.runDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Category records the outcome of one category crawl.
func (m *Metrics) Category(category string, products, pages int, truncated, failed bool) {
	m.productsTotal.WithLabelValues(category).Add(float64(products))
	m.pagesTotal.WithLabelValues(category).Add(float64(pages))
	if truncated {
		m.truncated.WithLabelValues(category).Inc()
	}
	if failed {
		m.categoryFails.WithLabelValues(category).Inc()
	}
}

// Run records the outcome of a whole run.
func (m *Metrics) Run(at time.Time, took time.Duration, ok bool) {
	m.lastRunTS.Set(float64(at.Unix()))
	m.runDuration.Observe(took.Seconds())
	if ok {
		m.runSuccess.Set(1)
		return
	}
	m.runSuccess.Set(0)
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
