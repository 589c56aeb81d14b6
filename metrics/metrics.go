// Package metrics exports Prometheus metrics for extractions, the
// response cache and browser sessions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/shelfscan/models"
)

// Namespace prefixes every metric name.
const Namespace = "shelfscan"

// Metrics holds the service's collectors. A nil *Metrics records nothing.
type Metrics struct {
	reg *prometheus.Registry

	ExtractionsTotal   *prometheus.CounterVec
	ExtractionDuration *prometheus.HistogramVec
	FieldsFilled       prometheus.Histogram
	CacheLookups       *prometheus.CounterVec
	BatchJobs          *prometheus.CounterVec
}

// New registers the collectors on a fresh registry along with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	m := &Metrics{reg: reg}

	m.ExtractionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "extractions_total",
			Help:      "Extractions by fetch mode and outcome (success or error code)",
		},
		[]string{"mode", "outcome"},
	)

	m.ExtractionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "extraction_duration_seconds",
			Help:      "End-to-end extraction time",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s to ~2min
		},
		[]string{"mode"},
	)

	m.FieldsFilled = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "fields_filled",
			Help:      "Record fields moved off their sentinel per successful extraction",
			Buckets:   prometheus.LinearBuckets(0, 1, 6),
		},
	)

	m.CacheLookups = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result",
		},
		[]string{"result"},
	)

	m.BatchJobs = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "batch_jobs_total",
			Help:      "Finished batch jobs by final status",
		},
		[]string{"status"},
	)

	return m
}

// WatchBrowser exports rendered-session usage as gauges read on scrape.
func (m *Metrics) WatchBrowser(stats func() models.BrowserStats) {
	if m == nil {
		return
	}
	factory := promauto.With(m.reg)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "browser_sessions_active",
		Help:      "Rendered browser sessions currently open",
	}, func() float64 { return float64(stats().ActiveSessions) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "browser_sessions_max",
		Help:      "Cap on concurrent rendered browser sessions",
	}, func() float64 { return float64(stats().MaxSessions) })
}

// ObserveExtraction records one finished extraction.
func (m *Metrics) ObserveExtraction(resp *models.ScrapeResponse, took time.Duration) {
	if m == nil {
		return
	}
	mode := resp.FetchMode
	if mode == "" {
		mode = "none"
	}
	outcome := "success"
	if !resp.Success && resp.Error != nil {
		outcome = resp.Error.Code
	}
	m.ExtractionsTotal.WithLabelValues(mode, outcome).Inc()
	m.ExtractionDuration.WithLabelValues(mode).Observe(took.Seconds())
	if resp.Success && resp.Data != nil {
		m.FieldsFilled.Observe(float64(resp.Data.FilledFields()))
	}
}

// ObserveCache records a cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

// ObserveBatch records a finished batch job.
func (m *Metrics) ObserveBatch(status string) {
	if m == nil {
		return
	}
	m.BatchJobs.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
