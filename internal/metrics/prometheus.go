package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the import engine.
type Metrics struct {
	registry *prometheus.Registry

	// Import metrics
	ImportsTotal   *prometheus.CounterVec
	ImportDuration prometheus.Histogram
	RowsWritten    *prometheus.CounterVec

	// Index allocation metrics
	IndicesReused *prometheus.CounterVec
	IndicesMinted *prometheus.CounterVec

	// Populate run metrics
	PopulateRuns     *prometheus.CounterVec
	PopulateProgress prometheus.Gauge
	DescriptorsKnown prometheus.Gauge
}

// New creates the collectors on a dedicated registry so several instances
// can coexist in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ImportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jurismap_imports_total",
				Help: "Top-level jurisdiction imports by result",
			},
			[]string{"result"},
		),

		ImportDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "jurismap_import_duration_seconds",
				Help:    "Duration of one top-level jurisdiction import",
				Buckets: prometheus.DefBuckets,
			},
		),

		RowsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jurismap_rows_written_total",
				Help: "Rows inserted by the importer",
			},
			[]string{"table"},
		),

		IndicesReused: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jurismap_indices_reused_total",
				Help: "Indices taken from holes left by purged rows",
			},
			[]string{"kind"},
		),

		IndicesMinted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jurismap_indices_minted_total",
				Help: "Indices allocated past the highest known index",
			},
			[]string{"kind"},
		),

		PopulateRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jurismap_populate_runs_total",
				Help: "Populate runs by result",
			},
			[]string{"result"},
		),

		PopulateProgress: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "jurismap_populate_progress_percent",
				Help: "Progress of the running populate pass",
			},
		),

		DescriptorsKnown: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "jurismap_descriptors",
				Help: "Descriptor files found by the last scan",
			},
		),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveImport(result string, d time.Duration) {
	m.ImportsTotal.WithLabelValues(result).Inc()
	m.ImportDuration.Observe(d.Seconds())
}

// ProgressSink mirrors progress updates into the populate gauge.
type ProgressSink struct {
	Metrics *Metrics
}

func (s ProgressSink) Begin(string)       { s.Metrics.PopulateProgress.Set(0) }
func (s ProgressSink) Update(percent int) { s.Metrics.PopulateProgress.Set(float64(percent)) }
func (s ProgressSink) End()               { s.Metrics.PopulateProgress.Set(100) }
