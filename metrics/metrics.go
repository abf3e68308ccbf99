package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SalonMetrics counts rule outcomes and record writes.
type SalonMetrics interface {
	IncTreatmentRecorded(kind string)
	IncPriceMatch(outcome string)
	IncRetouchCheck(outcome string)
	IncImport(status string)
	AddImports(status string, n int)
	ObserveImportRows(n int)
}

type salonMetrics struct {
	treatmentsRecorded *prometheus.CounterVec
	priceMatches       *prometheus.CounterVec
	retouchChecks      *prometheus.CounterVec
	imports            *prometheus.CounterVec
	importRows         prometheus.Histogram
}

// New registers the salon metrics on registry.
func New(registry *prometheus.Registry) SalonMetrics {
	factory := promauto.With(registry)

	return &salonMetrics{
		treatmentsRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salon_treatments_recorded_total",
				Help: "Customer treatment rows written, by record kind",
			},
			[]string{"kind"},
		),
		priceMatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salon_price_matches_total",
				Help: "Price-to-treatment lookups, by outcome",
			},
			[]string{"outcome"},
		),
		retouchChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salon_retouch_checks_total",
				Help: "Retouch eligibility checks, by outcome",
			},
			[]string{"outcome"},
		),
		imports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salon_imports_total",
				Help: "Bulk import batches, by final status",
			},
			[]string{"status"},
		),
		importRows: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "salon_import_rows",
				Help:    "Rows per committed import batch",
				Buckets: prometheus.ExponentialBuckets(1, 4, 6), // 1 .. 1024
			},
		),
	}
}

func (m *salonMetrics) IncTreatmentRecorded(kind string) {
	m.treatmentsRecorded.WithLabelValues(kind).Inc()
}

func (m *salonMetrics) IncPriceMatch(outcome string) {
	m.priceMatches.WithLabelValues(outcome).Inc()
}

func (m *salonMetrics) IncRetouchCheck(outcome string) {
	m.retouchChecks.WithLabelValues(outcome).Inc()
}

func (m *salonMetrics) IncImport(status string) {
	m.imports.WithLabelValues(status).Inc()
}

func (m *salonMetrics) AddImports(status string, n int) {
	m.imports.WithLabelValues(status).Add(float64(n))
}

func (m *salonMetrics) ObserveImportRows(n int) {
	m.importRows.Observe(float64(n))
}

type noop struct{}

// Noop discards everything; used by tools and tests that expose no /metrics.
func Noop() SalonMetrics { return noop{} }

func (noop) IncTreatmentRecorded(string) {}
func (noop) IncPriceMatch(string)        {}
func (noop) IncRetouchCheck(string)      {}
func (noop) IncImport(string)            {}
func (noop) AddImports(string, int)      {}
func (noop) ObserveImportRows(int)       {}
