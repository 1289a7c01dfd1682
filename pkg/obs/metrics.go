package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus metric the build/query/serve paths
// record, named hybridann_*.
type Metrics struct {
	BuildsTotal    prometheus.Counter
	BuildDuration  prometheus.Histogram
	BuildFailures  prometheus.Counter

	QueriesTotal    *prometheus.CounterVec // labeled by kind
	QueryDuration   *prometheus.HistogramVec
	QueryErrors     *prometheus.CounterVec
	QueryResultSize prometheus.Histogram

	RangeWarningsTotal prometheus.Counter // overretrieval/exhaustive-fallback insufficient-range warnings

	IndexPoints        *prometheus.GaugeVec // by label ("*" for global)
	IndexKind          *prometheus.GaugeVec // 0=naive, 1=big, by label
	HierarchyLevels    prometheus.Gauge

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	GoroutinesCount prometheus.Gauge
}

// NewMetrics registers and returns the full metric set.
func NewMetrics() *Metrics {
	return &Metrics{
		BuildsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hybridann_builds_total",
			Help: "Total number of index build operations.",
		}),
		BuildDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "hybridann_build_duration_seconds",
			Help:    "Time to build the full dispatcher (all label indices + hierarchy + global index).",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300, 600},
		}),
		BuildFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hybridann_build_failures_total",
			Help: "Total number of build invariant violations.",
		}),

		QueriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hybridann_queries_total",
			Help: "Total number of queries answered, by kind.",
		}, []string{"kind"}),
		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hybridann_query_duration_seconds",
			Help:    "Query latency in seconds, by kind.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"kind"}),
		QueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hybridann_query_errors_total",
			Help: "Total number of rejected queries, by error type.",
		}, []string{"error_type"}),
		QueryResultSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "hybridann_query_result_size",
			Help:    "Number of non-zero result ids returned per query.",
			Buckets: []float64{1, 5, 10, 25, 50, 75, 90, 100},
		}),

		RangeWarningsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hybridann_range_warnings_total",
			Help: "Total number of insufficient-range warnings emitted by overretrieval or exhaustive fallback.",
		}),

		IndexPoints: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hybridann_index_points",
			Help: "Number of points owned by a categorical index, by label.",
		}, []string{"label"}),
		IndexKind: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hybridann_index_kind",
			Help: "Index kind selected for a label: 0=naive, 1=big.",
		}, []string{"label"}),
		HierarchyLevels: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "hybridann_hierarchy_levels",
			Help: "Number of levels built in the windowed range hierarchy.",
		}),

		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hybridann_http_requests_total",
			Help: "Total HTTP requests by route and status.",
		}, []string{"route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hybridann_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds by route.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"route"}),

		GoroutinesCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "hybridann_goroutines",
			Help: "Current number of goroutines.",
		}),
	}
}

// RecordBuild records one full dispatcher build.
func (m *Metrics) RecordBuild(duration time.Duration, failed bool) {
	m.BuildsTotal.Inc()
	m.BuildDuration.Observe(duration.Seconds())
	if failed {
		m.BuildFailures.Inc()
	}
}

// RecordQuery records one answered query.
func (m *Metrics) RecordQuery(kind string, duration time.Duration, resultSize int) {
	m.QueriesTotal.WithLabelValues(kind).Inc()
	m.QueryDuration.WithLabelValues(kind).Observe(duration.Seconds())
	m.QueryResultSize.Observe(float64(resultSize))
}

// RecordQueryError records a rejected query.
func (m *Metrics) RecordQueryError(errorType string) {
	m.QueryErrors.WithLabelValues(errorType).Inc()
}

// RecordRangeWarning records one insufficient-range warning.
func (m *Metrics) RecordRangeWarning() {
	m.RangeWarningsTotal.Inc()
}

// RecordHTTPRequest records one HTTP request/response.
func (m *Metrics) RecordHTTPRequest(route, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// UpdateGoroutineCount updates the goroutine gauge.
func (m *Metrics) UpdateGoroutineCount(count int) {
	m.GoroutinesCount.Set(float64(count))
}
