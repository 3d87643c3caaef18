package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ImportRows       *prometheus.CounterVec
	ImportBatches    *prometheus.CounterVec
	ImportDuration   *prometheus.HistogramVec
	Exports          *prometheus.CounterVec
	EditsPending     prometheus.Gauge
	EditFlushes      *prometheus.CounterVec
	LockEvents       *prometheus.CounterVec
	Notifications    *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	RateLimitRejects prometheus.Counter
}

// New registers every collector on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ImportRows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "the300_import_rows_total",
			Help: "Roster rows committed by CSV imports",
		}, []string{"mode"}),
		ImportBatches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "the300_import_batches_total",
			Help: "Import batches by outcome",
		}, []string{"result"}),
		ImportDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "the300_import_duration_seconds",
			Help:    "Wall time of a whole import or restore",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
		Exports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "the300_exports_total",
			Help: "CSV exports served by kind",
		}, []string{"kind"}),
		EditsPending: f.NewGauge(prometheus.GaugeOpts{
			Name: "the300_selection_edits_pending",
			Help: "Selection edits waiting in the buffer",
		}),
		EditFlushes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "the300_selection_flushes_total",
			Help: "Edit buffer flushes by outcome",
		}, []string{"result"}),
		LockEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "the300_lob_lock_changes_total",
			Help: "LOB lock flag changes",
		}, []string{"state"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "the300_lock_notifications_total",
			Help: "Lock notifications by outcome",
		}, []string{"result"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "the300_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "the300_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RateLimitRejects: f.NewCounter(prometheus.CounterOpts{
			Name: "the300_upload_rate_limited_total",
			Help: "Uploads rejected by the rate limiter",
		}),
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveBatch(committed bool, rows int, mode string) {
	if m == nil {
		return
	}
	if committed {
		m.ImportBatches.WithLabelValues("committed").Inc()
		m.ImportRows.WithLabelValues(mode).Add(float64(rows))
		return
	}
	m.ImportBatches.WithLabelValues("failed").Inc()
}

func (m *Metrics) ObserveImport(mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.ImportDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (m *Metrics) IncExport(kind string) {
	if m == nil {
		return
	}
	m.Exports.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetEditsPending(n int) {
	if m == nil {
		return
	}
	m.EditsPending.Set(float64(n))
}

func (m *Metrics) IncFlush(ok bool) {
	if m == nil {
		return
	}
	m.EditFlushes.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) IncLock(locked bool) {
	if m == nil {
		return
	}
	state := "unlocked"
	if locked {
		state = "locked"
	}
	m.LockEvents.WithLabelValues(state).Inc()
}

func (m *Metrics) IncNotification(ok bool) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.RateLimitRejects.Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}
