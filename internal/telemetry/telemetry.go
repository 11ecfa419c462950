// Package telemetry exposes Prometheus counters for ledger activity and a
// latency histogram for HTTP routes.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry
	logged   prometheus.Counter
	resets   prometheus.Counter
	rejected *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewRecorder registers the collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		logged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hp_expenses_logged_total",
			Help: "Expenses recorded.",
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hp_resets_total",
			Help: "Ledger resets.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hp_rejected_inputs_total",
			Help: "Inputs rejected by validation, by field.",
		}, []string{"field"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hp_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "code"}),
	}
	reg.MustRegister(r.logged, r.resets, r.rejected, r.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return r
}

func (r *Recorder) ExpenseLogged() {
	if r != nil {
		r.logged.Inc()
	}
}

func (r *Recorder) Reset() {
	if r != nil {
		r.resets.Inc()
	}
}

func (r *Recorder) Rejected(field string) {
	if r != nil {
		r.rejected.WithLabelValues(field).Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Instrument times next under the given route label. The status code label
// is filled in by promhttp.
func (r *Recorder) Instrument(route string, next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return promhttp.InstrumentHandlerDuration(r.latency.MustCurryWith(prometheus.Labels{"route": route}), next)
}
