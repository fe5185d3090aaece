package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the representation service.
type Metrics struct {
	registry              *prometheus.Registry
	requestsTotal         prometheus.Counter
	errorsTotal           prometheus.Counter
	activeTracks          prometheus.Gauge
	cyclesStartedTotal    prometheus.Counter
	cyclesCompletedTotal  prometheus.Counter
	cyclesFailedTotal     prometheus.Counter
	postponeDelay         prometheus.Histogram
	switchesTotal         *prometheus.CounterVec
	dvrSamplesTotal       *prometheus.CounterVec
	manifestUpdateLatency *prometheus.GaugeVec
}

// New creates and registers Prometheus metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dash_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dash_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		activeTracks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dash_active_tracks",
			Help: "Number of open track sessions",
		}),
		cyclesStartedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dash_update_cycles_started_total",
			Help: "Total number of representation update cycles started",
		}),
		cyclesCompletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dash_update_cycles_completed_total",
			Help: "Total number of update cycles closed successfully",
		}),
		cyclesFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dash_update_cycles_failed_total",
			Help: "Total number of update cycles that ended with an error",
		}),
		postponeDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dash_postpone_delay_seconds",
			Help:    "Delay of postponed update cycles",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
		}),
		switchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dash_representation_switches_total",
			Help: "Total number of recorded representation switches",
		}, []string{"media_type"}),
		dvrSamplesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dash_dvr_samples_total",
			Help: "Total number of recorded DVR window samples",
		}, []string{"media_type"}),
		manifestUpdateLatency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dash_manifest_update_latency_seconds",
			Help: "Distance between the selected representation's availability end and the playback position at the last cycle close",
		}, []string{"media_type"}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.activeTracks,
		m.cyclesStartedTotal,
		m.cyclesCompletedTotal,
		m.cyclesFailedTotal,
		m.postponeDelay,
		m.switchesTotal,
		m.dvrSamplesTotal,
		m.manifestUpdateLatency,
	)

	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// SetActiveTracks sets the active tracks gauge.
func (m *Metrics) SetActiveTracks(n int) {
	m.activeTracks.Set(float64(n))
}

func (m *Metrics) IncCyclesStarted() {
	m.cyclesStartedTotal.Inc()
}

func (m *Metrics) IncCyclesCompleted() {
	m.cyclesCompletedTotal.Inc()
}

func (m *Metrics) IncCyclesFailed() {
	m.cyclesFailedTotal.Inc()
}

// ObservePostponeDelay records the delay of a postponed cycle.
func (m *Metrics) ObservePostponeDelay(d time.Duration) {
	m.postponeDelay.Observe(d.Seconds())
}

// IncRepresentationSwitches counts a switch for mediaType.
func (m *Metrics) IncRepresentationSwitches(mediaType string) {
	m.switchesTotal.WithLabelValues(mediaType).Inc()
}

// IncDVRSamples counts a DVR sample for mediaType.
func (m *Metrics) IncDVRSamples(mediaType string) {
	m.dvrSamplesTotal.WithLabelValues(mediaType).Inc()
}

// SetManifestUpdateLatency sets the last latency of mediaType.
func (m *Metrics) SetManifestUpdateLatency(mediaType string, seconds float64) {
	m.manifestUpdateLatency.WithLabelValues(mediaType).Set(seconds)
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. active tracks).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
