package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the ride counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	ridesStarted    prometheus.Counter
	ridesFinished   prometheus.Counter
	samplesAccepted prometheus.Counter
	overspeedEdges  prometheus.Counter
	locationErrors  prometheus.Counter
	coachFallbacks  *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ridesStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ridermate_rides_started_total",
			Help: "Rides started",
		}),
		ridesFinished: factory.NewCounter(prometheus.CounterOpts{
			Name: "ridermate_rides_finished_total",
			Help: "Rides finalized and persisted",
		}),
		samplesAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ridermate_location_samples_total",
			Help: "Location samples applied to an active ride",
		}),
		overspeedEdges: factory.NewCounter(prometheus.CounterOpts{
			Name: "ridermate_overspeed_events_total",
			Help: "Transitions into the overspeed state",
		}),
		locationErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "ridermate_location_errors_total",
			Help: "Location source errors reported by clients",
		}),
		coachFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ridermate_coach_fallbacks_total",
			Help: "Coach replies replaced by a fallback message",
		}, []string{"operation"}),
	}
}

func (m *Metrics) RideStarted() {
	if m != nil {
		m.ridesStarted.Inc()
	}
}

func (m *Metrics) RideFinished() {
	if m != nil {
		m.ridesFinished.Inc()
	}
}

func (m *Metrics) SampleAccepted() {
	if m != nil {
		m.samplesAccepted.Inc()
	}
}

func (m *Metrics) OverspeedEdge() {
	if m != nil {
		m.overspeedEdges.Inc()
	}
}

func (m *Metrics) LocationError() {
	if m != nil {
		m.locationErrors.Inc()
	}
}

func (m *Metrics) CoachFallback(operation string) {
	if m != nil {
		m.coachFallbacks.WithLabelValues(operation).Inc()
	}
}

// Handler exposes the private registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
