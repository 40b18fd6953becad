// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sartorproj/stockcast/ensemble"
)

// Metrics holds all collectors, registered on their own registry.
type Metrics struct {
	Registry *prometheus.Registry

	FitFailures     *prometheus.CounterVec
	FamiliesScored  *prometheus.CounterVec
	Rejections      *prometheus.CounterVec
	Selections      *prometheus.CounterVec
	Fallbacks       prometheus.Counter
	Forecasts       *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics, plus the Go runtime and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		FitFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_fit_failures_total",
				Help: "Model configurations that failed to fit",
			},
			[]string{"family"},
		),
		FamiliesScored: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_families_scored_total",
				Help: "Model families that produced a candidate",
			},
			[]string{"family"},
		),
		Rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_plausibility_rejections_total",
				Help: "Candidates rejected by the plausibility scan",
			},
			[]string{"family"},
		),
		Selections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_selections_total",
				Help: "Forecasts served per selected model family",
			},
			[]string{"family"},
		),
		Fallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "stockcast_fallbacks_total",
			Help: "Forecasts served by the naive fallback",
		}),
		Forecasts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_forecasts_total",
				Help: "Forecast requests by outcome",
			},
			[]string{"outcome"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockcast_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
}

// Observer counts ensemble events.
func (m *Metrics) Observer() ensemble.Observer {
	return func(e ensemble.Event) {
		family := string(e.Family)
		switch e.Kind {
		case ensemble.EventConfigFailed:
			m.FitFailures.WithLabelValues(family).Inc()
		case ensemble.EventScored:
			m.FamiliesScored.WithLabelValues(family).Inc()
		case ensemble.EventRejected:
			m.Rejections.WithLabelValues(family).Inc()
		case ensemble.EventSelected:
			m.Selections.WithLabelValues(family).Inc()
		case ensemble.EventFallback:
			m.Fallbacks.Inc()
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
