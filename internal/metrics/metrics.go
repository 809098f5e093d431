// Package metrics holds the prometheus collectors of the assessment engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "skillcheck"

// Metrics owns its registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	SessionsStarted   prometheus.Counter
	SessionsResumed   prometheus.Counter
	SessionsFinalized *prometheus.CounterVec
	Violations        prometheus.Counter
	CacheFallbacks    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Assessment sessions created",
		}),
		SessionsResumed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "resumed_total",
			Help:      "Start calls that resumed an active session",
		}),
		SessionsFinalized: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "finalized_total",
			Help:      "Terminal transitions by submission mode and result",
		}, []string{"mode", "result"}),
		Violations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "violations_total",
			Help:      "Tab switch violations recorded",
		}),
		CacheFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "fallbacks_total",
			Help:      "Session store operations served by the in-process fallback",
		}, []string{"op"}),
	}
}

// CacheFallback satisfies cache.FallbackObserver.
func (m *Metrics) CacheFallback(op string) {
	m.CacheFallbacks.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveFinalized(autoSubmit, passed bool) {
	mode := "manual"
	if autoSubmit {
		mode = "auto"
	}
	result := "fail"
	if passed {
		result = "pass"
	}
	m.SessionsFinalized.WithLabelValues(mode, result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
