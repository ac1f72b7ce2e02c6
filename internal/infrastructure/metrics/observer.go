// Package metrics exports registry outcomes as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kilometers.ai/standin/internal/core/component"
	"kilometers.ai/standin/internal/core/redirect"
)

const namespace = "standin"

// Observer is a redirect.Observer backed by its own Prometheus registry
type Observer struct {
	registry *prometheus.Registry

	bindings   prometheus.Gauge
	bound      *prometheus.CounterVec
	rewritten  *prometheus.CounterVec
	notHandled *prometheus.CounterVec
}

var _ redirect.Observer = (*Observer)(nil)

// NewObserver creates the observer and registers its collectors, plus the Go
// runtime and process collectors when withRuntime is set
func NewObserver(withRuntime bool) *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		bindings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bindings",
			Help:      "Number of logical components bound to a placeholder",
		}),
		bound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bound_total",
			Help:      "Logical components bound, by placeholder",
		}, []string{"physical"}),
		rewritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewritten_total",
			Help:      "Launch requests redirected to a placeholder",
		}, []string{"entry"}),
		notHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "not_handled_total",
			Help:      "Launch requests left to default platform handling",
		}, []string{"entry", "reason"}),
	}

	o.registry.MustRegister(o.bindings, o.bound, o.rewritten, o.notHandled)
	if withRuntime {
		o.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return o
}

func (o *Observer) Bound(_, physical component.Name) {
	o.bindings.Inc()
	o.bound.WithLabelValues(physical.String()).Inc()
}

func (o *Observer) Rewritten(entry redirect.Entry, _, _ component.Name) {
	o.rewritten.WithLabelValues(string(entry)).Inc()
}

func (o *Observer) NotHandled(entry redirect.Entry, reason redirect.Reason) {
	o.notHandled.WithLabelValues(string(entry), string(reason)).Inc()
}

// Registry returns the underlying Prometheus registry
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

// Handler serves the registry in the Prometheus exposition format
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
