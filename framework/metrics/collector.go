// Package metrics exports container resolution metrics in Prometheus format.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-bootstrap/framework/container"
)

// Resolution outcomes.
const (
	OutcomeConstructed  = "constructed"
	OutcomeCached       = "cached"
	OutcomeUnregistered = "unregistered"
	OutcomeCycle        = "cycle"
	OutcomeError        = "error"
)

// Collector counts container resolutions on its own registry.
type Collector struct {
	registry    *prometheus.Registry
	Resolutions *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
}

// NewCollector returns a Collector whose registry also carries the Go
// runtime and process collectors.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		Resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "container_resolutions_total",
				Help: "Total number of container resolutions",
			},
			[]string{"key", "lifetime", "outcome"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "container_resolution_duration_seconds",
				Help:    "Time taken to resolve a service, including construction of its dependencies",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"lifetime"},
		),
	}
}

// Observe records ev. Pass it to Container.AfterResolving.
func (c *Collector) Observe(ev container.ResolveEvent) {
	outcome := Outcome(ev)
	lifetime := ev.Lifetime.String()
	var unreg *container.UnregisteredServiceError
	if errors.As(ev.Err, &unreg) && unreg.Key == ev.Key {
		lifetime = "none"
	}
	c.Resolutions.WithLabelValues(ev.Key.String(), lifetime, outcome).Inc()
	if ev.Err == nil {
		c.Duration.WithLabelValues(lifetime).Observe(ev.Duration.Seconds())
	}
}

// Outcome classifies a resolve event for the outcome label.
func Outcome(ev container.ResolveEvent) string {
	switch {
	case ev.Err == nil && ev.Cached:
		return OutcomeCached
	case ev.Err == nil:
		return OutcomeConstructed
	case errors.Is(ev.Err, container.ErrCircularDependency):
		return OutcomeCycle
	case errors.Is(ev.Err, container.ErrUnregisteredService):
		return OutcomeUnregistered
	default:
		return OutcomeError
	}
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
