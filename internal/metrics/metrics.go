// Package metrics records signing outcomes in a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forestrie/go-blobsign/signer"
)

// Metrics implements signer.Observer and serves its registry over HTTP.
type Metrics struct {
	reg      *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var _ signer.Observer = (*Metrics)(nil)

// New creates a Metrics instance with a fresh registry and registers collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blobsign",
		Subsystem: "sign",
		Name:      "requests_total",
		Help:      "Total number of signing calls, partitioned by provider, operation and result.",
	}, []string{"provider", "operation", "result"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blobsign",
		Subsystem: "sign",
		Name:      "duration_seconds",
		Help:      "Histogram of signing call latencies.",
		Buckets:   []float64{.00001, .00005, .0001, .00025, .0005, .001, .0025, .005, .01},
	}, []string{"provider", "operation"})

	reg.MustRegister(requests, latency)

	return &Metrics{
		reg:      reg,
		requests: requests,
		latency:  latency,
	}
}

// ObserveSign implements signer.Observer. result is signer.ErrorKind(err).
func (m *Metrics) ObserveSign(provider signer.ProviderID, kind signer.OperationKind, elapsed time.Duration, err error) {
	op := kind.String()
	m.requests.WithLabelValues(string(provider), op, signer.ErrorKind(err)).Inc()
	m.latency.WithLabelValues(string(provider), op).Observe(elapsed.Seconds())
}

// Handler returns an http.Handler that serves Prometheus metrics using the internal registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}
