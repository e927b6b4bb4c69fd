// Package metrics exports upload and static file counters to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "venue"

// Result labels.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
	ResultInvalid  = "invalid"
	ResultMissing  = "missing"
)

// Metrics holds the collectors for one registry. A nil *Metrics records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	uploads        *prometheus.CounterVec
	uploadDuration *prometheus.HistogramVec
	uploadBytes    *prometheus.CounterVec
	served         *prometheus.CounterVec
}

// New creates the collectors on a private registry, together with the Go and process collectors.
func New() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Uploads handled, by media kind, backend and result.",
		}, []string{"kind", "backend", "result"}),
		uploadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Time spent storing an upload.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "backend"}),
		uploadBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Payload bytes successfully stored.",
		}, []string{"kind", "backend"}),
		served: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "served_files_total",
			Help:      "Local files requested through the uploads route, by result.",
		}, []string{"result"}),
	}

	collectors := []prometheus.Collector{
		m.uploads,
		m.uploadDuration,
		m.uploadBytes,
		m.served,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	return m, nil
}

// RecordUpload tracks one upload attempt. backend is empty when the request never reached a store.
func (m *Metrics) RecordUpload(kind, backend, result string, duration time.Duration, size int) {
	if m == nil {
		return
	}
	if backend == "" {
		backend = "none"
	}
	m.uploads.WithLabelValues(kind, backend, result).Inc()
	if result != ResultOK {
		return
	}
	m.uploadDuration.WithLabelValues(kind, backend).Observe(duration.Seconds())
	m.uploadBytes.WithLabelValues(kind, backend).Add(float64(size))
}

func (m *Metrics) RecordServed(result string) {
	if m == nil {
		return
	}
	m.served.WithLabelValues(result).Inc()
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
