// Package metrics exports source resolution and fetch telemetry to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Resolution outcomes
const (
	OutcomeInternal = "internal"
	OutcomeExternal = "external"
	OutcomeExcluded = "excluded"
)

// Observer captures telemetry for source resolution and fetches.
type Observer interface {
	RecordResolution(source, outcome string)
	RecordFetch(source string, duration time.Duration, sizeBytes int, err error)
}

// PrometheusObserver exports resolver metrics to Prometheus.
type PrometheusObserver struct {
	resolutions   *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	fetchErrors   *prometheus.CounterVec
	fetchBytes    *prometheus.CounterVec
}

// NewPrometheusObserver registers resolution and fetch metrics.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "imgdispatch"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	observer := &PrometheusObserver{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_resolutions_total",
			Help:      "Source resolutions by effective source and outcome.",
		}, []string{"source", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Latency of source fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Count of failed source fetches.",
		}, []string{"source"}),
		fetchBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetched_bytes_total",
			Help:      "Cumulative payload size fetched from sources.",
		}, []string{"source"}),
	}
	var err error
	if observer.resolutions, err = register(reg, observer.resolutions); err != nil {
		return nil, err
	}
	if observer.fetchDuration, err = register(reg, observer.fetchDuration); err != nil {
		return nil, err
	}
	if observer.fetchErrors, err = register(reg, observer.fetchErrors); err != nil {
		return nil, err
	}
	if observer.fetchBytes, err = register(reg, observer.fetchBytes); err != nil {
		return nil, err
	}
	return observer, nil
}

// register adds c to reg, reusing the collector already registered under the
// same descriptor.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register resolver metric: %w", err)
	}
	return c, nil
}

// RecordResolution counts one resolved request.
func (o *PrometheusObserver) RecordResolution(source, outcome string) {
	if o == nil {
		return
	}
	o.resolutions.WithLabelValues(source, outcome).Inc()
}

// RecordFetch tracks fetch duration, size, and failures.
func (o *PrometheusObserver) RecordFetch(source string, duration time.Duration, sizeBytes int, err error) {
	if o == nil {
		return
	}
	o.fetchDuration.WithLabelValues(source).Observe(duration.Seconds())
	if err != nil {
		o.fetchErrors.WithLabelValues(source).Inc()
		return
	}
	o.fetchBytes.WithLabelValues(source).Add(float64(sizeBytes))
}

// Nop discards all telemetry.
type Nop struct{}

func (Nop) RecordResolution(string, string) {}

func (Nop) RecordFetch(string, time.Duration, int, error) {}
