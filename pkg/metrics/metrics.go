// Package metrics holds the Prometheus instrumentation for JWS signing,
// verification and JWK set fetching.
//
// A nil *Metrics is valid and records nothing, so instrumented packages
// work unchanged when no metrics are configured.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds Prometheus metrics for JOSE operations.
type Metrics struct {
	signTotal      *prometheus.CounterVec
	signDuration   *prometheus.HistogramVec
	verifyTotal    *prometheus.CounterVec
	verifyDuration *prometheus.HistogramVec
	jwksFetchTotal *prometheus.CounterVec
	registry       *prometheus.Registry
}

// New creates a new Metrics instance registered on its own registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "jose"
	}

	buckets := []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.signTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jws",
			Name:      "sign_total",
			Help:      "Total number of JWS signing attempts",
		},
		[]string{"algorithm", "status"},
	)

	m.signDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jws",
			Name:      "sign_duration_seconds",
			Help:      "JWS signing duration in seconds",
			Buckets:   buckets,
		},
		[]string{"algorithm", "status"},
	)

	m.verifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jws",
			Name:      "verify_total",
			Help:      "Total number of JWS verification attempts",
		},
		[]string{"algorithm", "status"},
	)

	m.verifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jws",
			Name:      "verify_duration_seconds",
			Help:      "JWS verification duration in seconds",
			Buckets:   buckets,
		},
		[]string{"algorithm", "status"},
	)

	m.jwksFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jwks",
			Name:      "fetch_total",
			Help:      "Total number of JWK set fetch attempts",
		},
		[]string{"status"},
	)

	m.registry.MustRegister(m.collectors()...)

	return m
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.signTotal,
		m.signDuration,
		m.verifyTotal,
		m.verifyDuration,
		m.jwksFetchTotal,
	}
}

// RecordSign records a signing attempt.
func (m *Metrics) RecordSign(algorithm string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := statusOf(err)
	m.signTotal.WithLabelValues(algorithm, status).Inc()
	m.signDuration.WithLabelValues(algorithm, status).Observe(duration.Seconds())
}

// RecordVerify records a verification attempt.
func (m *Metrics) RecordVerify(algorithm string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := statusOf(err)
	m.verifyTotal.WithLabelValues(algorithm, status).Inc()
	m.verifyDuration.WithLabelValues(algorithm, status).Observe(duration.Seconds())
}

// RecordJWKSFetch records a JWK set fetch attempt.
func (m *Metrics) RecordJWKSFetch(err error) {
	if m == nil {
		return
	}
	m.jwksFetchTotal.WithLabelValues(statusOf(err)).Inc()
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Register registers the metrics with the given registerer. Collectors
// that are already registered are skipped.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func statusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
