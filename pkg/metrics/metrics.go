package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "near_signer"

// Result labels for SignaturesTotal
const (
	ResultSuccess  = "success"
	ResultMismatch = "key_mismatch"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

// Metrics contains the Prometheus collectors of the signing service
type Metrics struct {
	SignaturesTotal *prometheus.CounterVec
	SigningDuration *prometheus.HistogramVec
	HTTPRequests    *prometheus.CounterVec
	RateLimited     prometheus.Counter
	AuthFailures    prometheus.Counter
}

// NewMetrics registers the collectors with registry, or the default registerer when nil
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		SignaturesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signatures_total",
				Help:      "Signing requests by artifact kind and result",
			},
			[]string{"kind", "result"},
		),
		SigningDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "signing_duration_seconds",
				Help:      "Time spent producing a signature, including the key backend",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"kind"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status code",
			},
			[]string{"path", "code"},
		),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}),
		AuthFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Requests rejected for a missing or invalid bearer token",
		}),
	}
}

// ObserveSignature records one signing attempt. A nil receiver is a no-op.
func (m *Metrics) ObserveSignature(kind, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SignaturesTotal.WithLabelValues(kind, result).Inc()
	if result == ResultSuccess {
		m.SigningDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) ObserveRequest(path string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(path, strconv.Itoa(code)).Inc()
}

func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

func (m *Metrics) IncAuthFailures() {
	if m == nil {
		return
	}
	m.AuthFailures.Inc()
}
