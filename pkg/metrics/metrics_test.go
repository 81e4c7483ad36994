package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Metrics(t *testing.T) {
	t.Run("Should count signatures by kind and result", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())

		m.ObserveSignature("transaction", ResultSuccess, 2*time.Millisecond)
		m.ObserveSignature("transaction", ResultSuccess, 3*time.Millisecond)
		m.ObserveSignature("delegate", ResultMismatch, time.Millisecond)

		assert.Equal(t, 2.0, testutil.ToFloat64(m.SignaturesTotal.WithLabelValues("transaction", ResultSuccess)))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.SignaturesTotal.WithLabelValues("delegate", ResultMismatch)))
		// only successes are timed
		assert.Equal(t, 1, testutil.CollectAndCount(m.SigningDuration))
	})

	t.Run("Should count requests by path and code", func(t *testing.T) {
		m := NewMetrics(prometheus.NewRegistry())

		m.ObserveRequest("/sign/transaction", 200)
		m.ObserveRequest("/sign/transaction", 409)
		m.IncRateLimited()
		m.IncAuthFailures()

		assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/sign/transaction", "409")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthFailures))
	})

	t.Run("Should refuse double registration on one registry", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		NewMetrics(reg)
		require.Panics(t, func() { NewMetrics(reg) })
	})

	t.Run("Should tolerate a nil receiver", func(t *testing.T) {
		var m *Metrics
		assert.NotPanics(t, func() {
			m.ObserveSignature("message", ResultSuccess, time.Millisecond)
			m.ObserveRequest("/healthz", 200)
			m.IncRateLimited()
			m.IncAuthFailures()
		})
	})
}
