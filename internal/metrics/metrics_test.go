package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()

	m.Observe("login", "OK")
	m.Observe("login", "OK")
	m.Observe("login", "INVALID_CREDENTIALS")
	m.ObserveVerification(ResultExpired)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.AuthEvents.WithLabelValues("login", "OK")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AuthEvents.WithLabelValues("login", "INVALID_CREDENTIALS")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TokenVerifications.WithLabelValues(ResultExpired)))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Observe("login", "OK")
		m.ObserveVerification(ResultValid)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Observe("register", "OK")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `jobtrack_auth_events_total{operation="register",outcome="OK"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
