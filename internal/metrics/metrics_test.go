package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.LoginAttempt(LoginSuccess)
	m.TokensPurged(3)
	m.ObserveHTTP("/x", http.MethodGet, 200, time.Millisecond)
	m.InFlight()()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	m := New()
	m.LoginAttempt(LoginSuccess)
	m.LoginAttempt(LoginSuccess)
	m.LoginAttempt(LoginInvalidCredentials)
	m.TokensPurged(5)
	m.TokensPurged(0)
	m.ObserveHTTP("/v1/auth/login", http.MethodPost, 401, 10*time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.loginTotal.WithLabelValues(LoginSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.loginTotal.WithLabelValues(LoginInvalidCredentials)))
	require.Equal(t, 5.0, testutil.ToFloat64(m.tokensPurged))
	require.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/v1/auth/login", http.MethodPost, "401")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "auth_login_total"))
}
