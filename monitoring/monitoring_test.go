package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := CreateMetrics()

	m.ObserveInvocation("invoke", "success", 120*time.Millisecond)
	m.ObserveInvocation("invoke", "success", 80*time.Millisecond)
	m.ObserveInvocation("probe", "timeout", 30*time.Second)
	m.RecordRegistration("created")
	m.RecordRateLimited()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.invocations.WithLabelValues("invoke", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invocations.WithLabelValues("probe", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.registrations.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited))
}

func TestMetrics_Handler(t *testing.T) {
	m := CreateMetrics()
	m.ObserveHTTPRequest("GET", "/actions", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gateway_http_requests_total{method="GET",route="/actions",status="200"} 1`)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
		m.ObserveInvocation("invoke", "success", time.Millisecond)
		m.RecordRegistration("created")
		m.RecordTokenExchange("ok")
		m.RecordRateLimited()
	})
}

func TestHealthChecker(t *testing.T) {
	hc := CreateHealthChecker()
	hc.AddCheck("database", func(context.Context) error { return nil })

	report := hc.Check(context.Background())
	assert.Equal(t, Healthy, report.Status)
	assert.Equal(t, Healthy, report.Checks["database"].Status)

	hc.AddCheck("redis", func(context.Context) error { return errors.New("connection refused") })
	report = hc.Check(context.Background())
	assert.Equal(t, Unhealthy, report.Status)
	assert.Equal(t, "connection refused", report.Checks["redis"].Error)
}
