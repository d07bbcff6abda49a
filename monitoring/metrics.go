package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	invocations        *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	registrations      *prometheus.CounterVec
	tokenExchanges     *prometheus.CounterVec
	rateLimited        prometheus.Counter
}

func CreateMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_http_requests_total",
				Help: "HTTP requests served, by route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_webhook_invocations_total",
				Help: "Webhook calls, by kind (invoke or probe) and outcome",
			},
			[]string{"kind", "outcome"},
		),
		invocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_webhook_duration_seconds",
				Help:    "Webhook round-trip latency",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"kind"},
		),
		registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_action_registrations_total",
				Help: "Action registration attempts, by result kind",
			},
			[]string{"result"},
		),
		tokenExchanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_token_exchanges_total",
				Help: "API token exchanges, by result kind",
			},
			[]string{"result"},
		),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_rate_limited_total",
			Help: "Requests rejected by the per-tenant rate limit",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.invocations,
		m.invocationDuration,
		m.registrations,
		m.tokenExchanges,
		m.rateLimited,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) ObserveInvocation(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(kind, outcome).Inc()
	m.invocationDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) RecordRegistration(result string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordTokenExchange(result string) {
	if m == nil {
		return
	}
	m.tokenExchanges.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}
