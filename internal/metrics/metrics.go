// Package metrics: Prometheus-метрики сервиса.
// Все методы безопасны для nil-получателя: в тестах метрики можно не создавать.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Результаты входа для auth_login_total.
const (
	LoginSuccess            = "success"
	LoginNotFound           = "not_found"
	LoginInvalidCredentials = "invalid_credentials"
	LoginInactive           = "inactive"
	LoginActivationRequired = "activation_required"
	LoginError              = "error"
)

// Metrics: набор метрик сервиса.
type Metrics struct {
	reg prometheus.Gatherer

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	loginTotal          *prometheus.CounterVec
	tokensPurged        prometheus.Counter
}

// New создаёт метрики и регистрирует их в собственном реестре
// (вместе с go- и process-коллекторами).
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		loginTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_login_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		tokensPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tokens_purged_total",
			Help: "Expired token records removed by the janitor.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpInFlight, m.httpRequestsTotal, m.httpRequestDuration, m.loginTotal, m.tokensPurged,
	)

	return m
}

// Gatherer возвращает реестр метрик.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.reg
}

// Handler отдаёт метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// InFlight увеличивает счётчик запросов в полёте и возвращает функцию уменьшения.
func (m *Metrics) InFlight() func() {
	if m == nil {
		return func() {}
	}

	m.httpInFlight.Inc()

	return m.httpInFlight.Dec
}

// ObserveHTTP учитывает завершённый HTTP-запрос.
func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}

	m.httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// LoginAttempt учитывает попытку входа.
func (m *Metrics) LoginAttempt(result string) {
	if m == nil {
		return
	}

	m.loginTotal.WithLabelValues(result).Inc()
}

// TokensPurged учитывает удалённые просроченные токены.
func (m *Metrics) TokensPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}

	m.tokensPurged.Add(float64(n))
}
