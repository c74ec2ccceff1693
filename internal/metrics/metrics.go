// Package metrics holds the Prometheus collectors for the API.
// Every Metrics owns its own registry so tests can construct as many as they
// like without duplicate-registration panics. All methods are safe to call
// on a nil *Metrics, which is what unit tests pass when they do not care.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for the catalog and auth flows.
type Metrics struct {
	registry *prometheus.Registry

	ObjectsCreated  prometheus.Counter
	Transitions     *prometheus.CounterVec
	Registrations   prometheus.Counter
	Logins          *prometheus.CounterVec
	RefreshRejected prometheus.Counter
	RequestDuration *prometheus.HistogramVec
}

// New creates a Metrics instance with all collectors registered on a fresh
// registry, plus the standard Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ObjectsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "culturemap_objects_created_total",
			Help: "Total number of cultural objects submitted",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "culturemap_object_transitions_total",
			Help: "Status transitions applied to cultural objects, by target status",
		}, []string{"to"}),
		Registrations: f.NewCounter(prometheus.CounterOpts{
			Name: "culturemap_users_registered_total",
			Help: "Total number of users registered",
		}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "culturemap_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		RefreshRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "culturemap_refresh_rejected_total",
			Help: "Refresh tokens rejected as invalid or replayed",
		}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "culturemap_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route pattern and status",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "status"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncrementObjectsCreated records a successful submission.
func (m *Metrics) IncrementObjectsCreated() {
	if m == nil {
		return
	}
	m.ObjectsCreated.Inc()
}

// AddTransitions records n records moved into status to.
func (m *Metrics) AddTransitions(to string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.Transitions.WithLabelValues(to).Add(float64(n))
}

// IncrementRegistrations records a successful sign-up.
func (m *Metrics) IncrementRegistrations() {
	if m == nil {
		return
	}
	m.Registrations.Inc()
}

// ObserveLogin records a login attempt.
func (m *Metrics) ObserveLogin(ok bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.Logins.WithLabelValues(outcome).Inc()
}

// IncrementRefreshRejected records a refused refresh token.
func (m *Metrics) IncrementRefreshRejected() {
	if m == nil {
		return
	}
	m.RefreshRejected.Inc()
}

// ObserveRequest records the duration of an HTTP request.
// Call with time.Now() at the start of the request.
func (m *Metrics) ObserveRequest(method, route string, status int, start time.Time) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
}
