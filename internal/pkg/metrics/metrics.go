package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Signup results.
const (
	SignupCreated   = "created"
	SignupDuplicate = "duplicate"
	SignupInvalid   = "invalid"
	SignupError     = "error"
)

// Notification results.
const (
	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// Metrics holds the service collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Signups       *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	Tasks         *prometheus.CounterVec
	QueueDepth    prometheus.Gauge
	HTTPRequests  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Signups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waitlist_signups_total",
				Help: "Total number of waitlist signup attempts by result",
			},
			[]string{"result"},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waitlist_notifications_total",
				Help: "Total number of confirmation emails by result",
			},
			[]string{"result"},
		),
		Tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskqueue_tasks_total",
				Help: "Total number of background tasks by type and result",
			},
			[]string{"type", "result"},
		),
		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "taskqueue_depth",
				Help: "Number of background tasks waiting for a worker",
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
	}
	m.registry.MustRegister(
		m.Signups,
		m.Notifications,
		m.Tasks,
		m.QueueDepth,
		m.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns the Prometheus exposition handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveSignup(result string) {
	if m == nil {
		return
	}
	m.Signups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveNotification(result string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveTask(taskType, result string) {
	if m == nil {
		return
	}
	m.Tasks.WithLabelValues(taskType, result).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

func (m *Metrics) ObserveRequest(method, route, status string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
}
