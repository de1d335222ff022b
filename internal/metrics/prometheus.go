package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "attec"

// PrometheusRecorder exports metrics through a private Prometheus registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	rateLimited     prometheus.Counter
	authFailures    *prometheus.CounterVec
	logins          *prometheus.CounterVec
	submissions     prometheus.Counter
	notifications   *prometheus.CounterVec
	analyticsEvents *prometheus.CounterVec
}

// NewPrometheus creates a recorder with Go and process collectors registered.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()

	p := &PrometheusRecorder{
		registry: reg,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected authentications by reason.",
		}, []string{"reason"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"status"}),
		submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contact_submissions_total",
			Help:      "Stored contact form submissions.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Best-effort notifications by kind and outcome.",
		}, []string{"kind", "status"}),
		analyticsEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_events_total",
			Help:      "Tracked analytics events by outcome.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.requestDuration,
		p.rateLimited,
		p.authFailures,
		p.logins,
		p.submissions,
		p.notifications,
		p.analyticsEvents,
	)

	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// ObserveRequest implements Recorder.
func (p *PrometheusRecorder) ObserveRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	p.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// IncRateLimited implements Recorder.
func (p *PrometheusRecorder) IncRateLimited() { p.rateLimited.Inc() }

// IncAuthFailure implements Recorder.
func (p *PrometheusRecorder) IncAuthFailure(reason string) {
	p.authFailures.WithLabelValues(reason).Inc()
}

// IncLogin implements Recorder.
func (p *PrometheusRecorder) IncLogin(status string) { p.logins.WithLabelValues(status).Inc() }

// IncSubmission implements Recorder.
func (p *PrometheusRecorder) IncSubmission() { p.submissions.Inc() }

// IncNotification implements Recorder.
func (p *PrometheusRecorder) IncNotification(kind, status string) {
	p.notifications.WithLabelValues(kind, status).Inc()
}

// IncAnalyticsEvent implements Recorder.
func (p *PrometheusRecorder) IncAnalyticsEvent(status string) {
	p.analyticsEvents.WithLabelValues(status).Inc()
}
