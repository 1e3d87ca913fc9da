// Package telemetry exposes the service's Prometheus metrics. A Collector
// owns its vectors and is registered against an explicit registry so tests
// can use a fresh one.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricPrefix = "labmaint_"

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Collector implements core.MetricsCollector plus the domain counters used
// by the dispatcher, the scheduler and the report job.
type Collector struct {
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
	pushSends      *prometheus.CounterVec
	emailSends     *prometheus.CounterVec
	reminders      *prometheus.CounterVec
	reminderTicks  *prometheus.CounterVec
	reportsTotal   *prometheus.CounterVec
	reportsLatency *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewCollector creates the metrics and registers them on reg. When reg is
// also a Gatherer (a *prometheus.Registry is), Handler serves it; otherwise
// Handler serves the default gatherer.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricPrefix + "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		pushSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "push_notifications_total",
			Help: "Push notifications handed to the provider, by result.",
		}, []string{"result"}),
		emailSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "emails_total",
			Help: "Report emails by provider and result.",
		}, []string{"provider", "result"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "reminders_total",
			Help: "Reminder notifications queued, by severity.",
		}, []string{"severity"}),
		reminderTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "reminder_ticks_total",
			Help: "Reminder scheduler ticks by outcome.",
		}, []string{"outcome"}),
		reportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "reports_total",
			Help: "History reports generated, by format and result.",
		}, []string{"format", "result"}),
		reportsLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricPrefix + "report_generation_seconds",
			Help:    "History report generation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"format"}),
		gatherer: prometheus.DefaultGatherer,
	}

	reg.MustRegister(
		c.httpRequests, c.httpLatency,
		c.pushSends, c.emailSends,
		c.reminders, c.reminderTicks,
		c.reportsTotal, c.reportsLatency,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		c.gatherer = g
	}
	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// RecordRequest implements core.MetricsCollector.
func (c *Collector) RecordRequest(method, endpoint, status string, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, endpoint, status).Inc()
	c.httpLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// ObservePush counts one push send.
func (c *Collector) ObservePush(result string) {
	c.pushSends.WithLabelValues(result).Inc()
}

// ObserveEmail counts one email send.
func (c *Collector) ObserveEmail(provider, result string) {
	c.emailSends.WithLabelValues(provider, result).Inc()
}

// ObserveReminderTick counts one scheduler tick. outcome is "sent" or the
// reason the tick was skipped.
func (c *Collector) ObserveReminderTick(outcome string, overdue, dueSoon int) {
	c.reminderTicks.WithLabelValues(outcome).Inc()
	c.reminders.WithLabelValues("overdue").Add(float64(overdue))
	c.reminders.WithLabelValues("due_soon").Add(float64(dueSoon))
}

// ObserveReport counts one report build.
func (c *Collector) ObserveReport(format, result string, duration time.Duration) {
	c.reportsTotal.WithLabelValues(format, result).Inc()
	c.reportsLatency.WithLabelValues(format).Observe(duration.Seconds())
}
