package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the storefront counters.
type Metrics struct {
	CheckoutSessions *prometheus.CounterVec
	AccessChecks     *prometheus.CounterVec
	WebhookEvents    *prometheus.CounterVec
	MailJobs         *prometheus.CounterVec
	MailQueueDepth   prometheus.Gauge

	registry *prometheus.Registry
}

// New registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		CheckoutSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gridfox_checkout_sessions_total",
			Help: "Checkout session attempts by billing cycle and outcome",
		}, []string{"cycle", "outcome"}),
		AccessChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gridfox_access_checks_total",
			Help: "Grid ownership checks by outcome",
		}, []string{"outcome"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gridfox_webhook_events_total",
			Help: "Stripe webhook deliveries by event type and outcome",
		}, []string{"type", "outcome"}),
		MailJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gridfox_mail_jobs_total",
			Help: "Mail queue jobs by outcome",
		}, []string{"outcome"}),
		MailQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gridfox_mail_queue_depth",
			Help: "Pending jobs in the mail queue",
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.CheckoutSessions,
		m.AccessChecks,
		m.WebhookEvents,
		m.MailJobs,
		m.MailQueueDepth,
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
