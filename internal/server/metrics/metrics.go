// Package metrics owns the Prometheus registry exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storekeeper"

// Collectors groups every metric the server records. A nil *Collectors is
// valid and records nothing.
type Collectors struct {
	registry *prometheus.Registry

	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec
	SetupAttemptsTotal         *prometheus.CounterVec
	OAuthExchangesTotal        *prometheus.CounterVec
	DeliveriesIssuedTotal      prometheus.Counter
	InboundMessagesTotal       prometheus.Counter
	AuditEntriesTotal          *prometheus.CounterVec
}

// New registers the collectors on a fresh registry together with the Go and
// process collectors.
func New() *Collectors {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &Collectors{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		SetupAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "setup_attempts_total",
			Help:      "Secret setup attempts by outcome",
		}, []string{"outcome"}),
		OAuthExchangesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_exchanges_total",
			Help:      "OAuth code exchanges by provider and outcome",
		}, []string{"provider", "outcome"}),
		DeliveriesIssuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_issued_total",
			Help:      "Delivery artifacts generated",
		}),
		InboundMessagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_messages_total",
			Help:      "Inbound webhook payloads stored",
		}),
		AuditEntriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_entries_total",
			Help:      "Audit entries recorded by action",
		}, []string{"action"}),
	}

	reg.MustRegister(
		c.HTTPRequestsTotal,
		c.HTTPRequestDurationSeconds,
		c.SetupAttemptsTotal,
		c.OAuthExchangesTotal,
		c.DeliveriesIssuedTotal,
		c.InboundMessagesTotal,
		c.AuditEntriesTotal,
	)
	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collectors) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (c *Collectors) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (c *Collectors) SetupAttempt(outcome string) {
	if c == nil {
		return
	}
	c.SetupAttemptsTotal.WithLabelValues(outcome).Inc()
}

func (c *Collectors) OAuthExchange(provider, outcome string) {
	if c == nil {
		return
	}
	c.OAuthExchangesTotal.WithLabelValues(provider, outcome).Inc()
}

func (c *Collectors) DeliveryIssued() {
	if c == nil {
		return
	}
	c.DeliveriesIssuedTotal.Inc()
}

func (c *Collectors) InboundMessage() {
	if c == nil {
		return
	}
	c.InboundMessagesTotal.Inc()
}

func (c *Collectors) AuditEntry(action string) {
	if c == nil {
		return
	}
	c.AuditEntriesTotal.WithLabelValues(action).Inc()
}
