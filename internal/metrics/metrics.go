// Package metrics holds the Prometheus collectors for chat turns, reminders,
// retrieval providers and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	ProviderAttempts *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
	Turns            *prometheus.CounterVec
	RemindersSaved   prometheus.Counter
	SessionResets    *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// NewCollector creates and registers all metrics under namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		ProviderAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_attempts_total",
				Help:      "Retrieval provider attempts by outcome.",
			},
			[]string{"chain", "provider", "outcome"},
		),
		ProviderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_attempt_duration_seconds",
				Help:      "Retrieval provider attempt latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"chain", "provider"},
		),
		Turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chat_turns_total",
				Help:      "Dialogue turns by input class.",
			},
			[]string{"input"},
		),
		RemindersSaved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminders_saved_total",
				Help:      "Reminders created or updated through chat.",
			},
		),
		SessionResets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_resets_total",
				Help:      "Dialogue sessions reset to idle by reason.",
			},
			[]string{"reason"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.ProviderAttempts,
		c.ProviderDuration,
		c.Turns,
		c.RemindersSaved,
		c.SessionResets,
		c.HTTPRequests,
		c.HTTPDuration,
	)
	return c
}

// ObserveProviderAttempt records one retrieval tier attempt.
func (c *Collector) ObserveProviderAttempt(chain, provider, outcome string, elapsed time.Duration) {
	c.ProviderAttempts.WithLabelValues(chain, provider, outcome).Inc()
	c.ProviderDuration.WithLabelValues(chain, provider).Observe(elapsed.Seconds())
}

// ObserveTurn records a processed dialogue turn.
func (c *Collector) ObserveTurn(input string) {
	c.Turns.WithLabelValues(input).Inc()
}

// ObserveReminderSaved records a persisted reminder.
func (c *Collector) ObserveReminderSaved() {
	c.RemindersSaved.Inc()
}

// ObserveSessionReset records a session reset.
func (c *Collector) ObserveSessionReset(reason string) {
	c.SessionResets.WithLabelValues(reason).Inc()
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware counts requests by chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
