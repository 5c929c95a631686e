// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what handlers, usecases and the editor loop report to.
type Recorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
	RecordAuthEvent(event, outcome string)
	SubscriptionOpened(collection string)
	SubscriptionClosed(collection string)
	RecordUpload(kind, outcome string)
	RecordEditorCommand(collection, command, outcome string)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	authEvents     *prometheus.CounterVec
	subscriptions  *prometheus.GaugeVec
	uploads        *prometheus.CounterVec
	editorCommands *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "panel_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "panel_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "panel_auth_events_total",
			Help: "Identity operations by event and outcome",
		}, []string{"event", "outcome"}),
		subscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "panel_active_subscriptions",
			Help: "Live collection and session subscriptions",
		}, []string{"collection"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "panel_uploads_total",
			Help: "Image uploads by kind and outcome",
		}, []string{"kind", "outcome"}),
		editorCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "panel_editor_commands_total",
			Help: "Editor websocket commands by collection, command and outcome",
		}, []string{"collection", "command", "outcome"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.authEvents,
		c.subscriptions,
		c.uploads,
		c.editorCommands,
	)
	return c
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) RecordAuthEvent(event, outcome string) {
	c.authEvents.WithLabelValues(event, outcome).Inc()
}

func (c *Collector) SubscriptionOpened(collection string) {
	c.subscriptions.WithLabelValues(collection).Inc()
}

func (c *Collector) SubscriptionClosed(collection string) {
	c.subscriptions.WithLabelValues(collection).Dec()
}

func (c *Collector) RecordUpload(kind, outcome string) {
	c.uploads.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) RecordEditorCommand(collection, command, outcome string) {
	c.editorCommands.WithLabelValues(collection, command, outcome).Inc()
}

// Nop discards everything. Used when metrics are not wired, e.g. in tests.
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordAuthEvent(string, string)                       {}
func (Nop) SubscriptionOpened(string)                            {}
func (Nop) SubscriptionClosed(string)                            {}
func (Nop) RecordUpload(string, string)                          {}
func (Nop) RecordEditorCommand(string, string, string)           {}

// Handler returns the HTTP handler for Prometheus scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
