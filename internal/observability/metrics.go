// Package observability provides the Prometheus metrics and
// OpenTelemetry tracing ambient stack. Grounded on the teacher's
// backend/internal/observability/metrics.go and telemetry.go, trimmed
// to the workflow/node/plugin concerns this module actually has (the
// teacher's API-request, security, and resource-usage metric families
// have no counterpart here).
package observability

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process-wide Prometheus collectors.
type Metrics struct {
	workflowExecutionsTotal   *prometheus.CounterVec
	workflowExecutionDuration *prometheus.HistogramVec
	nodeExecutionsTotal       *prometheus.CounterVec
	nodeExecutionDuration     *prometheus.HistogramVec
	nodeErrorsTotal           *prometheus.CounterVec
	pluginLoadsTotal          *prometheus.CounterVec
	goroutines                prometheus.Gauge
	uptime                    prometheus.Gauge

	startTime time.Time
}

// NewMetrics registers the collectors against the default Prometheus
// registry via promauto, matching the teacher's NewMetricsService.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		workflowExecutionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgraph_workflow_executions_total",
			Help: "Total number of workflow executions, by outcome.",
		}, []string{"workflow", "status"}),

		workflowExecutionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowgraph_workflow_execution_duration_seconds",
			Help:    "Duration of whole-workflow executions.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		}, []string{"workflow", "status"}),

		nodeExecutionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgraph_node_executions_total",
			Help: "Total number of node executions, by node type and outcome.",
		}, []string{"node_type", "status"}),

		nodeExecutionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowgraph_node_execution_duration_seconds",
			Help:    "Duration of individual node executions.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"node_type"}),

		nodeErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgraph_node_errors_total",
			Help: "Total number of node executor errors, by node type.",
		}, []string{"node_type"}),

		pluginLoadsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgraph_plugin_loads_total",
			Help: "Total number of plugin load attempts, by outcome.",
		}, []string{"plugin", "status"}),

		goroutines: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "flowgraph_goroutines",
			Help: "Current number of goroutines.",
		}),

		uptime: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "flowgraph_uptime_seconds",
			Help: "Seconds since the process started.",
		}),
	}
}

// RecordWorkflowExecution records one finished workflow run with its
// outcome status.
func (m *Metrics) RecordWorkflowExecution(workflow, status string, d time.Duration) {
	m.workflowExecutionsTotal.WithLabelValues(workflow, status).Inc()
	m.workflowExecutionDuration.WithLabelValues(workflow, status).Observe(d.Seconds())
}

// RecordNodeExecution records one node execution with its outcome
// status, successful or not.
func (m *Metrics) RecordNodeExecution(nodeType, status string, d time.Duration) {
	m.nodeExecutionsTotal.WithLabelValues(nodeType, status).Inc()
	m.nodeExecutionDuration.WithLabelValues(nodeType).Observe(d.Seconds())
}

// RecordNodeError records one node_error.
func (m *Metrics) RecordNodeError(nodeType string) {
	m.nodeErrorsTotal.WithLabelValues(nodeType).Inc()
}

// RecordPluginLoad records one plugin load attempt from DiscoverAndLoad,
// Activate, or Deactivate's clear-and-reload.
func (m *Metrics) RecordPluginLoad(pluginID, status string) {
	m.pluginLoadsTotal.WithLabelValues(pluginID, status).Inc()
}

// Refresh updates the process-level gauges; callers sample it
// periodically (e.g. before each /metrics scrape or on a ticker).
func (m *Metrics) Refresh() {
	m.goroutines.Set(float64(runtime.NumGoroutine()))
	m.uptime.Set(time.Since(m.startTime).Seconds())
}

// Handler returns the promhttp handler to mount at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
