// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector records engine-level prometheus metrics.
type Collector struct {
	workflowsTotal   *prometheus.CounterVec
	workflowDuration *prometheus.HistogramVec

	nodesTotal   *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec

	waveSize prometheus.Histogram

	delegationStepsTotal *prometheus.CounterVec
}

// NewCollector registers the engine metrics on the given registerer.
// Pass prometheus.DefaultRegisterer in production and a fresh registry
// in tests.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		workflowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflow_executions_total",
				Help:      "Total number of workflow executions",
			},
			[]string{"status"},
		),
		workflowDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "workflow_execution_duration_seconds",
				Help:      "Workflow execution duration in seconds",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"status"},
		),
		nodesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_executions_total",
				Help:      "Total number of node executions",
			},
			[]string{"node_type", "status"},
		),
		nodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "node_execution_duration_seconds",
				Help:      "Node execution duration in seconds",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"node_type"},
		),
		waveSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "wave_size_nodes",
				Help:      "Number of nodes dispatched per wave",
				Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
			},
		),
		delegationStepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "delegation_steps_total",
				Help:      "Total number of delegation-mode steps",
			},
			[]string{"status"},
		),
	}
}

// ObserveWorkflow records one workflow execution outcome.
func (c *Collector) ObserveWorkflow(status string, elapsed time.Duration) {
	c.workflowsTotal.WithLabelValues(status).Inc()
	c.workflowDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

// ObserveNode records one node execution outcome.
func (c *Collector) ObserveNode(nodeType, status string, elapsed time.Duration) {
	c.nodesTotal.WithLabelValues(nodeType, status).Inc()
	c.nodeDuration.WithLabelValues(nodeType).Observe(elapsed.Seconds())
}

// ObserveWaveSize records the width of one scheduling wave.
func (c *Collector) ObserveWaveSize(size int) {
	c.waveSize.Observe(float64(size))
}

// ObserveDelegationStep records one delegation-mode step outcome.
func (c *Collector) ObserveDelegationStep(status string) {
	c.delegationStepsTotal.WithLabelValues(status).Inc()
}
