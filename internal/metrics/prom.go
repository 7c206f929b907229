package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors bundles the Prometheus instrumentation for the queue core
type Collectors struct {
	registry *prometheus.Registry

	Assignments          *prometheus.CounterVec
	DistributionFailures *prometheus.CounterVec
	Escalations          *prometheus.CounterVec
	RetryAttempts        prometheus.Counter
	RetryFailures        prometheus.Counter
	SweepDuration        prometheus.Histogram
	SweepsSkipped        prometheus.Counter
	QueueDepth           *prometheus.GaugeVec
	AverageWait          *prometheus.GaugeVec
	CurrentLoad          *prometheus.GaugeVec
}

// NewCollectors registers all collectors on a fresh registry
func NewCollectors() *Collectors {
	reg := prometheus.NewRegistry()

	c := &Collectors{
		registry: reg,
		Assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queuewise_assignments_total",
			Help: "Queue items successfully assigned to an agent.",
		}, []string{"department"}),
		DistributionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queuewise_distribution_failures_total",
			Help: "Distribution attempts that left the item waiting.",
		}, []string{"reason"}),
		Escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queuewise_sla_escalations_total",
			Help: "Priority escalations applied after an SLA breach.",
		}, []string{"from", "to"}),
		RetryAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queuewise_outbound_retry_attempts_total",
			Help: "Retries of outbound channel calls.",
		}),
		RetryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queuewise_outbound_retry_failures_total",
			Help: "Outbound channel calls that failed after exhausting retries.",
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "queuewise_sweep_duration_seconds",
			Help:    "Duration of queue sweep ticks.",
			Buckets: prometheus.DefBuckets,
		}),
		SweepsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queuewise_sweeps_skipped_total",
			Help: "Sweep ticks skipped because the previous tick was still running.",
		}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "queuewise_queue_depth",
			Help: "Resident queue items by department and status.",
		}, []string{"department", "status"}),
		AverageWait: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "queuewise_average_wait_seconds",
			Help: "Mean wait of waiting items by department.",
		}, []string{"department"}),
		CurrentLoad: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "queuewise_current_load_percent",
			Help: "Queue load against configured capacity by department.",
		}, []string{"department"}),
	}

	reg.MustRegister(
		c.Assignments,
		c.DistributionFailures,
		c.Escalations,
		c.RetryAttempts,
		c.RetryFailures,
		c.SweepDuration,
		c.SweepsSkipped,
		c.QueueDepth,
		c.AverageWait,
		c.CurrentLoad,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Handler exposes the registry for the /metrics endpoint
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
