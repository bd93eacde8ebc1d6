package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusMetrics struct {
	TickTotal          prometheus.Counter
	ContextSwitchTotal prometheus.Counter
	WakeTotal          *prometheus.CounterVec
	BlockTotal         *prometheus.CounterVec
	Tasks              prometheus.Gauge
	ReadyTasks         *prometheus.GaugeVec
	DelayedTasks       prometheus.Gauge
	SuspendedTasks     prometheus.Gauge
	QueueMessages      *prometheus.GaugeVec
	QueueWaiters       *prometheus.GaugeVec
}

func NewPrometheusMetrics(registry prometheus.Registerer, namespace, subsystem string) *PrometheusMetrics {
	m := &PrometheusMetrics{}

	m.TickTotal = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tick_total",
			Help:      "Total number of processed ticks.",
		},
	)

	m.ContextSwitchTotal = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "context_switch_total",
			Help:      "Total number of context switches to a different task.",
		},
	)

	m.WakeTotal = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "wake_total",
			Help:      "Total number of tasks moved back to a ready list.",
		},
		[]string{"reason"},
	)

	m.BlockTotal = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "block_total",
			Help:      "Total number of tasks leaving the ready lists.",
		},
		[]string{"reason"},
	)

	m.Tasks = promauto.With(registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tasks",
			Help:      "Number of live tasks.",
		},
	)

	m.ReadyTasks = promauto.With(registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ready_tasks",
			Help:      "Number of tasks in the ready list of a priority.",
		},
		[]string{"priority"},
	)

	m.DelayedTasks = promauto.With(registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "delayed_tasks",
			Help:      "Number of tasks waiting for a future tick.",
		},
	)

	m.SuspendedTasks = promauto.With(registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "suspended_tasks",
			Help:      "Number of suspended tasks, including tasks blocked without timeout.",
		},
	)

	m.QueueMessages = promauto.With(registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_messages",
			Help:      "Number of messages waiting in a queue.",
		},
		[]string{"queue_name"},
	)

	m.QueueWaiters = promauto.With(registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_waiters",
			Help:      "Number of tasks blocked on a queue.",
		},
		[]string{"queue_name", "direction"},
	)

	return m
}
