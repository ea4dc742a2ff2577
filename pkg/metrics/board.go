package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BoardMetrics tracks board activity. A nil receiver or one built without a registerer is a
// no-op.
type BoardMetrics struct {
	events         *prometheus.CounterVec
	liveOrders     prometheus.Gauge
	completed      prometheus.Gauge
	journalDropped prometheus.Counter
	journalFailed  prometheus.Counter
	intakeFailures prometheus.Counter
}

// NewBoardMetrics registers the board metrics on the provided registerer.
func NewBoardMetrics(reg prometheus.Registerer) *BoardMetrics {
	if reg == nil {
		return &BoardMetrics{}
	}
	m := &BoardMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "board",
			Name:      "events_total",
			Help:      "Board events emitted, by type.",
		}, []string{"type"}),
		liveOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "board",
			Name:      "live_orders",
			Help:      "Orders currently on the board.",
		}),
		completed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "board",
			Name:      "recall_orders",
			Help:      "Completed orders held for recall.",
		}),
		journalDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "dropped_total",
			Help:      "Journal entries dropped because the write queue was full.",
		}),
		journalFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "failed_total",
			Help:      "Journal entries that failed to persist.",
		}),
		intakeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "failures_total",
			Help:      "Order feed fetches that failed.",
		}),
	}
	reg.MustRegister(m.events, m.liveOrders, m.completed, m.journalDropped, m.journalFailed, m.intakeFailures)
	return m
}

// IncEvent counts one emitted board event.
func (m *BoardMetrics) IncEvent(eventType string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// SetBoardSize records the live and recall set sizes.
func (m *BoardMetrics) SetBoardSize(live, completed int) {
	if m == nil || m.liveOrders == nil {
		return
	}
	m.liveOrders.Set(float64(live))
	m.completed.Set(float64(completed))
}

func (m *BoardMetrics) IncJournalDropped() {
	if m == nil || m.journalDropped == nil {
		return
	}
	m.journalDropped.Inc()
}

func (m *BoardMetrics) IncJournalFailed() {
	if m == nil || m.journalFailed == nil {
		return
	}
	m.journalFailed.Inc()
}

func (m *BoardMetrics) IncIntakeFailure() {
	if m == nil || m.intakeFailures == nil {
		return
	}
	m.intakeFailures.Inc()
}
