// Package metrics holds the Prometheus collectors for remote sync activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Sync counts remote operations issued by the reconciler and its outbox.
// A nil *Sync is valid and records nothing.
type Sync struct {
	ops        *prometheus.CounterVec
	migrations *prometheus.CounterVec
	pending    prometheus.Gauge
}

// NewSync creates the sync collectors and registers them with reg.
func NewSync(reg prometheus.Registerer) *Sync {
	m := &Sync{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "electripro",
			Subsystem: "sync",
			Name:      "remote_operations_total",
			Help:      "Remote store operations by table, operation and result.",
		}, []string{"table", "op", "result"}),
		migrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "electripro",
			Subsystem: "sync",
			Name:      "migrations_total",
			Help:      "First-run pushes of locally cached collections to an empty remote table.",
		}, []string{"table"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "electripro",
			Subsystem: "sync",
			Name:      "outbox_pending",
			Help:      "Record writes waiting in the outbox.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ops, m.migrations, m.pending)
	}
	return m
}

// ObserveOp records the outcome of one remote call.
func (m *Sync) ObserveOp(table, op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ops.WithLabelValues(table, op, result).Inc()
}

// ObserveMigration records a first-run migration of table.
func (m *Sync) ObserveMigration(table string) {
	if m == nil {
		return
	}
	m.migrations.WithLabelValues(table).Inc()
}

// SetPending publishes the outbox depth.
func (m *Sync) SetPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

// Dashboard tracks live dashboard connections. A nil *Dashboard is valid
// and records nothing.
type Dashboard struct {
	clients  prometheus.Gauge
	messages *prometheus.CounterVec
}

// NewDashboard creates the dashboard collectors and registers them with reg.
func NewDashboard(reg prometheus.Registerer) *Dashboard {
	m := &Dashboard{
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "electripro",
			Subsystem: "dashboard",
			Name:      "websocket_clients",
			Help:      "Connected dashboard websocket clients.",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "electripro",
			Subsystem: "dashboard",
			Name:      "messages_total",
			Help:      "Messages broadcast to dashboard clients by type.",
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(m.clients, m.messages)
	}
	return m
}

// SetClients publishes the number of connected clients.
func (m *Dashboard) SetClients(n int) {
	if m == nil {
		return
	}
	m.clients.Set(float64(n))
}

// ObserveMessage counts one broadcast of the given type.
func (m *Dashboard) ObserveMessage(typ string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(typ).Inc()
}
