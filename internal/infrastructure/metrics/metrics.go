package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "greenhouse"

// Result label values shared by the counters.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Registry holds every controller metric.
//
// Thread Safety: All methods are safe for concurrent use.
type Registry struct {
	reg *prometheus.Registry

	connectionStatus *prometheus.GaugeVec
	connectAttempts  *prometheus.CounterVec
	messagesReceived prometheus.Counter
	messagesDropped  prometheus.Counter
	publishes        *prometheus.CounterVec

	decodeErrors prometheus.Counter
	readings     *prometheus.CounterVec
	commands     *prometheus.CounterVec

	historyWrites  *prometheus.CounterVec
	historyDropped prometheus.Counter
}

// New creates a Registry with Go runtime and process collectors attached.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		connectionStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mqtt",
			Name:      "connection_status",
			Help:      "1 for the current supervisor status, absent otherwise.",
		}, []string{"status"}),
		connectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mqtt",
			Name:      "connect_attempts_total",
			Help:      "Broker connection attempts by result.",
		}, []string{"result"}),
		messagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mqtt",
			Name:      "messages_received_total",
			Help:      "Inbound messages accepted into the dispatch queue.",
		}),
		messagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mqtt",
			Name:      "messages_dropped_total",
			Help:      "Inbound messages dropped because the dispatch queue was full.",
		}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mqtt",
			Name:      "publishes_total",
			Help:      "Outbound publishes by result.",
		}, []string{"result"}),

		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Inbound payloads that failed to decode.",
		}),
		readings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_total",
			Help:      "Sensor readings applied to controller state.",
		}, []string{"sensor"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Actuator commands by kind and result.",
		}, []string{"kind", "result"}),

		historyWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "writes_total",
			Help:      "History store writes by result.",
		}, []string{"result"}),
		historyDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "dropped_total",
			Help:      "Readings dropped because the history queue was full.",
		}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.connectionStatus,
		r.connectAttempts,
		r.messagesReceived,
		r.messagesDropped,
		r.publishes,
		r.decodeErrors,
		r.readings,
		r.commands,
		r.historyWrites,
		r.historyDropped,
	)

	return r
}

// Gatherer returns the underlying registry for inspection.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler serves the Prometheus text exposition.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// SetConnectionStatus records the supervisor's current status.
func (r *Registry) SetConnectionStatus(status string) {
	r.connectionStatus.Reset()
	r.connectionStatus.WithLabelValues(status).Set(1)
}

// IncConnectAttempts counts a connection attempt.
func (r *Registry) IncConnectAttempts(result string) {
	r.connectAttempts.WithLabelValues(result).Inc()
}

// IncMessagesReceived counts an accepted inbound message.
func (r *Registry) IncMessagesReceived() { r.messagesReceived.Inc() }

// IncMessagesDropped counts an inbound message lost to a full queue.
func (r *Registry) IncMessagesDropped() { r.messagesDropped.Inc() }

// IncPublishes counts an outbound publish.
func (r *Registry) IncPublishes(result string) {
	r.publishes.WithLabelValues(result).Inc()
}

// IncDecodeErrors counts a payload that failed to decode.
func (r *Registry) IncDecodeErrors() { r.decodeErrors.Inc() }

// IncReadings counts a reading applied to state.
func (r *Registry) IncReadings(sensor string) {
	r.readings.WithLabelValues(sensor).Inc()
}

// IncCommands counts an actuator command.
func (r *Registry) IncCommands(kind, result string) {
	r.commands.WithLabelValues(kind, result).Inc()
}

// IncHistoryWrites counts a history store write.
func (r *Registry) IncHistoryWrites(result string) {
	r.historyWrites.WithLabelValues(result).Inc()
}

// IncHistoryDropped counts a reading dropped before reaching the store.
func (r *Registry) IncHistoryDropped() { r.historyDropped.Inc() }
