// Package metrics exposes controller counters in Prometheus format.
//
// A Registry owns a private prometheus.Registry (not the global default) so
// tests and multiple instances do not collide. It satisfies the narrow
// Metrics interfaces declared by the mqtt, reconciler and history packages,
// and Handler serves the exposition for GET /metrics.
//
// All series use the "greenhouse_" prefix:
//
//	greenhouse_mqtt_connection_status{status}
//	greenhouse_mqtt_connect_attempts_total{result}
//	greenhouse_mqtt_messages_received_total
//	greenhouse_mqtt_messages_dropped_total
//	greenhouse_mqtt_publishes_total{result}
//	greenhouse_decode_errors_total
//	greenhouse_readings_total{sensor}
//	greenhouse_commands_total{kind,result}
//	greenhouse_history_writes_total{result}
//	greenhouse_history_dropped_total
package metrics
