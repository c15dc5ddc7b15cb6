// Package reconciler holds the authoritative in-process model of the
// greenhouse: current sensor values, a newest-first list of recent
// readings, and the two independent bits (energized, auto mode) of each
// actuator.
//
// Two writers touch that model. The supervisor's dispatch goroutine applies
// bus events through HandleMessage, and user toggles arrive through Toggle
// from the API. A single mutex serialises them. Bus reports always
// overwrite local values, including optimistic ones set by Toggle, in
// arrival order.
//
// # Mode policy
//
// A power toggle on an actuator that is in auto mode is sent as an
// auto-mode command carrying the requested value, not as a direct power
// command. An auto-mode toggle is always sent as an auto-mode command.
//
// # Notifications
//
// When a Broadcaster is set, changes are pushed on three channels:
//
//	connectivity.changed   {"connectivity": "..."}
//	actuator.changed       greenhouse.ActuatorState
//	reading.observed       greenhouse.Reading
package reconciler
