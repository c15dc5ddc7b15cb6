package greenhouse

import (
	"fmt"
	"strings"
	"time"
)

// Event is a typed occurrence decoded from bus traffic.
//
// The set of variants is closed: ReadingObserved, ActuatorReported and
// AutoModeReported. Consumers switch on the concrete type.
type Event interface {
	event()
	// Kind returns a short name for logging and metrics labels.
	Kind() string
}

// ReadingObserved carries a new sensor reading.
type ReadingObserved struct {
	Reading Reading
}

// ActuatorReported carries the energized state reported by a device.
type ActuatorReported struct {
	Actuator  Actuator
	Energized bool
}

// AutoModeReported carries the auto-mode state reported by a device.
type AutoModeReported struct {
	Actuator Actuator
	Enabled  bool
}

func (ReadingObserved) event()  {}
func (ActuatorReported) event() {}
func (AutoModeReported) event() {}

// Kind implements Event.
func (ReadingObserved) Kind() string { return "reading" }

// Kind implements Event.
func (ActuatorReported) Kind() string { return "actuator" }

// Kind implements Event.
func (AutoModeReported) Kind() string { return "auto_mode" }

// Command is an outbound instruction to a device.
//
// Variants: SetActuator and SetAutoMode.
type Command interface {
	command()
	// Target returns the actuator the command addresses.
	Target() Actuator
	// Kind returns a short name for logging and metrics labels.
	Kind() string
}

// SetActuator asks a device to energize or de-energize.
type SetActuator struct {
	Actuator Actuator `json:"actuator"`
	On       bool     `json:"on"`
}

// SetAutoMode asks a device to enter or leave its autonomous mode.
type SetAutoMode struct {
	Actuator Actuator `json:"actuator"`
	Enabled  bool     `json:"enabled"`
}

func (SetActuator) command() {}
func (SetAutoMode) command() {}

// Target implements Command.
func (c SetActuator) Target() Actuator { return c.Actuator }

// Target implements Command.
func (c SetAutoMode) Target() Actuator { return c.Actuator }

// Kind implements Command.
func (SetActuator) Kind() string { return "set_actuator" }

// Kind implements Command.
func (SetAutoMode) Kind() string { return "set_auto_mode" }

// ToggleTarget selects which actuator bit a user toggle addresses.
type ToggleTarget string

// Toggle targets.
const (
	TargetPower    ToggleTarget = "power"
	TargetAutoMode ToggleTarget = "auto"
)

// ParseToggleTarget converts a case-insensitive name into a ToggleTarget.
func ParseToggleTarget(s string) (ToggleTarget, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(TargetPower):
		return TargetPower, nil
	case string(TargetAutoMode), "auto_mode", "automode":
		return TargetAutoMode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTarget, s)
	}
}

// Toggle is a user's request to change an actuator bit.
type Toggle struct {
	Actuator Actuator
	Target   ToggleTarget
	Value    bool
}

// String returns a compact description used in log lines.
func (t Toggle) String() string {
	return fmt.Sprintf("%s.%s=%t", t.Actuator, t.Target, t.Value)
}

// NewReading builds a Reading, defaulting ObservedAt to now when zero.
func NewReading(kind SensorKind, value float64, at time.Time) Reading {
	if at.IsZero() {
		at = time.Now()
	}
	return Reading{Sensor: kind, Value: value, ObservedAt: at}
}
