package greenhouse

import (
	"fmt"
	"strings"
	"time"
)

// SensorKind identifies the physical quantity a reading measures.
//
// The string form is the wire name used by the history service
// ("Moisture", "Temperature", "Humidity").
type SensorKind string

// Supported sensor kinds.
const (
	SensorMoisture    SensorKind = "Moisture"
	SensorTemperature SensorKind = "Temperature"
	SensorHumidity    SensorKind = "Humidity"
)

// AllSensorKinds lists every supported sensor kind in display order.
var AllSensorKinds = []SensorKind{SensorMoisture, SensorTemperature, SensorHumidity}

// ParseSensorKind converts a case-insensitive name into a SensorKind.
func ParseSensorKind(s string) (SensorKind, error) {
	for _, k := range AllSensorKinds {
		if strings.EqualFold(strings.TrimSpace(s), string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSensor, s)
}

// Unit returns the display unit for the sensor kind.
func (k SensorKind) Unit() string {
	switch k {
	case SensorTemperature:
		return "°C"
	case SensorMoisture, SensorHumidity:
		return "%"
	default:
		return ""
	}
}

// Actuator identifies a controllable output device.
type Actuator string

// Supported actuators.
const (
	ActuatorPump Actuator = "pump"
	ActuatorFan  Actuator = "fan"
)

// AllActuators lists every supported actuator.
var AllActuators = []Actuator{ActuatorPump, ActuatorFan}

// ParseActuator converts a case-insensitive name into an Actuator.
func ParseActuator(s string) (Actuator, error) {
	for _, a := range AllActuators {
		if strings.EqualFold(strings.TrimSpace(s), string(a)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownActuator, s)
}

// Reading is a single sensor observation.
type Reading struct {
	Sensor     SensorKind `json:"sensor"`
	Value      float64    `json:"value"`
	ObservedAt time.Time  `json:"observed_at"`
}

// ActuatorState holds the two independent bits tracked per actuator.
// AutoMode does not imply anything about Energized, and vice versa.
type ActuatorState struct {
	Actuator  Actuator `json:"actuator"`
	Energized bool     `json:"energized"`
	AutoMode  bool     `json:"auto_mode"`
}

// Connectivity is the bus connection status exposed to consumers.
type Connectivity string

// Connectivity values.
const (
	ConnectivityDisconnected Connectivity = "disconnected"
	ConnectivityConnecting   Connectivity = "connecting"
	ConnectivityConnected    Connectivity = "connected"
	ConnectivityOffline      Connectivity = "offline"
)

// Snapshot is a point-in-time copy of the controller state.
// Maps are freshly allocated per snapshot, so callers may keep or modify them.
type Snapshot struct {
	Readings     map[SensorKind]Reading     `json:"readings"`
	Actuators    map[Actuator]ActuatorState `json:"actuators"`
	Connectivity Connectivity               `json:"connectivity"`
	UpdatedAt    time.Time                  `json:"updated_at"`
}
