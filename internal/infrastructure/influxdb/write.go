package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/geeOnama940515/iot-garden/internal/greenhouse"
)

// Measurement names written by this package.
const (
	measurementReadings  = "sensor_readings"
	measurementActuators = "actuator_states"
)

// WriteReading queues a sensor reading for the next batch.
// The point is stamped with the reading's observation time.
func (c *Client) WriteReading(r greenhouse.Reading) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(ReadingPoint(r, time.Now()))
}

// WriteActuatorState queues an actuator state sample.
func (c *Client) WriteActuatorState(s greenhouse.ActuatorState, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(ActuatorPoint(s, at))
}

// ReadingPoint builds the point for a reading. A zero observation time is
// replaced with now.
func ReadingPoint(r greenhouse.Reading, now time.Time) *write.Point {
	at := r.ObservedAt
	if at.IsZero() {
		at = now
	}
	return write.NewPoint(
		measurementReadings,
		map[string]string{"sensor": string(r.Sensor)},
		map[string]interface{}{"value": r.Value},
		at,
	)
}

// ActuatorPoint builds the point for an actuator state sample.
func ActuatorPoint(s greenhouse.ActuatorState, at time.Time) *write.Point {
	return write.NewPoint(
		measurementActuators,
		map[string]string{"actuator": string(s.Actuator)},
		map[string]interface{}{
			"energized": s.Energized,
			"auto_mode": s.AutoMode,
		},
		at,
	)
}
