package greenhouse

import "errors"

var (
	// ErrUnknownSensor is returned when a sensor name is not recognised.
	ErrUnknownSensor = errors.New("greenhouse: unknown sensor")

	// ErrUnknownActuator is returned when an actuator name is not recognised.
	ErrUnknownActuator = errors.New("greenhouse: unknown actuator")

	// ErrUnknownTarget is returned when a toggle target is not recognised.
	ErrUnknownTarget = errors.New("greenhouse: unknown toggle target")
)
