package reconciler

import "github.com/geeOnama940515/iot-garden/internal/greenhouse"

// decide maps a toggle to the command to publish given the actuator's
// current state.
func decide(state greenhouse.ActuatorState, t greenhouse.Toggle) greenhouse.Command {
	if t.Target == greenhouse.TargetPower && !state.AutoMode {
		return greenhouse.SetActuator{Actuator: t.Actuator, On: t.Value}
	}
	return greenhouse.SetAutoMode{Actuator: t.Actuator, Enabled: t.Value}
}

// optimistic applies a toggle to the local state ahead of bus confirmation.
// A power toggle sets Energized even when it was sent as an auto-mode
// command; auto mode itself then changes only when the device reports it.
func optimistic(state greenhouse.ActuatorState, t greenhouse.Toggle) greenhouse.ActuatorState {
	switch t.Target {
	case greenhouse.TargetPower:
		state.Energized = t.Value
	case greenhouse.TargetAutoMode:
		state.AutoMode = t.Value
	}
	return state
}
