package reconciler

import (
	"errors"
	"fmt"

	"github.com/geeOnama940515/iot-garden/internal/codec"
	"github.com/geeOnama940515/iot-garden/internal/greenhouse"
	"github.com/geeOnama940515/iot-garden/internal/infrastructure/config"
)

// actuatorTopics holds the outbound side of one actuator.
type actuatorTopics struct {
	command string
	mode    string
	tokens  codec.PowerTokens
}

// Commands encodes outbound commands into topic and payload.
type Commands struct {
	actuators map[greenhouse.Actuator]actuatorTopics
}

// NewCommands builds the encoder from the topics configuration.
func NewCommands(cfg config.TopicsConfig) (*Commands, error) {
	c := &Commands{actuators: make(map[greenhouse.Actuator]actuatorTopics, len(cfg.Actuators))}

	var errs []error
	for _, a := range cfg.Actuators {
		act, err := greenhouse.ParseActuator(a.Name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tokens, err := codec.ParsePowerTokens(a.Tokens)
		if err != nil {
			errs = append(errs, fmt.Errorf("actuator %s: %w", act, err))
			continue
		}
		c.actuators[act] = actuatorTopics{command: a.CommandTopic, mode: a.ModeTopic, tokens: tokens}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("building command encoder: %w", err)
	}
	return c, nil
}

// Actuators lists the actuators the encoder knows, in canonical order.
func (c *Commands) Actuators() []greenhouse.Actuator {
	out := make([]greenhouse.Actuator, 0, len(c.actuators))
	for _, a := range greenhouse.AllActuators {
		if _, ok := c.actuators[a]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Encode returns the topic and payload for cmd.
func (c *Commands) Encode(cmd greenhouse.Command) (string, []byte, error) {
	t, ok := c.actuators[cmd.Target()]
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", greenhouse.ErrUnknownActuator, cmd.Target())
	}

	switch cmd := cmd.(type) {
	case greenhouse.SetActuator:
		if t.command == "" {
			return "", nil, fmt.Errorf("%w: %s power", ErrNoTopic, cmd.Actuator)
		}
		return t.command, t.tokens.Encode(cmd.On), nil
	case greenhouse.SetAutoMode:
		if t.mode == "" {
			return "", nil, fmt.Errorf("%w: %s auto mode", ErrNoTopic, cmd.Actuator)
		}
		return t.mode, codec.EncodeAutoMode(cmd.Enabled), nil
	default:
		return "", nil, fmt.Errorf("unsupported command %T", cmd)
	}
}
