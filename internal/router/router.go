package router

import (
	"fmt"
	"time"

	"github.com/geeOnama940515/iot-garden/internal/codec"
	"github.com/geeOnama940515/iot-garden/internal/greenhouse"
)

// Router dispatches inbound messages by exact topic.
// It is immutable after New and safe for concurrent use.
type Router struct {
	routes map[string]Route
	now    func() time.Time
}

// Option configures a Router.
type Option func(*Router)

// WithClock overrides the clock used to stamp readings.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// New validates the table and builds a Router.
// Validation failures are startup errors.
func New(table Table, opts ...Option) (*Router, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}

	r := &Router{
		routes: make(map[string]Route, len(table)),
		now:    time.Now,
	}
	for _, route := range table {
		r.routes[route.Topic] = route
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Lookup returns the route registered for topic.
func (r *Router) Lookup(topic string) (Route, bool) {
	route, ok := r.routes[topic]
	return route, ok
}

// Route decodes a message into domain events.
//
// Unknown topics return no events and a nil error. Decode failures return
// an error wrapping codec.ErrDecode; for bundles, events decoded from the
// valid fields are returned alongside the error.
func (r *Router) Route(topic string, payload []byte) ([]greenhouse.Event, error) {
	route, ok := r.routes[topic]
	if !ok {
		return nil, nil
	}

	switch route.Kind {
	case KindReading:
		v, err := codec.DecodeNumber(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", topic, err)
		}
		return []greenhouse.Event{greenhouse.ReadingObserved{
			Reading: greenhouse.Reading{Sensor: route.Sensor, Value: v, ObservedAt: r.now()},
		}}, nil

	case KindActuatorReport:
		return []greenhouse.Event{greenhouse.ActuatorReported{
			Actuator:  route.Actuator,
			Energized: codec.DecodePower(payload),
		}}, nil

	case KindAutoModeReport:
		return []greenhouse.Event{greenhouse.AutoModeReported{
			Actuator: route.Actuator,
			Enabled:  codec.DecodeAutoMode(payload),
		}}, nil

	case KindBundle:
		readings, err := codec.DecodeBundle(payload, route.Bundle, r.now())
		events := make([]greenhouse.Event, 0, len(readings))
		for _, reading := range readings {
			events = append(events, greenhouse.ReadingObserved{Reading: reading})
		}
		if err != nil {
			return events, fmt.Errorf("%s: %w", topic, err)
		}
		return events, nil
	}

	// Unreachable: New rejects unknown kinds.
	return nil, nil
}
