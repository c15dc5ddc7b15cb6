package router

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/geeOnama940515/iot-garden/internal/codec"
	"github.com/geeOnama940515/iot-garden/internal/greenhouse"
	"github.com/geeOnama940515/iot-garden/internal/infrastructure/config"
)

// Kind selects how a route decodes its payload.
type Kind string

// Route kinds.
const (
	KindReading        Kind = "reading"
	KindActuatorReport Kind = "actuator_report"
	KindAutoModeReport Kind = "auto_mode_report"
	KindBundle         Kind = "bundle"
)

// Kinds lists every route kind.
func Kinds() []Kind {
	return []Kind{KindReading, KindActuatorReport, KindAutoModeReport, KindBundle}
}

// Route binds one exact topic to a decoder.
type Route struct {
	Topic string
	Kind  Kind

	// Sensor is set for KindReading.
	Sensor greenhouse.SensorKind

	// Actuator is set for KindActuatorReport and KindAutoModeReport.
	Actuator greenhouse.Actuator

	// Bundle is set for KindBundle.
	Bundle codec.BundleLayout
}

// Table is the full list of routes.
type Table []Route

// Topics returns the route topics in sorted order.
func (t Table) Topics() []string {
	topics := make([]string, 0, len(t))
	for _, r := range t {
		topics = append(topics, r.Topic)
	}
	sort.Strings(topics)
	return topics
}

// Validate checks that every route is complete and that no two routes
// share a topic. All problems are reported together.
func (t Table) Validate() error {
	var errs []error
	seen := make(map[string]int, len(t))

	for i, r := range t {
		if err := r.validate(); err != nil {
			errs = append(errs, fmt.Errorf("route %d: %w", i, err))
			continue
		}
		if prev, dup := seen[r.Topic]; dup {
			errs = append(errs, fmt.Errorf("%w: %q used by routes %d and %d", ErrAmbiguousTopic, r.Topic, prev, i))
			continue
		}
		seen[r.Topic] = i
	}

	return errors.Join(errs...)
}

// ValidateCoverage checks that each route topic is matched by at least one
// of the subscription filters. A route outside every filter would never
// receive a message.
func (t Table) ValidateCoverage(filters []string) error {
	var errs []error
	for _, r := range t {
		covered := false
		for _, f := range filters {
			if MatchFilter(f, r.Topic) {
				covered = true
				break
			}
		}
		if !covered {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUncoveredTopic, r.Topic))
		}
	}
	return errors.Join(errs...)
}

func (r Route) validate() error {
	if r.Topic == "" {
		return fmt.Errorf("%w: empty topic", ErrInvalidRoute)
	}
	if strings.ContainsAny(r.Topic, "+#") {
		return fmt.Errorf("%w: wildcard in topic %q", ErrInvalidRoute, r.Topic)
	}

	switch r.Kind {
	case KindReading:
		if r.Sensor == "" {
			return fmt.Errorf("%w: %q has no sensor", ErrInvalidRoute, r.Topic)
		}
	case KindActuatorReport, KindAutoModeReport:
		if r.Actuator == "" {
			return fmt.Errorf("%w: %q has no actuator", ErrInvalidRoute, r.Topic)
		}
	case KindBundle:
		if r.Bundle.Sensor == "" || len(r.Bundle.Fields) == 0 {
			return fmt.Errorf("%w: %q has no bundle layout", ErrInvalidRoute, r.Topic)
		}
	default:
		return fmt.Errorf("%w: %q has unknown kind %q", ErrInvalidRoute, r.Topic, r.Kind)
	}
	return nil
}

// FromConfig builds a Table from the topics section of the configuration.
// Names are assumed to have passed config validation; unknown names are
// reported as errors all the same.
func FromConfig(cfg config.TopicsConfig) (Table, error) {
	var (
		table Table
		errs  []error
	)

	for _, s := range cfg.Sensors {
		kind, err := greenhouse.ParseSensorKind(s.Sensor)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		table = append(table, Route{Topic: s.Topic, Kind: KindReading, Sensor: kind})
	}

	for _, a := range cfg.Actuators {
		act, err := greenhouse.ParseActuator(a.Name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		table = append(table,
			Route{Topic: a.ReportTopic(), Kind: KindActuatorReport, Actuator: act},
			Route{Topic: a.ModeReportTopic(), Kind: KindAutoModeReport, Actuator: act},
		)
	}

	for _, b := range cfg.Bundles {
		layout := codec.BundleLayout{Sensor: b.Sensor, Fields: make(map[string]greenhouse.SensorKind, len(b.Fields))}
		for key, name := range b.Fields {
			kind, err := greenhouse.ParseSensorKind(name)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			layout.Fields[key] = kind
		}
		table = append(table, Route{Topic: b.Topic, Kind: KindBundle, Bundle: layout})
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("building route table: %w", err)
	}
	return table, nil
}

// MatchFilter reports whether topic matches the MQTT subscription filter.
// "+" matches exactly one level and a trailing "#" matches any number of
// remaining levels, including none.
func MatchFilter(filter, topic string) bool {
	fl := strings.Split(filter, "/")
	tl := strings.Split(topic, "/")

	for i, f := range fl {
		if f == "#" {
			return i == len(fl)-1
		}
		if i >= len(tl) {
			return false
		}
		if f != "+" && f != tl[i] {
			return false
		}
	}
	return len(fl) == len(tl)
}
