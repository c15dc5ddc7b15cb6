package router

import (
	"errors"
	"testing"
	"time"

	"github.com/geeOnama940515/iot-garden/internal/codec"
	"github.com/geeOnama940515/iot-garden/internal/greenhouse"
	"github.com/geeOnama940515/iot-garden/internal/infrastructure/config"
)

var fixedNow = time.Date(2026, 4, 10, 9, 30, 0, 0, time.UTC)

func newDefaultRouter(t *testing.T) *Router {
	t.Helper()
	table, err := FromConfig(config.Default().Topics)
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	r, err := New(table, WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

// ─── Routing ───────────────────────────────────────────────────────

func TestRoute_Reading(t *testing.T) {
	r := newDefaultRouter(t)

	events, err := r.Route("sensor/greenhouse/moisture", []byte("41.5"))
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	ev, ok := events[0].(greenhouse.ReadingObserved)
	if !ok {
		t.Fatalf("event type = %T, want ReadingObserved", events[0])
	}
	want := greenhouse.Reading{Sensor: greenhouse.SensorMoisture, Value: 41.5, ObservedAt: fixedNow}
	if ev.Reading != want {
		t.Errorf("reading = %+v, want %+v", ev.Reading, want)
	}
}

func TestRoute_ReadingDecodeError(t *testing.T) {
	r := newDefaultRouter(t)

	events, err := r.Route("sensor/greenhouse/temperature", []byte("abc"))
	if !errors.Is(err, codec.ErrInvalidNumber) {
		t.Errorf("Route() error = %v, want ErrInvalidNumber", err)
	}
	if len(events) != 0 {
		t.Errorf("events = %v, want none", events)
	}
}

func TestRoute_ActuatorReport(t *testing.T) {
	r := newDefaultRouter(t)

	tests := []struct {
		topic   string
		payload string
		want    greenhouse.Event
	}{
		{"cmnd/greenhouse/pump", "ON", greenhouse.ActuatorReported{Actuator: greenhouse.ActuatorPump, Energized: true}},
		{"cmnd/greenhouse/pump", "0", greenhouse.ActuatorReported{Actuator: greenhouse.ActuatorPump, Energized: false}},
		{"cmnd/greenhouse/fan", "1", greenhouse.ActuatorReported{Actuator: greenhouse.ActuatorFan, Energized: true}},
		{"cmnd/greenhouse/fan", "bogus", greenhouse.ActuatorReported{Actuator: greenhouse.ActuatorFan, Energized: false}},
		{"cmnd/greenhouse/pump_mode", "ONAUTO", greenhouse.AutoModeReported{Actuator: greenhouse.ActuatorPump, Enabled: true}},
		{"cmnd/greenhouse/fan_mode", "OFFAUTO", greenhouse.AutoModeReported{Actuator: greenhouse.ActuatorFan, Enabled: false}},
	}

	for _, tt := range tests {
		t.Run(tt.topic+"="+tt.payload, func(t *testing.T) {
			events, err := r.Route(tt.topic, []byte(tt.payload))
			if err != nil {
				t.Fatalf("Route() error = %v", err)
			}
			if len(events) != 1 || events[0] != tt.want {
				t.Errorf("events = %+v, want [%+v]", events, tt.want)
			}
		})
	}
}

func TestRoute_Bundle(t *testing.T) {
	r := newDefaultRouter(t)

	events, err := r.Route("tele/greenhouse/SENSOR", []byte(`{"DHT11":{"Temperature":"23.5","Humidity":41.20}}`))
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	for _, ev := range events {
		ro, ok := ev.(greenhouse.ReadingObserved)
		if !ok {
			t.Fatalf("event type = %T", ev)
		}
		if !ro.Reading.ObservedAt.Equal(fixedNow) {
			t.Errorf("ObservedAt = %v, want clock time", ro.Reading.ObservedAt)
		}
	}
}

func TestRoute_BundlePartial(t *testing.T) {
	r := newDefaultRouter(t)

	events, err := r.Route("tele/greenhouse/SENSOR", []byte(`{"DHT11":{"Temperature":"n/a","Humidity":40}}`))
	if !errors.Is(err, codec.ErrDecode) {
		t.Errorf("Route() error = %v, want decode error", err)
	}
	if len(events) != 1 {
		t.Errorf("len(events) = %d, want 1 valid reading", len(events))
	}
}

func TestRoute_UnknownTopic(t *testing.T) {
	r := newDefaultRouter(t)

	for _, topic := range []string{"", "sensor/greenhouse/co2", "tele/greenhouse/STATE", "cmnd/greenhouse/pump/extra"} {
		events, err := r.Route(topic, []byte("1"))
		if err != nil || events != nil {
			t.Errorf("Route(%q) = %v, %v; want nil, nil", topic, events, err)
		}
	}
}

// Every routed topic yields events of the kind its route declares, for both
// well-formed and garbage payloads, and never panics.
func TestRoute_TotalOverTable(t *testing.T) {
	table, err := FromConfig(config.Default().Topics)
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	r, err := New(table)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	payloads := [][]byte{nil, []byte("1"), []byte("OFF"), []byte("ONAUTO"), []byte("{}"), []byte("\xff\xfe")}
	for _, route := range table {
		for _, p := range payloads {
			events, _ := r.Route(route.Topic, p)
			for _, ev := range events {
				switch ev.(type) {
				case greenhouse.ReadingObserved:
					if route.Kind != KindReading && route.Kind != KindBundle {
						t.Errorf("%s produced reading for kind %s", route.Topic, route.Kind)
					}
				case greenhouse.ActuatorReported:
					if route.Kind != KindActuatorReport {
						t.Errorf("%s produced actuator report for kind %s", route.Topic, route.Kind)
					}
				case greenhouse.AutoModeReported:
					if route.Kind != KindAutoModeReport {
						t.Errorf("%s produced auto-mode report for kind %s", route.Topic, route.Kind)
					}
				}
			}
			if route.Kind == KindActuatorReport || route.Kind == KindAutoModeReport {
				if len(events) != 1 {
					t.Errorf("%s with %q: %d events, want exactly 1", route.Topic, p, len(events))
				}
			}
		}
	}
}

// ─── Table validation ──────────────────────────────────────────────

func TestNew_RejectsAmbiguousTopic(t *testing.T) {
	table := Table{
		{Topic: "sensor/greenhouse/temperature", Kind: KindReading, Sensor: greenhouse.SensorTemperature},
		{Topic: "sensor/greenhouse/temperature", Kind: KindReading, Sensor: greenhouse.SensorHumidity},
	}
	if _, err := New(table); !errors.Is(err, ErrAmbiguousTopic) {
		t.Errorf("New() error = %v, want ErrAmbiguousTopic", err)
	}
}

func TestNew_RejectsSharedReportTopic(t *testing.T) {
	cfg := config.Default().Topics
	cfg.Actuators[0].ModeStateTopic = cfg.Actuators[0].CommandTopic

	table, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if _, err := New(table); !errors.Is(err, ErrAmbiguousTopic) {
		t.Errorf("New() error = %v, want ErrAmbiguousTopic", err)
	}
}

func TestNew_RejectsInvalidRoutes(t *testing.T) {
	tests := []struct {
		name  string
		route Route
	}{
		{"empty topic", Route{Kind: KindReading, Sensor: greenhouse.SensorHumidity}},
		{"plus wildcard", Route{Topic: "sensor/+/humidity", Kind: KindReading, Sensor: greenhouse.SensorHumidity}},
		{"hash wildcard", Route{Topic: "sensor/#", Kind: KindReading, Sensor: greenhouse.SensorHumidity}},
		{"reading without sensor", Route{Topic: "a/b", Kind: KindReading}},
		{"report without actuator", Route{Topic: "a/b", Kind: KindActuatorReport}},
		{"bundle without layout", Route{Topic: "a/b", Kind: KindBundle}},
		{"unknown kind", Route{Topic: "a/b", Kind: "telepathy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(Table{tt.route}); !errors.Is(err, ErrInvalidRoute) {
				t.Errorf("New() error = %v, want ErrInvalidRoute", err)
			}
		})
	}
}

func TestValidateCoverage(t *testing.T) {
	table, err := FromConfig(config.Default().Topics)
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}

	if err := table.ValidateCoverage(config.Default().MQTT.Subscriptions); err != nil {
		t.Errorf("default table not covered by default subscriptions: %v", err)
	}

	err = table.ValidateCoverage([]string{"sensor/greenhouse/#"})
	if !errors.Is(err, ErrUncoveredTopic) {
		t.Errorf("ValidateCoverage() error = %v, want ErrUncoveredTopic", err)
	}
}

func TestFromConfig_UnknownNames(t *testing.T) {
	cfg := config.TopicsConfig{
		Sensors: []config.SensorTopicConfig{{Topic: "a", Sensor: "Pressure"}},
	}
	if _, err := FromConfig(cfg); !errors.Is(err, greenhouse.ErrUnknownSensor) {
		t.Errorf("FromConfig() error = %v, want ErrUnknownSensor", err)
	}
}

func TestTopicsSorted(t *testing.T) {
	table := Table{{Topic: "b"}, {Topic: "a"}, {Topic: "c"}}
	got := table.Topics()
	if got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("Topics() = %v, want sorted", got)
	}
	if len(Kinds()) != 4 {
		t.Errorf("Kinds() = %v", Kinds())
	}
}

// ─── Filter matching ───────────────────────────────────────────────

func TestMatchFilter(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		want   bool
	}{
		{"sensor/greenhouse/#", "sensor/greenhouse/moisture", true},
		{"sensor/greenhouse/#", "sensor/greenhouse", true},
		{"sensor/greenhouse/#", "sensor/shed/moisture", false},
		{"#", "anything/at/all", true},
		{"sensor/+/moisture", "sensor/greenhouse/moisture", true},
		{"sensor/+/moisture", "sensor/greenhouse/humidity", false},
		{"sensor/+", "sensor/greenhouse/moisture", false},
		{"cmnd/greenhouse/pump", "cmnd/greenhouse/pump", true},
		{"cmnd/greenhouse/pump", "cmnd/greenhouse/pump_mode", false},
		{"a/b/c", "a/b", false},
	}

	for _, tt := range tests {
		if got := MatchFilter(tt.filter, tt.topic); got != tt.want {
			t.Errorf("MatchFilter(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.want)
		}
	}
}
