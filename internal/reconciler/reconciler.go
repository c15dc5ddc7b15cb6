package reconciler

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/geeOnama940515/iot-garden/internal/greenhouse"
)

// Notification channels.
const (
	ChannelConnectivity = "connectivity.changed"
	ChannelActuator     = "actuator.changed"
	ChannelReading      = "reading.observed"
)

const defaultHistoryLimit = 100

// Router turns a bus message into events.
type Router interface {
	Route(topic string, payload []byte) ([]greenhouse.Event, error)
}

// Publisher sends a payload on the bus. It must fail fast when offline.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Sink receives observed readings for history. Forward must not block.
type Sink interface {
	Forward(r greenhouse.Reading)
}

// Broadcaster pushes notifications to consumers. Broadcast must not block.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Logger interface for optional logging support.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Metrics receives reconciler counters.
type Metrics interface {
	IncDecodeErrors()
	IncReadings(sensor string)
	IncCommands(kind, result string)
}

// Options configures a Reconciler. Router and Commands are required for
// HandleMessage and Toggle respectively; the rest are optional.
type Options struct {
	Router    Router
	Publisher Publisher
	Sink      Sink
	Commands  *Commands
	Logger    Logger
	Metrics   Metrics

	// HistoryLimit caps the recent-readings list. Defaults to 100.
	HistoryLimit int

	// Now overrides the clock. Used by tests.
	Now func() time.Time
}

// Reconciler is the authoritative controller state.
//
// Thread Safety: All methods are safe for concurrent use.
type Reconciler struct {
	router    Router
	publisher Publisher
	sink      Sink
	commands  *Commands
	logger    Logger
	metrics   Metrics
	limit     int
	now       func() time.Time

	// cmdMu serialises toggles from decision through publish, so the
	// last optimistic update is always the last command on the bus.
	cmdMu sync.Mutex

	mu           sync.Mutex
	readings     map[greenhouse.SensorKind]greenhouse.Reading
	actuators    map[greenhouse.Actuator]greenhouse.ActuatorState
	recent       []greenhouse.Reading // newest first
	connectivity greenhouse.Connectivity
	updatedAt    time.Time

	bmu         sync.RWMutex
	broadcaster Broadcaster
}

// New creates a Reconciler with every known actuator off and out of auto mode.
func New(opts Options) *Reconciler {
	r := &Reconciler{
		router:       opts.Router,
		publisher:    opts.Publisher,
		sink:         opts.Sink,
		commands:     opts.Commands,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		limit:        opts.HistoryLimit,
		now:          opts.Now,
		readings:     make(map[greenhouse.SensorKind]greenhouse.Reading),
		actuators:    make(map[greenhouse.Actuator]greenhouse.ActuatorState),
		connectivity: greenhouse.ConnectivityDisconnected,
	}
	if r.logger == nil {
		r.logger = nopLogger{}
	}
	if r.metrics == nil {
		r.metrics = nopMetrics{}
	}
	if r.limit <= 0 {
		r.limit = defaultHistoryLimit
	}
	if r.now == nil {
		r.now = time.Now
	}

	actuators := greenhouse.AllActuators
	if r.commands != nil {
		actuators = r.commands.Actuators()
	}
	for _, a := range actuators {
		r.actuators[a] = greenhouse.ActuatorState{Actuator: a}
	}
	return r
}

// SetBroadcaster sets the consumer notification target. Nil disables it.
func (r *Reconciler) SetBroadcaster(b Broadcaster) {
	r.bmu.Lock()
	defer r.bmu.Unlock()
	r.broadcaster = b
}

// HandleMessage routes one bus message and applies the resulting events.
// Events decoded before an error are still applied. Unknown topics are
// ignored. The returned error describes a payload that failed to decode.
func (r *Reconciler) HandleMessage(topic string, payload []byte) error {
	events, err := r.router.Route(topic, payload)
	for _, ev := range events {
		r.Apply(ev)
	}
	if err != nil {
		r.metrics.IncDecodeErrors()
		return fmt.Errorf("decoding %s: %w", topic, err)
	}
	return nil
}

// Apply updates state from one event. Reports overwrite the actuator bit
// they carry regardless of any optimistic value.
func (r *Reconciler) Apply(ev greenhouse.Event) {
	switch ev := ev.(type) {
	case greenhouse.ReadingObserved:
		r.applyReading(ev.Reading)
	case greenhouse.ActuatorReported:
		r.updateActuator(ev.Actuator, func(s *greenhouse.ActuatorState) { s.Energized = ev.Energized })
	case greenhouse.AutoModeReported:
		r.updateActuator(ev.Actuator, func(s *greenhouse.ActuatorState) { s.AutoMode = ev.Enabled })
	default:
		r.logger.Warn("ignoring unknown event", "type", fmt.Sprintf("%T", ev))
	}
}

func (r *Reconciler) applyReading(reading greenhouse.Reading) {
	r.mu.Lock()
	r.readings[reading.Sensor] = reading
	r.recent = prepend(r.recent, reading, r.limit)
	r.updatedAt = r.now()
	r.mu.Unlock()

	r.metrics.IncReadings(string(reading.Sensor))
	r.broadcast(ChannelReading, reading)

	if r.sink != nil {
		r.sink.Forward(reading)
	}
}

func (r *Reconciler) updateActuator(a greenhouse.Actuator, mutate func(*greenhouse.ActuatorState)) {
	r.mu.Lock()
	state, ok := r.actuators[a]
	if !ok {
		state = greenhouse.ActuatorState{Actuator: a}
	}
	mutate(&state)
	r.actuators[a] = state
	r.updatedAt = r.now()
	r.mu.Unlock()

	r.broadcast(ChannelActuator, state)
}

// Decide returns the command a toggle would publish given current state.
// It does not change state.
func (r *Reconciler) Decide(t greenhouse.Toggle) greenhouse.Command {
	r.mu.Lock()
	state := r.actuators[t.Actuator]
	r.mu.Unlock()
	return decide(state, t)
}

// Toggle applies a user toggle: it decides the command, updates local
// state optimistically and publishes.
//
// Toggles are serialised: a second toggle waits until the first one's
// publish has returned. Publish fails fast when offline, so the wait is
// bounded by the publish timeout.
//
// The returned command is valid even when the error wraps
// ErrCommandNotSent; the optimistic update stays in place until the bus
// reports otherwise.
func (r *Reconciler) Toggle(t greenhouse.Toggle) (greenhouse.Command, error) {
	switch t.Target {
	case greenhouse.TargetPower, greenhouse.TargetAutoMode:
	default:
		return nil, fmt.Errorf("%w: %q", greenhouse.ErrUnknownTarget, t.Target)
	}

	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()

	r.mu.Lock()
	state, ok := r.actuators[t.Actuator]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", greenhouse.ErrUnknownActuator, t.Actuator)
	}

	cmd := decide(state, t)
	topic, payload, err := r.encode(cmd)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}

	state = optimistic(state, t)
	r.actuators[t.Actuator] = state
	r.updatedAt = r.now()
	r.mu.Unlock()

	r.broadcast(ChannelActuator, state)

	if err := r.publish(topic, payload); err != nil {
		r.metrics.IncCommands(cmd.Kind(), "error")
		r.logger.Warn("command not sent", "toggle", t.String(), "topic", topic, "error", err)
		return cmd, fmt.Errorf("%w: %w", ErrCommandNotSent, err)
	}

	r.metrics.IncCommands(cmd.Kind(), "ok")
	r.logger.Debug("command sent", "toggle", t.String(), "command", cmd.Kind(), "topic", topic)
	return cmd, nil
}

func (r *Reconciler) encode(cmd greenhouse.Command) (string, []byte, error) {
	if r.commands == nil {
		return "", nil, fmt.Errorf("%w: no command encoder", ErrNoTopic)
	}
	return r.commands.Encode(cmd)
}

func (r *Reconciler) publish(topic string, payload []byte) error {
	if r.publisher == nil {
		return errors.New("no publisher configured")
	}
	return r.publisher.Publish(topic, payload)
}

// SetConnectivity records the bus connection status for consumers.
func (r *Reconciler) SetConnectivity(c greenhouse.Connectivity) {
	r.mu.Lock()
	changed := r.connectivity != c
	r.connectivity = c
	r.mu.Unlock()

	if changed {
		r.broadcast(ChannelConnectivity, map[string]greenhouse.Connectivity{"connectivity": c})
	}
}

// Connectivity returns the last recorded bus status.
func (r *Reconciler) Connectivity() greenhouse.Connectivity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connectivity
}

// Seed loads historical readings at startup. Order of the input does not
// matter. Current values are set from the newest reading per sensor unless
// a newer live reading is already held. Seeded readings are not forwarded
// to the sink.
func (r *Reconciler) Seed(readings []greenhouse.Reading) {
	if len(readings) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	merged := make([]greenhouse.Reading, 0, len(r.recent)+len(readings))
	merged = append(merged, r.recent...)
	merged = append(merged, readings...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].ObservedAt.After(merged[j].ObservedAt)
	})
	if len(merged) > r.limit {
		merged = merged[:r.limit]
	}
	r.recent = merged

	for _, reading := range readings {
		cur, ok := r.readings[reading.Sensor]
		if !ok || reading.ObservedAt.After(cur.ObservedAt) {
			r.readings[reading.Sensor] = reading
		}
	}
	r.updatedAt = r.now()
}

// Snapshot returns a copy of the current state.
func (r *Reconciler) Snapshot() greenhouse.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := greenhouse.Snapshot{
		Readings:     make(map[greenhouse.SensorKind]greenhouse.Reading, len(r.readings)),
		Actuators:    make(map[greenhouse.Actuator]greenhouse.ActuatorState, len(r.actuators)),
		Connectivity: r.connectivity,
		UpdatedAt:    r.updatedAt,
	}
	for k, v := range r.readings {
		snap.Readings[k] = v
	}
	for k, v := range r.actuators {
		snap.Actuators[k] = v
	}
	return snap
}

// Actuator returns the current state of one actuator.
func (r *Reconciler) Actuator(a greenhouse.Actuator) (greenhouse.ActuatorState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.actuators[a]
	return s, ok
}

// Recent returns up to limit recent readings, newest first. A non-positive
// limit returns all of them.
func (r *Reconciler) Recent(limit int) []greenhouse.Reading {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.recent)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]greenhouse.Reading, n)
	copy(out, r.recent[:n])
	return out
}

func (r *Reconciler) broadcast(channel string, payload any) {
	r.bmu.RLock()
	b := r.broadcaster
	r.bmu.RUnlock()
	if b != nil {
		b.Broadcast(channel, payload)
	}
}

// prepend inserts reading at the front of list, keeping at most limit items.
func prepend(list []greenhouse.Reading, reading greenhouse.Reading, limit int) []greenhouse.Reading {
	if len(list) < limit {
		list = append(list, greenhouse.Reading{})
	}
	copy(list[1:], list)
	list[0] = reading
	return list
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type nopMetrics struct{}

func (nopMetrics) IncDecodeErrors()           {}
func (nopMetrics) IncReadings(string)         {}
func (nopMetrics) IncCommands(string, string) {}
