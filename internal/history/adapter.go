package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/geeOnama940515/iot-garden/internal/greenhouse"
)

const (
	defaultQueueSize    = 128
	defaultWriteTimeout = 5 * time.Second
)

// Adapter fans readings out to a primary store and its mirrors.
//
// Thread Safety: All methods are safe for concurrent use.
type Adapter struct {
	store   Store
	mirrors []Mirror
	logger  Logger
	metrics Metrics
	timeout time.Duration

	queue chan greenhouse.Reading

	mu      sync.Mutex
	started bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithMirror adds a best-effort mirror.
func WithMirror(m Mirror) Option {
	return func(a *Adapter) {
		if m != nil {
			a.mirrors = append(a.mirrors, m)
		}
	}
}

// WithLogger sets the adapter logger.
func WithLogger(l Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics sets the adapter metrics sink.
func WithMetrics(m Metrics) Option {
	return func(a *Adapter) {
		if m != nil {
			a.metrics = m
		}
	}
}

// WithTimeout bounds each store call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithQueueSize sets the Forward queue capacity. Non-positive values keep
// the default.
func WithQueueSize(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.queue = make(chan greenhouse.Reading, n)
		}
	}
}

// NewAdapter creates an adapter over store.
func NewAdapter(store Store, opts ...Option) *Adapter {
	a := &Adapter{
		store:   store,
		logger:  nopLogger{},
		metrics: nopMetrics{},
		timeout: defaultWriteTimeout,
		queue:   make(chan greenhouse.Reading, defaultQueueSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Record appends r to the primary store and copies it to every mirror.
// Mirrors are written whether or not the store succeeds.
func (a *Adapter) Record(ctx context.Context, r greenhouse.Reading) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	err := a.store.Append(ctx, r)

	for _, m := range a.mirrors {
		m.WriteReading(r)
	}

	if err != nil {
		a.metrics.IncHistoryWrites("error")
		return fmt.Errorf("%w: append %s: %w", ErrSink, r.Sensor, err)
	}
	a.metrics.IncHistoryWrites("ok")
	return nil
}

// LoadHistory reads every stored reading, newest first.
//
// A store error with no readings is returned as ErrSink. When the store
// returns readings alongside an error, the error is logged and the
// readings are kept.
func (a *Adapter) LoadHistory(ctx context.Context) ([]greenhouse.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	readings, err := a.store.List(ctx)
	if err != nil {
		if len(readings) == 0 {
			return nil, fmt.Errorf("%w: list: %w", ErrSink, err)
		}
		a.logger.Warn("history contained unreadable records", "error", err, "kept", len(readings))
	}

	sortNewestFirst(readings)
	return readings, nil
}

// Forward enqueues r for the background worker without blocking.
// Readings are dropped when the queue is full or the adapter is stopped.
func (a *Adapter) Forward(r greenhouse.Reading) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		a.metrics.IncHistoryDropped()
		return
	}

	select {
	case a.queue <- r:
	default:
		a.metrics.IncHistoryDropped()
		a.logger.Warn("history queue full, reading dropped", "sensor", r.Sensor)
	}
}

// Start launches the worker that drains the Forward queue.
// Calling Start more than once has no effect.
//
// ctx supplies values for store calls only; its cancellation does not stop
// the worker. Stop is the only way to end it, so readings forwarded while
// the rest of the process shuts down are still written.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return ErrStopped
	}
	if a.started {
		return nil
	}
	a.started = true

	go a.run(ctx)
	return nil
}

// Stop halts the worker after it writes whatever is already queued.
// It is safe to call more than once.
func (a *Adapter) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	started := a.started
	close(a.stop)
	a.mu.Unlock()

	if started {
		<-a.done
	}
}

func (a *Adapter) run(ctx context.Context) {
	defer close(a.done)
	ctx = context.WithoutCancel(ctx)

	for {
		select {
		case r := <-a.queue:
			a.write(ctx, r)
		case <-a.stop:
			a.drain()
			return
		}
	}
}

// drain writes whatever is still queued.
func (a *Adapter) drain() {
	for {
		select {
		case r := <-a.queue:
			a.write(context.Background(), r)
		default:
			return
		}
	}
}

func (a *Adapter) write(ctx context.Context, r greenhouse.Reading) {
	if err := a.Record(ctx, r); err != nil {
		a.logger.Warn("history write failed", "sensor", r.Sensor, "error", err)
	}
}

// sortNewestFirst orders readings by observation time, newest first.
// Equal timestamps keep their relative order.
func sortNewestFirst(readings []greenhouse.Reading) {
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].ObservedAt.After(readings[j].ObservedAt)
	})
}
