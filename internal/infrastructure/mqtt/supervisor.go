package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/geeOnama940515/iot-garden/internal/infrastructure/config"
)

// Status is the state of the broker connection.
//
// Transitions:
//
//	Disconnected → Connecting          Start
//	Connecting   → Connected           connect acknowledged
//	Connecting   → Offline             connect attempt failed
//	Connected    → Offline             connection lost
//	Offline      → Connecting          after the reconnect delay
//	any          → Disconnected        Stop
type Status string

// Connection states.
const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusOffline      Status = "offline"
)

// ClientFactory creates a paho client from options.
// Tests substitute a fake; production uses pahomqtt.NewClient.
type ClientFactory func(opts *pahomqtt.ClientOptions) pahomqtt.Client

// MessageHandler is the callback signature for received messages.
//
// Handlers are invoked one at a time from the supervisor's dispatch
// goroutine, never concurrently. A returned error is logged.
type MessageHandler func(topic string, payload []byte) error

// StatusObserver is notified of every status transition, in order, from the
// supervisor goroutine. Observers must not block for long.
type StatusObserver func(Status)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Metrics receives supervisor counters. All methods must be safe for
// concurrent use.
type Metrics interface {
	SetConnectionStatus(status string)
	IncConnectAttempts(result string)
	IncMessagesReceived()
	IncMessagesDropped()
	IncPublishes(result string)
}

// Conn is a handle to one established broker session.
//
// Callers racing on Supervisor.Connection receive the same *Conn. A handle
// stays current until the session drops; the next session gets a new handle
// with a new ID.
type Conn struct {
	id          string
	connectedAt time.Time
	client      pahomqtt.Client
	sup         *Supervisor
}

// ID returns the unique identity of this session.
func (c *Conn) ID() string { return c.id }

// ConnectedAt returns when the session was established.
func (c *Conn) ConnectedAt() time.Time { return c.connectedAt }

// Current reports whether this handle is still the live session.
func (c *Conn) Current() bool {
	c.sup.mu.Lock()
	defer c.sup.mu.Unlock()
	return c.sup.status == StatusConnected && c.sup.conn == c
}

// Publish sends a message on this session. It fails with ErrNotConnected
// once the session is no longer current.
func (c *Conn) Publish(topic string, payload []byte) error {
	if !c.Current() {
		return ErrNotConnected
	}
	return c.sup.publish(c.client, topic, payload, false)
}

type inboundMessage struct {
	topic   string
	payload []byte
}

type subscription struct {
	filter string
	qos    byte
}

// Supervisor owns the single broker connection.
//
// It drives an explicit state machine with a fixed reconnect delay and
// unbounded retries, re-issues the full subscription set on every connect,
// and funnels all inbound messages through one dispatch goroutine.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Message handlers and status observers never run concurrently with
//     themselves.
type Supervisor struct {
	cfg       config.MQTTConfig
	clientID  string
	newClient ClientFactory
	logger    Logger
	metrics   Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	status  Status
	conn    *Conn
	ready   chan struct{} // closed while status == StatusConnected
	started bool
	stopped bool

	subMu sync.RWMutex
	subs  []subscription

	handlerMu sync.RWMutex
	handler   MessageHandler

	obsMu     sync.RWMutex
	observers []StatusObserver

	inbound chan inboundMessage
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithClientFactory overrides how paho clients are created.
func WithClientFactory(f ClientFactory) Option {
	return func(s *Supervisor) { s.newClient = f }
}

// WithLogger sets the logger. Without one, nothing is logged.
func WithLogger(l Logger) Option {
	return func(s *Supervisor) { s.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Supervisor) { s.metrics = m }
}

// NewSupervisor creates a Supervisor in the Disconnected state.
//
// The subscription filters from cfg.Subscriptions are registered up front.
// Nothing touches the network until Start or Connection is called.
func NewSupervisor(cfg config.MQTTConfig, opts ...Option) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Supervisor{
		cfg:       cfg,
		clientID:  buildClientID(cfg),
		newClient: pahomqtt.NewClient,
		logger:    nopLogger{},
		metrics:   nopMetrics{},
		ctx:       ctx,
		cancel:    cancel,
		status:    StatusDisconnected,
		ready:     make(chan struct{}),
		inbound:   make(chan inboundMessage, inboundQueue(cfg)),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, f := range cfg.Subscriptions {
		s.subs = append(s.subs, subscription{filter: f, qos: byte(cfg.QoS)})
	}

	return s
}

// ClientID returns the client ID presented to the broker.
func (s *Supervisor) ClientID() string { return s.clientID }

// Status returns the current connection state.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// IsConnected reports whether the supervisor is in the Connected state.
func (s *Supervisor) IsConnected() bool {
	return s.Status() == StatusConnected
}

// Start launches the connection loop and the dispatch loop.
// It returns immediately; calling it again is a no-op.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}
	s.started = true

	s.wg.Add(2)
	go s.dispatchLoop()
	go s.connectionLoop()
	return nil
}

// Stop disconnects and shuts down both loops. It is safe to call more than
// once and at any point, including while a connection attempt is in flight.
// The supervisor ends in the Disconnected state and cannot be restarted.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// Connection returns the live session, connecting first if needed.
//
// If the supervisor is Connected, the current handle is returned at once.
// Otherwise the supervisor is started (if it was not already) and the call
// waits for the next Connected transition or for ctx to end. Concurrent
// callers observe the same handle.
func (s *Supervisor) Connection(ctx context.Context) (*Conn, error) {
	if err := s.Start(); err != nil {
		return nil, err
	}

	for {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return nil, ErrStopped
		}
		if s.status == StatusConnected {
			conn := s.conn
			s.mu.Unlock()
			return conn, nil
		}
		ready := s.ready
		s.mu.Unlock()

		select {
		case <-ready:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrNotConnected, ctx.Err())
		case <-s.ctx.Done():
			return nil, ErrStopped
		}
	}
}

// SetMessageHandler sets the handler for every inbound message.
func (s *Supervisor) SetMessageHandler(h MessageHandler) {
	s.handlerMu.Lock()
	s.handler = h
	s.handlerMu.Unlock()
}

// AddStatusObserver registers an observer for status transitions.
func (s *Supervisor) AddStatusObserver(o StatusObserver) {
	s.obsMu.Lock()
	s.observers = append(s.observers, o)
	s.obsMu.Unlock()
}

// HealthCheck verifies the MQTT connection is up.
func (s *Supervisor) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !s.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// connectionLoop runs the state machine until Stop.
func (s *Supervisor) connectionLoop() {
	defer s.wg.Done()
	defer s.setStatus(StatusDisconnected, nil)

	delay := reconnectDelay(s.cfg)

	for {
		s.setStatus(StatusConnecting, nil)

		client, lost, err := s.connect()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.metrics.IncConnectAttempts("failure")
			s.logger.Warn("mqtt connect failed",
				"broker", brokerURL(s.cfg),
				"retry_in", delay,
				"error", err,
			)
			s.setStatus(StatusOffline, nil)
			if !s.sleep(delay) {
				return
			}
			continue
		}
		s.metrics.IncConnectAttempts("success")

		conn := &Conn{
			id:          uuid.NewString(),
			connectedAt: time.Now(),
			client:      client,
			sup:         s,
		}
		s.setStatus(StatusConnected, conn)
		s.logger.Info("mqtt connected",
			"broker", brokerURL(s.cfg),
			"client_id", s.clientID,
			"conn_id", conn.id,
		)

		if err := s.resubscribeAll(client); err != nil {
			s.logger.Warn("mqtt subscriptions incomplete", "error", err)
		}
		s.publishAvailability(client, onlinePayload(s.cfg))

		select {
		case <-s.ctx.Done():
			s.publishAvailability(client, offlinePayload(s.cfg))
			client.Disconnect(defaultDisconnectQuiesce)
			return

		case err := <-lost:
			s.logger.Warn("mqtt connection lost",
				"conn_id", conn.id,
				"retry_in", delay,
				"error", err,
			)
			s.setStatus(StatusOffline, nil)
			if !s.sleep(delay) {
				return
			}
		}
	}
}

// connect performs one connection attempt. The returned channel receives
// the error if the established connection later drops.
func (s *Supervisor) connect() (pahomqtt.Client, <-chan error, error) {
	lost := make(chan error, 1)

	opts := buildClientOptions(s.cfg, s.clientID)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		if err == nil {
			err = ErrConnectionLost
		}
		select {
		case lost <- err:
		default:
		}
	})

	client := s.newClient(opts)
	token := client.Connect()

	timeout := connectTimeout(s.cfg)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-timer.C:
		client.Disconnect(0)
		return nil, nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, timeout)
	case <-s.ctx.Done():
		client.Disconnect(0)
		return nil, nil, s.ctx.Err()
	}

	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return client, lost, nil
}

// sleep waits for d or until Stop. It reports false when stopped.
func (s *Supervisor) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// setStatus records a transition and notifies observers. Only the
// connection loop calls it, which keeps notifications ordered.
func (s *Supervisor) setStatus(next Status, conn *Conn) {
	s.mu.Lock()
	prev := s.status
	if prev == next {
		s.mu.Unlock()
		return
	}
	s.status = next
	switch {
	case next == StatusConnected:
		s.conn = conn
		close(s.ready)
	case prev == StatusConnected:
		s.conn = nil
		s.ready = make(chan struct{})
	}
	s.mu.Unlock()

	s.metrics.SetConnectionStatus(string(next))
	s.logger.Debug("mqtt status changed", "from", prev, "to", next)

	s.obsMu.RLock()
	observers := make([]StatusObserver, len(s.observers))
	copy(observers, s.observers)
	s.obsMu.RUnlock()

	for _, o := range observers {
		s.notify(o, next)
	}
}

func (s *Supervisor) notify(o StatusObserver, status Status) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("mqtt status observer panic recovered", "status", status, "panic", r)
		}
	}()
	o(status)
}

// publishAvailability publishes the retained availability payload, if configured.
func (s *Supervisor) publishAvailability(client pahomqtt.Client, payload string) {
	topic := s.cfg.Availability.Topic
	if topic == "" {
		return
	}
	token := client.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(publishTimeout(s.cfg)) {
		s.logger.Warn("mqtt availability publish timed out", "topic", topic)
		return
	}
	if err := token.Error(); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("mqtt availability publish failed", "topic", topic, "error", err)
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type nopMetrics struct{}

func (nopMetrics) SetConnectionStatus(string) {}
func (nopMetrics) IncConnectAttempts(string)  {}
func (nopMetrics) IncMessagesReceived()       {}
func (nopMetrics) IncMessagesDropped()        {}
func (nopMetrics) IncPublishes(string)        {}
