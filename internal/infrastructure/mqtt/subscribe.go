package mqtt

import (
	"errors"
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Subscribe adds a filter to the subscription set.
//
// Topics can include MQTT wildcards:
//   - + (single-level): "sensor/+/moisture"
//   - # (multi-level): "sensor/greenhouse/#"
//
// The whole set is re-issued on every entry into Connected. If the
// supervisor is Connected now, the filter is also subscribed immediately.
// Registering the same filter twice updates its QoS.
//
// Parameters:
//   - filter: The topic filter to subscribe to
//   - qos: Maximum QoS level for received messages (0, 1, or 2)
func (s *Supervisor) Subscribe(filter string, qos byte) error {
	if filter == "" {
		return fmt.Errorf("%w: empty filter", ErrInvalidTopic)
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}

	s.subMu.Lock()
	replaced := false
	for i := range s.subs {
		if s.subs[i].filter == filter {
			s.subs[i].qos = qos
			replaced = true
			break
		}
	}
	if !replaced {
		s.subs = append(s.subs, subscription{filter: filter, qos: qos})
	}
	s.subMu.Unlock()

	s.mu.Lock()
	var client pahomqtt.Client
	if s.status == StatusConnected && s.conn != nil {
		client = s.conn.client
	}
	s.mu.Unlock()

	if client == nil {
		return nil
	}
	return s.subscribeOne(client, subscription{filter: filter, qos: qos})
}

// Subscriptions returns the registered filters in registration order.
func (s *Supervisor) Subscriptions() []string {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	filters := make([]string, len(s.subs))
	for i, sub := range s.subs {
		filters[i] = sub.filter
	}
	return filters
}

// resubscribeAll issues every registered filter on client. A failing filter
// does not stop the rest; all failures are returned joined.
func (s *Supervisor) resubscribeAll(client pahomqtt.Client) error {
	s.subMu.RLock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.subMu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if err := s.subscribeOne(client, sub); err != nil {
			s.logger.Warn("mqtt subscribe failed", "filter", sub.filter, "error", err)
			errs = append(errs, err)
			continue
		}
		s.logger.Debug("mqtt subscribed", "filter", sub.filter, "qos", sub.qos)
	}
	return errors.Join(errs...)
}

func (s *Supervisor) subscribeOne(client pahomqtt.Client, sub subscription) error {
	timeout := publishTimeout(s.cfg)
	token := client.Subscribe(sub.filter, sub.qos, s.onMessage)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: %s: timeout after %v", ErrSubscribeFailed, sub.filter, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, sub.filter, err)
	}
	return nil
}
