package mqtt

import (
	"fmt"
	"strings"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends a message on the current session with the configured QoS.
//
// Publish never queues: if the supervisor is not Connected the call fails
// immediately with ErrNotConnected and the message is dropped. Callers that
// need delivery must retry themselves.
//
// Parameters:
//   - topic: The exact topic to publish to (no wildcards)
//   - payload: The message payload (max 1MB)
//
// Returns:
//   - error: nil on success, ErrNotConnected when offline, or a wrapped
//     ErrPublishFailed describing the failure
func (s *Supervisor) Publish(topic string, payload []byte) error {
	s.mu.Lock()
	if s.status != StatusConnected || s.conn == nil {
		s.mu.Unlock()
		s.metrics.IncPublishes("not_connected")
		return ErrNotConnected
	}
	client := s.conn.client
	s.mu.Unlock()

	return s.publish(client, topic, payload, false)
}

// PublishRetained is Publish with the retained flag set.
func (s *Supervisor) PublishRetained(topic string, payload []byte) error {
	s.mu.Lock()
	if s.status != StatusConnected || s.conn == nil {
		s.mu.Unlock()
		s.metrics.IncPublishes("not_connected")
		return ErrNotConnected
	}
	client := s.conn.client
	s.mu.Unlock()

	return s.publish(client, topic, payload, true)
}

func (s *Supervisor) publish(client pahomqtt.Client, topic string, payload []byte, retained bool) error {
	if err := validatePublishTopic(topic); err != nil {
		return err
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	timeout := publishTimeout(s.cfg)
	token := client.Publish(topic, byte(s.cfg.QoS), retained, payload)
	if !token.WaitTimeout(timeout) {
		s.metrics.IncPublishes("timeout")
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, timeout)
	}
	if err := token.Error(); err != nil {
		s.metrics.IncPublishes("error")
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	s.metrics.IncPublishes("ok")
	s.logger.Debug("mqtt published", "topic", topic, "bytes", len(payload))
	return nil
}

func validatePublishTopic(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: empty topic", ErrInvalidTopic)
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: wildcard in publish topic %q", ErrInvalidTopic, topic)
	}
	return nil
}
