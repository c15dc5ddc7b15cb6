package mqtt

import (
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// onMessage is the paho callback for every subscription. It copies the
// message onto the inbound queue and returns without blocking paho.
func (s *Supervisor) onMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	s.metrics.IncMessagesReceived()

	payload := make([]byte, len(msg.Payload()))
	copy(payload, msg.Payload())

	select {
	case s.inbound <- inboundMessage{topic: msg.Topic(), payload: payload}:
	default:
		s.metrics.IncMessagesDropped()
		s.logger.Warn("mqtt inbound queue full, message dropped",
			"topic", msg.Topic(),
			"capacity", cap(s.inbound),
		)
	}
}

// dispatchLoop hands queued messages to the handler one at a time.
func (s *Supervisor) dispatchLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.inbound:
			s.deliver(msg)
		}
	}
}

// deliver runs the handler with panic recovery.
func (s *Supervisor) deliver(msg inboundMessage) {
	s.handlerMu.RLock()
	handler := s.handler
	s.handlerMu.RUnlock()

	if handler == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("MQTT handler panic recovered",
				"topic", msg.topic,
				"panic", r,
			)
		}
	}()

	if err := handler(msg.topic, msg.payload); err != nil {
		s.logger.Warn("MQTT handler returned error",
			"topic", msg.topic,
			"error", err,
		)
	}
}
