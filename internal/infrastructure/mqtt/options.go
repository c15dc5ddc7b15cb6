package mqtt

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/geeOnama940515/iot-garden/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is used when the config leaves connect_timeout unset.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is used when the config leaves publish_timeout unset.
	defaultPublishTimeout = 5 * time.Second

	// defaultReconnectDelay is used when the config leaves reconnect.delay unset.
	defaultReconnectDelay = time.Second

	// defaultInboundQueue is used when the config leaves inbound_queue unset.
	defaultInboundQueue = 256

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 250 // milliseconds

	// defaultKeepAlive is the keepalive interval when the config leaves it unset.
	defaultKeepAlive = 30 * time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// clientIDSuffixLen is the number of random hex characters appended to the client ID.
	clientIDSuffixLen = 12

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// brokerURL returns the broker address in paho's URL form.
func brokerURL(cfg config.MQTTConfig) string {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)
}

// buildClientID returns the client ID for this process.
//
// When UniqueClientID is set, a random suffix is appended so that two
// controller instances never take over each other's broker session.
func buildClientID(cfg config.MQTTConfig) string {
	id := cfg.Broker.ClientID
	if id == "" {
		id = "greenhouse"
	}
	if !cfg.Broker.UniqueClientID {
		return id
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:clientIDSuffixLen]
	return id + "_" + suffix
}

// buildClientOptions creates paho MQTT options for a single connection attempt.
//
// paho's own reconnect logic is disabled: the Supervisor drives reconnection
// itself so that every state change is observable.
func buildClientOptions(cfg config.MQTTConfig, clientID string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(brokerURL(cfg))
	opts.SetClientID(clientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// Clean session: subscriptions are re-issued explicitly on every connect.
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)

	opts.SetConnectTimeout(connectTimeout(cfg))

	keepAlive := defaultKeepAlive
	if cfg.KeepAlive > 0 {
		keepAlive = time.Duration(cfg.KeepAlive) * time.Second
	}
	opts.SetKeepAlive(keepAlive)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tlsMinVersion,
		})
	}

	configureLWT(opts, cfg)

	return opts
}

// configureLWT sets up Last Will and Testament for offline detection.
//
// The broker publishes the offline payload, retained, on the availability
// topic if the controller disappears without a clean disconnect.
func configureLWT(opts *pahomqtt.ClientOptions, cfg config.MQTTConfig) {
	if cfg.Availability.Topic == "" {
		return
	}
	opts.SetWill(cfg.Availability.Topic, offlinePayload(cfg), 1, true)
}

func onlinePayload(cfg config.MQTTConfig) string {
	if cfg.Availability.Online != "" {
		return cfg.Availability.Online
	}
	return "Online"
}

func offlinePayload(cfg config.MQTTConfig) string {
	if cfg.Availability.Offline != "" {
		return cfg.Availability.Offline
	}
	return "Offline"
}

func connectTimeout(cfg config.MQTTConfig) time.Duration {
	if cfg.ConnectTimeout > 0 {
		return cfg.ConnectTimeout
	}
	return defaultConnectTimeout
}

func publishTimeout(cfg config.MQTTConfig) time.Duration {
	if cfg.PublishTimeout > 0 {
		return cfg.PublishTimeout
	}
	return defaultPublishTimeout
}

func reconnectDelay(cfg config.MQTTConfig) time.Duration {
	if cfg.Reconnect.Delay > 0 {
		return cfg.Reconnect.Delay
	}
	return defaultReconnectDelay
}

func inboundQueue(cfg config.MQTTConfig) int {
	if cfg.InboundQueue > 0 {
		return cfg.InboundQueue
	}
	return defaultInboundQueue
}
