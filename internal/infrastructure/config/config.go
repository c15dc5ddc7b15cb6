package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/geeOnama940515/iot-garden/internal/greenhouse"
)

// Config is the root configuration structure for the greenhouse controller.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Topics    TopicsConfig    `yaml:"topics"`
	History   HistoryConfig   `yaml:"history"`
	Database  DatabaseConfig  `yaml:"database"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteConfig identifies the installation.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker       MQTTBrokerConfig       `yaml:"broker"`
	Auth         MQTTAuthConfig         `yaml:"auth"`
	QoS          int                    `yaml:"qos"`
	Reconnect    MQTTReconnectConfig    `yaml:"reconnect"`
	Availability MQTTAvailabilityConfig `yaml:"availability"`

	// Subscriptions is the filter set issued on every successful connect.
	Subscriptions []string `yaml:"subscriptions"`

	// KeepAlive is the MQTT keepalive interval in seconds.
	KeepAlive int `yaml:"keep_alive"`

	// ConnectTimeout bounds a single connection attempt.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// PublishTimeout bounds the wait for a publish acknowledgement.
	PublishTimeout time.Duration `yaml:"publish_timeout"`

	// InboundQueue is the capacity of the inbound message queue.
	InboundQueue int `yaml:"inbound_queue"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`

	// UniqueClientID appends a random suffix to ClientID so that two
	// processes never share a session on the broker.
	UniqueClientID bool `yaml:"unique_client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
// Reconnection uses a fixed delay and retries without limit.
type MQTTReconnectConfig struct {
	Delay time.Duration `yaml:"delay"`
}

// MQTTAvailabilityConfig configures the retained online/offline status topic
// and the matching Last Will. An empty Topic disables it.
type MQTTAvailabilityConfig struct {
	Topic   string `yaml:"topic"`
	Online  string `yaml:"online"`
	Offline string `yaml:"offline"`
}

// TopicsConfig describes the bus topic namespace.
type TopicsConfig struct {
	Sensors   []SensorTopicConfig   `yaml:"sensors"`
	Actuators []ActuatorTopicConfig `yaml:"actuators"`
	Bundles   []BundleTopicConfig   `yaml:"bundles"`
}

// SensorTopicConfig maps a topic carrying a single numeric reading.
type SensorTopicConfig struct {
	Topic  string `yaml:"topic"`
	Sensor string `yaml:"sensor"`
}

// ActuatorTopicConfig describes the topics of one actuator.
type ActuatorTopicConfig struct {
	Name string `yaml:"name"`

	// CommandTopic receives power commands.
	CommandTopic string `yaml:"command_topic"`

	// StateTopic carries power reports. Defaults to CommandTopic, since
	// the devices echo their state on the command topic.
	StateTopic string `yaml:"state_topic"`

	// ModeTopic receives auto-mode commands.
	ModeTopic string `yaml:"mode_topic"`

	// ModeStateTopic carries auto-mode reports. Defaults to ModeTopic.
	ModeStateTopic string `yaml:"mode_state_topic"`

	// Tokens selects the power token grammar: "on_off" (default) or "one_zero".
	Tokens string `yaml:"tokens"`
}

// BundleTopicConfig maps a JSON telemetry topic carrying several readings.
type BundleTopicConfig struct {
	Topic  string `yaml:"topic"`
	Sensor string `yaml:"sensor"`
	// Fields maps JSON keys inside the sensor object to sensor kinds.
	Fields map[string]string `yaml:"fields"`
}

// History backends.
const (
	HistoryBackendREST   = "rest"
	HistoryBackendSQLite = "sqlite"
)

// HistoryConfig configures where readings are recorded.
type HistoryConfig struct {
	// Backend is "rest" (external history service) or "sqlite" (local database).
	Backend string `yaml:"backend"`

	// URL is the base URL of the history service for the rest backend.
	URL string `yaml:"url"`

	// Timeout bounds each history request.
	Timeout time.Duration `yaml:"timeout"`

	// QueueSize is the capacity of the fire-and-forget forwarding queue.
	QueueSize int `yaml:"queue_size"`

	// RecentLimit caps the in-memory list of recent readings.
	RecentLimit int `yaml:"recent_limit"`

	// LoadOnStart seeds the recent list from the backend at startup.
	LoadOnStart bool `yaml:"load_on_start"`

	// Retention prunes local readings older than this. Zero keeps everything.
	Retention time.Duration `yaml:"retention"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GREENHOUSE_SECTION_KEY
// For example: GREENHOUSE_MQTT_HOST, GREENHOUSE_HISTORY_URL
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config describing the stock greenhouse deployment:
// a DHT11 and a soil moisture sensor publishing under sensor/greenhouse,
// and a pump and fan controlled under cmnd/greenhouse.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "greenhouse-001",
			Name: "Greenhouse",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:           "localhost",
				Port:           1883,
				ClientID:       "greenhouse",
				UniqueClientID: true,
			},
			QoS: 0,
			Reconnect: MQTTReconnectConfig{
				Delay: time.Second,
			},
			Availability: MQTTAvailabilityConfig{
				Topic:   "greenhouse/controller/status",
				Online:  "Online",
				Offline: "Offline",
			},
			Subscriptions: []string{
				"sensor/greenhouse/#",
				"cmnd/greenhouse/#",
				"tele/greenhouse/#",
			},
			KeepAlive:      30,
			ConnectTimeout: 10 * time.Second,
			PublishTimeout: 5 * time.Second,
			InboundQueue:   256,
		},
		Topics: TopicsConfig{
			Sensors: []SensorTopicConfig{
				{Topic: "sensor/greenhouse/moisture", Sensor: "Moisture"},
				{Topic: "sensor/greenhouse/temperature", Sensor: "Temperature"},
				{Topic: "sensor/greenhouse/humidity", Sensor: "Humidity"},
			},
			Actuators: []ActuatorTopicConfig{
				{
					Name:         "pump",
					CommandTopic: "cmnd/greenhouse/pump",
					ModeTopic:    "cmnd/greenhouse/pump_mode",
					Tokens:       "on_off",
				},
				{
					Name:         "fan",
					CommandTopic: "cmnd/greenhouse/fan",
					ModeTopic:    "cmnd/greenhouse/fan_mode",
					Tokens:       "on_off",
				},
			},
			Bundles: []BundleTopicConfig{
				{
					Topic:  "tele/greenhouse/SENSOR",
					Sensor: "DHT11",
					Fields: map[string]string{
						"Temperature": "Temperature",
						"Humidity":    "Humidity",
					},
				},
			},
		},
		History: HistoryConfig{
			Backend:     HistoryBackendREST,
			URL:         "http://localhost:5016",
			Timeout:     5 * time.Second,
			QueueSize:   128,
			RecentLimit: 100,
			LoadOnStart: true,
		},
		Database: DatabaseConfig{
			Path:        "./data/greenhouse.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			Org:           "greenhouse",
			Bucket:        "readings",
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GREENHOUSE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("GREENHOUSE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GREENHOUSE_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("GREENHOUSE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GREENHOUSE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// History
	if v := os.Getenv("GREENHOUSE_HISTORY_URL"); v != "" {
		cfg.History.URL = v
	}
	if v := os.Getenv("GREENHOUSE_HISTORY_BACKEND"); v != "" {
		cfg.History.Backend = v
	}

	// Database
	if v := os.Getenv("GREENHOUSE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("GREENHOUSE_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("GREENHOUSE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// All problems are collected and reported together so that an operator can
// fix a config file in one pass.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// MQTT
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Reconnect.Delay <= 0 {
		errs = append(errs, "mqtt.reconnect.delay must be positive")
	}
	if len(c.MQTT.Subscriptions) == 0 {
		errs = append(errs, "mqtt.subscriptions must list at least one filter")
	}

	errs = append(errs, c.Topics.validate()...)

	// History
	switch c.History.Backend {
	case HistoryBackendREST:
		if c.History.URL == "" {
			errs = append(errs, "history.url is required for the rest backend")
		}
	case HistoryBackendSQLite:
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required for the sqlite backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("history.backend must be %q or %q", HistoryBackendREST, HistoryBackendSQLite))
	}
	if c.History.QueueSize < 1 {
		errs = append(errs, "history.queue_size must be at least 1")
	}

	// InfluxDB
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	// API
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (t TopicsConfig) validate() []string {
	var errs []string

	for i, s := range t.Sensors {
		if s.Topic == "" {
			errs = append(errs, fmt.Sprintf("topics.sensors[%d].topic is required", i))
		}
		if _, err := greenhouse.ParseSensorKind(s.Sensor); err != nil {
			errs = append(errs, fmt.Sprintf("topics.sensors[%d].sensor: %v", i, err))
		}
	}

	for i, a := range t.Actuators {
		if _, err := greenhouse.ParseActuator(a.Name); err != nil {
			errs = append(errs, fmt.Sprintf("topics.actuators[%d].name: %v", i, err))
		}
		if a.CommandTopic == "" {
			errs = append(errs, fmt.Sprintf("topics.actuators[%d].command_topic is required", i))
		}
		if a.ModeTopic == "" {
			errs = append(errs, fmt.Sprintf("topics.actuators[%d].mode_topic is required", i))
		}
	}

	for i, b := range t.Bundles {
		if b.Topic == "" || b.Sensor == "" {
			errs = append(errs, fmt.Sprintf("topics.bundles[%d] needs topic and sensor", i))
		}
		for key, kind := range b.Fields {
			if _, err := greenhouse.ParseSensorKind(kind); err != nil {
				errs = append(errs, fmt.Sprintf("topics.bundles[%d].fields.%s: %v", i, key, err))
			}
		}
	}

	return errs
}

// ReportTopic returns the topic carrying power reports for the actuator.
func (a ActuatorTopicConfig) ReportTopic() string {
	if a.StateTopic != "" {
		return a.StateTopic
	}
	return a.CommandTopic
}

// ModeReportTopic returns the topic carrying auto-mode reports for the actuator.
func (a ActuatorTopicConfig) ModeReportTopic() string {
	if a.ModeStateTopic != "" {
		return a.ModeStateTopic
	}
	return a.ModeTopic
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
