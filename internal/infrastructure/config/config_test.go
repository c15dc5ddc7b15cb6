package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
site:
  id: "test-site"
mqtt:
  broker:
    host: "192.168.1.179"
    port: 1993
    client_id: "mqtt"
  auth:
    username: "roger"
  reconnect:
    delay: 2s
history:
  backend: rest
  url: "http://localhost:5016"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.MQTT.Broker.Host != "192.168.1.179" || cfg.MQTT.Broker.Port != 1993 {
		t.Errorf("MQTT.Broker = %+v", cfg.MQTT.Broker)
	}
	if cfg.MQTT.Auth.Username != "roger" {
		t.Errorf("MQTT.Auth.Username = %q, want roger", cfg.MQTT.Auth.Username)
	}
	if cfg.MQTT.Reconnect.Delay != 2*time.Second {
		t.Errorf("MQTT.Reconnect.Delay = %v, want 2s", cfg.MQTT.Reconnect.Delay)
	}

	// Untouched sections keep their defaults.
	if len(cfg.Topics.Actuators) != 2 {
		t.Errorf("len(Topics.Actuators) = %d, want 2 defaults", len(cfg.Topics.Actuators))
	}
	if !cfg.MQTT.Broker.UniqueClientID {
		t.Error("UniqueClientID should default to true")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
site:
  id: ""
history:
  backend: "carrier-pigeon"
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	for _, want := range []string{"site.id", "history.backend"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GREENHOUSE_MQTT_HOST", "broker.local")
	t.Setenv("GREENHOUSE_MQTT_PORT", "8883")
	t.Setenv("GREENHOUSE_MQTT_PASSWORD", "s3cret")
	t.Setenv("GREENHOUSE_HISTORY_URL", "http://history:5016")
	t.Setenv("GREENHOUSE_DATABASE_PATH", "/var/lib/greenhouse.db")

	cfg, err := Load(writeConfig(t, "site:\n  id: env-site\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT.Broker.Port = %d", cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.Auth.Password != "s3cret" {
		t.Errorf("MQTT.Auth.Password not overridden")
	}
	if cfg.History.URL != "http://history:5016" {
		t.Errorf("History.URL = %q", cfg.History.URL)
	}
	if cfg.Database.Path != "/var/lib/greenhouse.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
}

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing broker host", func(c *Config) { c.MQTT.Broker.Host = "" }, "mqtt.broker.host"},
		{"invalid qos", func(c *Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
		{"zero reconnect delay", func(c *Config) { c.MQTT.Reconnect.Delay = 0 }, "mqtt.reconnect.delay"},
		{"no subscriptions", func(c *Config) { c.MQTT.Subscriptions = nil }, "mqtt.subscriptions"},
		{"unknown sensor", func(c *Config) { c.Topics.Sensors[0].Sensor = "pressure" }, "topics.sensors[0].sensor"},
		{"unknown actuator", func(c *Config) { c.Topics.Actuators[1].Name = "heater" }, "topics.actuators[1].name"},
		{"missing mode topic", func(c *Config) { c.Topics.Actuators[0].ModeTopic = "" }, "mode_topic"},
		{"bad bundle field", func(c *Config) { c.Topics.Bundles[0].Fields["Pressure"] = "Pressure" }, "topics.bundles[0].fields"},
		{"rest without url", func(c *Config) { c.History.URL = "" }, "history.url"},
		{"sqlite without path", func(c *Config) {
			c.History.Backend = HistoryBackendSQLite
			c.Database.Path = ""
		}, "database.path"},
		{"influx without url", func(c *Config) { c.InfluxDB.Enabled = true }, "influxdb.url"},
		{"invalid api port", func(c *Config) { c.API.Port = 70000 }, "api.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestActuatorReportTopics(t *testing.T) {
	a := ActuatorTopicConfig{CommandTopic: "cmnd/greenhouse/pump", ModeTopic: "cmnd/greenhouse/pump_mode"}
	if a.ReportTopic() != "cmnd/greenhouse/pump" {
		t.Errorf("ReportTopic() = %q, want command topic", a.ReportTopic())
	}
	if a.ModeReportTopic() != "cmnd/greenhouse/pump_mode" {
		t.Errorf("ModeReportTopic() = %q, want mode topic", a.ModeReportTopic())
	}

	a.StateTopic = "stat/greenhouse/pump"
	a.ModeStateTopic = "stat/greenhouse/pump_mode"
	if a.ReportTopic() != "stat/greenhouse/pump" || a.ModeReportTopic() != "stat/greenhouse/pump_mode" {
		t.Errorf("explicit state topics not used: %q, %q", a.ReportTopic(), a.ModeReportTopic())
	}
}

func TestTimeoutGetters(t *testing.T) {
	cfg := Default()
	if cfg.GetReadTimeout() != 30*time.Second {
		t.Errorf("GetReadTimeout() = %v", cfg.GetReadTimeout())
	}
	if cfg.GetWriteTimeout() != 30*time.Second {
		t.Errorf("GetWriteTimeout() = %v", cfg.GetWriteTimeout())
	}
	if cfg.GetIdleTimeout() != 60*time.Second {
		t.Errorf("GetIdleTimeout() = %v", cfg.GetIdleTimeout())
	}
}
