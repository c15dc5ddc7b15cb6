package influxdb_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/geeOnama940515/iot-garden/internal/greenhouse"
	"github.com/geeOnama940515/iot-garden/internal/infrastructure/config"
	"github.com/geeOnama940515/iot-garden/internal/infrastructure/influxdb"
)

// testConfig returns a configuration for a local dev InfluxDB.
func testConfig() config.InfluxDBConfig {
	url := os.Getenv("INFLUXDB_URL")
	if url == "" {
		url = "http://127.0.0.1:8086"
	}
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "greenhouse-dev-token",
		Org:           "greenhouse",
		Bucket:        "readings",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

// skipIfNoInfluxDB skips the test if InfluxDB is not running.
func skipIfNoInfluxDB(t *testing.T) {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") == "" {
		client, err := influxdb.Connect(testConfig())
		if err != nil {
			t.Skip("InfluxDB not available, skipping integration test")
		}
		client.Close()
	}
}

// =============================================================================
// Point Tests
// =============================================================================

func TestReadingPoint(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := influxdb.ReadingPoint(greenhouse.Reading{
		Sensor: greenhouse.SensorMoisture, Value: 41.5, ObservedAt: at,
	}, time.Now())

	line := write.PointToLineProtocol(p, time.Nanosecond)
	want := "sensor_readings,sensor=Moisture value=41.5 " + "1772359200000000000"
	if strings.TrimSpace(line) != want {
		t.Errorf("line protocol = %q, want %q", line, want)
	}
}

func TestReadingPoint_ZeroTimeUsesNow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := influxdb.ReadingPoint(greenhouse.Reading{Sensor: greenhouse.SensorHumidity, Value: 60}, now)

	if !p.Time().Equal(now) {
		t.Errorf("point time = %v, want %v", p.Time(), now)
	}
}

func TestActuatorPoint(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := influxdb.ActuatorPoint(greenhouse.ActuatorState{
		Actuator: greenhouse.ActuatorPump, Energized: true,
	}, at)

	line := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if !strings.HasPrefix(line, "actuator_states,actuator=pump ") {
		t.Errorf("line protocol = %q, want actuator_states,actuator=pump prefix", line)
	}
	if !strings.Contains(line, "energized=true") || !strings.Contains(line, "auto_mode=false") {
		t.Errorf("line protocol = %q, want both bits as fields", line)
	}
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestNilClient(t *testing.T) {
	var client *influxdb.Client

	if client.IsConnected() {
		t.Error("IsConnected() = true for nil client")
	}
	client.WriteReading(greenhouse.Reading{Sensor: greenhouse.SensorMoisture, Value: 1})
	client.Flush()
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestConnect(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

// =============================================================================
// Write Tests
// =============================================================================

func TestWriteReading(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	var writeErr error
	var mu sync.Mutex
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})

	client.WriteReading(greenhouse.NewReading(greenhouse.SensorTemperature, 23.4, time.Time{}))
	client.WriteActuatorState(greenhouse.ActuatorState{Actuator: greenhouse.ActuatorFan, AutoMode: true}, time.Now())
	client.Flush()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if writeErr != nil {
		t.Errorf("Write error = %v", writeErr)
	}
}

func TestClose(t *testing.T) {
	skipIfNoInfluxDB(t)

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.WriteReading(greenhouse.NewReading(greenhouse.SensorMoisture, 10, time.Time{}))

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}
