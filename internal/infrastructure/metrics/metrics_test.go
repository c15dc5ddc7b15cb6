package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
)

// find returns the metric in family name whose labels match want.
func find(t *testing.T, r *Registry, name string, want map[string]string) *dto.Metric {
	t.Helper()
	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, want) {
				return m
			}
		}
	}
	return nil
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	if len(m.GetLabel()) != len(want) {
		return false
	}
	for _, lp := range m.GetLabel() {
		if want[lp.GetName()] != lp.GetValue() {
			return false
		}
	}
	return true
}

func counterValue(t *testing.T, r *Registry, name string, labels map[string]string) float64 {
	t.Helper()
	m := find(t, r, name, labels)
	if m == nil {
		t.Fatalf("metric %s%v not found", name, labels)
	}
	return m.GetCounter().GetValue()
}

// =============================================================================
// Counter Tests
// =============================================================================

func TestCounters(t *testing.T) {
	r := New()

	r.IncConnectAttempts(ResultOK)
	r.IncConnectAttempts(ResultError)
	r.IncConnectAttempts(ResultError)
	r.IncMessagesReceived()
	r.IncMessagesDropped()
	r.IncPublishes(ResultOK)
	r.IncDecodeErrors()
	r.IncReadings("Moisture")
	r.IncReadings("Moisture")
	r.IncCommands("set_actuator", ResultOK)
	r.IncHistoryWrites(ResultError)
	r.IncHistoryDropped()

	tests := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"greenhouse_mqtt_connect_attempts_total", map[string]string{"result": "ok"}, 1},
		{"greenhouse_mqtt_connect_attempts_total", map[string]string{"result": "error"}, 2},
		{"greenhouse_mqtt_messages_received_total", nil, 1},
		{"greenhouse_mqtt_messages_dropped_total", nil, 1},
		{"greenhouse_mqtt_publishes_total", map[string]string{"result": "ok"}, 1},
		{"greenhouse_decode_errors_total", nil, 1},
		{"greenhouse_readings_total", map[string]string{"sensor": "Moisture"}, 2},
		{"greenhouse_commands_total", map[string]string{"kind": "set_actuator", "result": "ok"}, 1},
		{"greenhouse_history_writes_total", map[string]string{"result": "error"}, 1},
		{"greenhouse_history_dropped_total", nil, 1},
	}
	for _, tt := range tests {
		if got := counterValue(t, r, tt.name, tt.labels); got != tt.want {
			t.Errorf("%s%v = %v, want %v", tt.name, tt.labels, got, tt.want)
		}
	}
}

func TestSetConnectionStatus_KeepsOnlyCurrent(t *testing.T) {
	r := New()

	r.SetConnectionStatus("connecting")
	r.SetConnectionStatus("connected")

	if m := find(t, r, "greenhouse_mqtt_connection_status", map[string]string{"status": "connecting"}); m != nil {
		t.Error("stale status series still present")
	}
	m := find(t, r, "greenhouse_mqtt_connection_status", map[string]string{"status": "connected"})
	if m == nil || m.GetGauge().GetValue() != 1 {
		t.Errorf("connected status gauge = %v, want 1", m)
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.IncDecodeErrors()

	if got := counterValue(t, b, "greenhouse_decode_errors_total", nil); got != 0 {
		t.Errorf("second registry decode errors = %v, want 0", got)
	}
}

// =============================================================================
// Handler Tests
// =============================================================================

func TestHandler(t *testing.T) {
	r := New()
	r.IncReadings("Humidity")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `greenhouse_readings_total{sensor="Humidity"} 1`) {
		t.Errorf("exposition missing readings counter:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("exposition missing Go runtime collector")
	}
}
