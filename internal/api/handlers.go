package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/geeOnama940515/iot-garden/internal/greenhouse"
	"github.com/geeOnama940515/iot-garden/internal/reconciler"
)

// healthCheckTimeout bounds each component check in GET /health.
const healthCheckTimeout = 2 * time.Second

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Connectivity  string            `json:"connectivity"`
	Checks        map[string]string `json:"checks,omitempty"`
}

// ReadingsResponse is returned by GET /readings.
type ReadingsResponse struct {
	Readings []greenhouse.Reading `json:"readings"`
	Count    int                  `json:"count"`
}

// CommandResponse is returned by the actuator toggle endpoints.
type CommandResponse struct {
	Command CommandJSON              `json:"command"`
	State   greenhouse.ActuatorState `json:"state"`
}

// CommandJSON is the wire form of a greenhouse.Command.
type CommandJSON struct {
	Kind     string              `json:"kind"`
	Actuator greenhouse.Actuator `json:"actuator"`
	Value    bool                `json:"value"`
}

func commandJSON(cmd greenhouse.Command) CommandJSON {
	out := CommandJSON{Kind: cmd.Kind(), Actuator: cmd.Target()}
	switch c := cmd.(type) {
	case greenhouse.SetActuator:
		out.Value = c.On
	case greenhouse.SetAutoMode:
		out.Value = c.Enabled
	}
	return out
}

// handleHealth reports component health. The response is 200 even when a
// component is down; the status field reads "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:        "ok",
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Connectivity:  string(s.controller.Snapshot().Connectivity),
	}

	if len(s.checks) > 0 {
		resp.Checks = make(map[string]string, len(s.checks))
		for name, c := range s.checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := c.HealthCheck(ctx)
			cancel()
			if err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleGetState returns the full controller snapshot.
func (s *Server) handleGetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

// handleListReadings returns recent readings, newest first.
//
// Query parameters:
//   - limit: maximum number of readings (default all held)
//   - sensor: restrict to one sensor kind
func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	var filter greenhouse.SensorKind
	if v := r.URL.Query().Get("sensor"); v != "" {
		kind, err := greenhouse.ParseSensorKind(v)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		filter = kind
	}

	var readings []greenhouse.Reading
	if filter == "" {
		readings = s.controller.Recent(limit)
	} else {
		for _, rd := range s.controller.Recent(0) {
			if rd.Sensor != filter {
				continue
			}
			readings = append(readings, rd)
			if limit > 0 && len(readings) == limit {
				break
			}
		}
	}
	if readings == nil {
		readings = []greenhouse.Reading{}
	}

	writeJSON(w, http.StatusOK, ReadingsResponse{Readings: readings, Count: len(readings)})
}

// handleGetActuator returns the state of one actuator.
func (s *Server) handleGetActuator(w http.ResponseWriter, r *http.Request) {
	actuator, ok := s.actuatorParam(w, r)
	if !ok {
		return
	}
	state, found := s.controller.Snapshot().Actuators[actuator]
	if !found {
		writeNotFound(w, "actuator not found")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleSetPower toggles actuator power. Body: {"on": bool}.
func (s *Server) handleSetPower(w http.ResponseWriter, r *http.Request) {
	var body struct {
		On *bool `json:"on"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if body.On == nil {
		writeBadRequest(w, `field "on" is required`)
		return
	}
	s.toggle(w, r, greenhouse.TargetPower, *body.On)
}

// handleSetAutoMode toggles actuator auto mode. Body: {"enabled": bool}.
func (s *Server) handleSetAutoMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if body.Enabled == nil {
		writeBadRequest(w, `field "enabled" is required`)
		return
	}
	s.toggle(w, r, greenhouse.TargetAutoMode, *body.Enabled)
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request, target greenhouse.ToggleTarget, value bool) {
	actuator, ok := s.actuatorParam(w, r)
	if !ok {
		return
	}

	t := greenhouse.Toggle{Actuator: actuator, Target: target, Value: value}
	cmd, err := s.controller.Toggle(t)
	switch {
	case err == nil:
	case errors.Is(err, reconciler.ErrCommandNotSent):
		writeNotConnected(w, "command not sent: message bus is not connected")
		return
	case errors.Is(err, greenhouse.ErrUnknownActuator):
		writeNotFound(w, "actuator not found")
		return
	default:
		s.logger.Error("toggle failed", "toggle", t.String(), "error", err,
			"request_id", r.Context().Value(ctxKeyRequestID))
		writeInternalError(w, "failed to send command")
		return
	}

	writeJSON(w, http.StatusOK, CommandResponse{
		Command: commandJSON(cmd),
		State:   s.controller.Snapshot().Actuators[actuator],
	})
}

// actuatorParam parses the {actuator} URL parameter, writing 404 on failure.
func (s *Server) actuatorParam(w http.ResponseWriter, r *http.Request) (greenhouse.Actuator, bool) {
	actuator, err := greenhouse.ParseActuator(chi.URLParam(r, "actuator"))
	if err != nil {
		writeNotFound(w, "actuator not found")
		return "", false
	}
	return actuator, true
}
