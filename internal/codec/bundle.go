package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/geeOnama940515/iot-garden/internal/greenhouse"
)

// BundleLayout describes a JSON telemetry payload that carries several
// readings at once, such as the Tasmota SENSOR message:
//
//	{"Time":"2026-03-01T10:15:00","DHT11":{"Temperature":23.5,"Humidity":41.2}}
//
// Sensor names the nested object; Fields maps keys inside it to sensor kinds.
type BundleLayout struct {
	Sensor string
	Fields map[string]greenhouse.SensorKind
}

// bundleTimeKey is the optional top-level timestamp field.
const bundleTimeKey = "Time"

// Timestamp layouts accepted for the bundle "Time" field.
var bundleTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// DecodeBundle unpacks a bundle payload into readings.
//
// A payload without the layout's sensor object yields no readings and no
// error. Fields that are missing are skipped. Fields that are present but not
// numeric are skipped and reported through the returned error, which wraps
// ErrInvalidNumber; readings decoded from the other fields are still returned.
// A payload that is not a JSON object fails with ErrInvalidJSON.
//
// The reading time comes from the top-level "Time" field when present and
// parseable, otherwise from fallback.
func DecodeBundle(payload []byte, layout BundleLayout, fallback time.Time) ([]greenhouse.Reading, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	raw, ok := top[layout.Sensor]
	if !ok || isJSONNull(raw) {
		return nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidJSON, layout.Sensor, err)
	}

	at := bundleTime(top[bundleTimeKey], fallback)

	keys := make([]string, 0, len(layout.Fields))
	for k := range layout.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		readings []greenhouse.Reading
		errs     []error
	)
	for _, key := range keys {
		value, present := fields[key]
		if !present || isJSONNull(value) {
			continue
		}
		v, err := decodeJSONNumber(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s.%s: %w", layout.Sensor, key, err))
			continue
		}
		readings = append(readings, greenhouse.Reading{
			Sensor:     layout.Fields[key],
			Value:      v,
			ObservedAt: at,
		})
	}

	return readings, errors.Join(errs...)
}

// decodeJSONNumber accepts a JSON number or a string holding a number.
func decodeJSONNumber(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parseNumber(s)
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidNumber, truncate(raw))
	}
	return parseNumber(n.String())
}

func bundleTime(raw json.RawMessage, fallback time.Time) time.Time {
	if len(raw) == 0 {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return fallback
	}
	for _, layout := range bundleTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return fallback
}

func isJSONNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
