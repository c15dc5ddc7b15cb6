package historyapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/geeOnama940515/iot-garden/internal/codec"
	"github.com/geeOnama940515/iot-garden/internal/greenhouse"
)

// record is the wire shape used by both endpoints.
type record struct {
	ID            int        `json:"id"`
	SensorType    string     `json:"sensorType"`
	SensorReading flexNumber `json:"sensorReading"`
	DateCreated   string     `json:"dateCreated"`
}

// flexNumber encodes as a two-decimal string and decodes from either a
// JSON string or a JSON number.
type flexNumber float64

func (n flexNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(codec.EncodeNumber(float64(n)))
}

// UnmarshalJSON applies the same rules as bus payloads, so non-finite
// strings such as "NaN" are rejected.
func (n *flexNumber) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := codec.DecodeNumber([]byte(s))
		if err != nil {
			return fmt.Errorf("sensorReading: %w", err)
		}
		*n = flexNumber(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("sensorReading %s: %w", data, err)
	}
	*n = flexNumber(v)
	return nil
}

// wireTimeLayout is written on POST; it matches JavaScript's toISOString.
const wireTimeLayout = "2006-01-02T15:04:05.000Z"

// dateLayouts are accepted on read, in order.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02 15:04:05",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("dateCreated %q: unrecognised format", s)
}

func toRecord(r greenhouse.Reading) record {
	return record{
		ID:            0,
		SensorType:    string(r.Sensor),
		SensorReading: flexNumber(r.Value),
		DateCreated:   r.ObservedAt.UTC().Format(wireTimeLayout),
	}
}

func (rec record) reading() (greenhouse.Reading, error) {
	kind, err := greenhouse.ParseSensorKind(rec.SensorType)
	if err != nil {
		return greenhouse.Reading{}, err
	}
	at, err := parseDate(rec.DateCreated)
	if err != nil {
		return greenhouse.Reading{}, err
	}
	return greenhouse.Reading{Sensor: kind, Value: float64(rec.SensorReading), ObservedAt: at}, nil
}
