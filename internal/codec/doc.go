// Package codec translates between raw MQTT payloads and domain values.
//
// The greenhouse devices speak a small set of text grammars:
//
//	power:     1 | 0 | ON | OFF          (case-insensitive)
//	auto mode: ONAUTO | OFFAUTO          (case-insensitive)
//	numeric:   UTF-8 decimal, e.g. "23.5"
//	bundle:    {"Time":"...","DHT11":{"Temperature":"23.5","Humidity":41.2}}
//
// Every decode failure wraps ErrDecode so callers can treat the whole family
// uniformly:
//
//	if errors.Is(err, codec.ErrDecode) {
//	    // log and drop the message
//	}
package codec
