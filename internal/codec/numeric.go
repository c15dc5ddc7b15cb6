package codec

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DecodeNumber parses a numeric payload such as "23.5".
//
// Surrounding whitespace is ignored. Empty payloads, non-numeric text and
// non-finite values fail with ErrInvalidNumber.
func DecodeNumber(payload []byte) (float64, error) {
	return parseNumber(string(payload))
}

// EncodeNumber formats a value with two decimal places, the precision
// used by the history service.
func EncodeNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty payload", ErrInvalidNumber)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, truncate([]byte(s)))
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: non-finite %q", ErrInvalidNumber, s)
	}
	return v, nil
}
