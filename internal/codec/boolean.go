package codec

import (
	"fmt"
	"strings"
)

// PowerTokens is the pair of tokens a device expects for on/off commands.
type PowerTokens struct {
	On  string
	Off string
}

// Canonical token grammars.
var (
	// TokensOnOff encodes as "ON"/"OFF". This is the default.
	TokensOnOff = PowerTokens{On: "ON", Off: "OFF"}

	// TokensOneZero encodes as "1"/"0".
	TokensOneZero = PowerTokens{On: "1", Off: "0"}
)

// ParsePowerTokens maps a configuration name to a token grammar.
// An empty name selects TokensOnOff.
func ParsePowerTokens(name string) (PowerTokens, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "on_off", "onoff":
		return TokensOnOff, nil
	case "one_zero", "onezero", "numeric":
		return TokensOneZero, nil
	default:
		return PowerTokens{}, fmt.Errorf("%w: %q", ErrUnknownTokenSet, name)
	}
}

// Encode returns the token for the given power state.
func (p PowerTokens) Encode(on bool) []byte {
	if p.On == "" && p.Off == "" {
		p = TokensOnOff
	}
	if on {
		return []byte(p.On)
	}
	return []byte(p.Off)
}

// DecodePower decodes a power payload.
//
// "1" and "ON" decode to true, "0" and "OFF" to false, case-insensitively
// and ignoring surrounding whitespace. Any other payload decodes to false;
// use DecodePowerStrict to tell unknown tokens apart.
func DecodePower(payload []byte) bool {
	on, err := DecodePowerStrict(payload)
	return err == nil && on
}

// DecodePowerStrict decodes a power payload and rejects unknown tokens
// with ErrUnknownToken.
func DecodePowerStrict(payload []byte) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(string(payload))) {
	case "1", "ON":
		return true, nil
	case "0", "OFF":
		return false, nil
	default:
		return false, fmt.Errorf("%w: power %q", ErrUnknownToken, truncate(payload))
	}
}

// Auto-mode tokens.
const (
	AutoModeOn  = "ONAUTO"
	AutoModeOff = "OFFAUTO"
)

// DecodeAutoMode decodes an auto-mode payload. Only "ONAUTO"
// (case-insensitive) decodes to true.
func DecodeAutoMode(payload []byte) bool {
	return strings.EqualFold(strings.TrimSpace(string(payload)), AutoModeOn)
}

// EncodeAutoMode returns the auto-mode token for the given state.
func EncodeAutoMode(enabled bool) []byte {
	if enabled {
		return []byte(AutoModeOn)
	}
	return []byte(AutoModeOff)
}

// truncate shortens payloads quoted in error messages.
func truncate(payload []byte) string {
	const maxQuoted = 32
	if len(payload) <= maxQuoted {
		return string(payload)
	}
	return string(payload[:maxQuoted]) + "..."
}
