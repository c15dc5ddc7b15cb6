package codec

import (
	"errors"
	"testing"
)

// ─── Power tokens ──────────────────────────────────────────────────

func TestDecodePower(t *testing.T) {
	tests := []struct {
		payload string
		want    bool
	}{
		{"1", true},
		{"0", false},
		{"ON", true},
		{"on", true},
		{"On", true},
		{"OFF", false},
		{"off", false},
		{" ON\n", true},
		{"", false},
		{"maybe", false},
		{"2", false},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			if got := DecodePower([]byte(tt.payload)); got != tt.want {
				t.Errorf("DecodePower(%q) = %v, want %v", tt.payload, got, tt.want)
			}
		})
	}
}

func TestDecodePowerStrict(t *testing.T) {
	if on, err := DecodePowerStrict([]byte("oN")); err != nil || !on {
		t.Errorf("DecodePowerStrict(oN) = %v, %v", on, err)
	}
	if on, err := DecodePowerStrict([]byte("0")); err != nil || on {
		t.Errorf("DecodePowerStrict(0) = %v, %v", on, err)
	}

	_, err := DecodePowerStrict([]byte("toggle"))
	if !errors.Is(err, ErrUnknownToken) {
		t.Errorf("DecodePowerStrict(toggle) error = %v, want ErrUnknownToken", err)
	}
	if !errors.Is(err, ErrDecode) {
		t.Errorf("DecodePowerStrict(toggle) error should match ErrDecode")
	}
}

func TestPowerTokensEncode(t *testing.T) {
	tests := []struct {
		name   string
		tokens PowerTokens
		on     bool
		want   string
	}{
		{"on_off on", TokensOnOff, true, "ON"},
		{"on_off off", TokensOnOff, false, "OFF"},
		{"one_zero on", TokensOneZero, true, "1"},
		{"one_zero off", TokensOneZero, false, "0"},
		{"zero value defaults", PowerTokens{}, true, "ON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(tt.tokens.Encode(tt.on)); got != tt.want {
				t.Errorf("Encode(%v) = %q, want %q", tt.on, got, tt.want)
			}
		})
	}
}

func TestPowerRoundTrip(t *testing.T) {
	for _, tokens := range []PowerTokens{TokensOnOff, TokensOneZero} {
		for _, v := range []bool{true, false} {
			if got := DecodePower(tokens.Encode(v)); got != v {
				t.Errorf("DecodePower(Encode(%v)) with %v = %v", v, tokens, got)
			}
		}
	}
}

func TestParsePowerTokens(t *testing.T) {
	if p, err := ParsePowerTokens(""); err != nil || p != TokensOnOff {
		t.Errorf("ParsePowerTokens(\"\") = %v, %v", p, err)
	}
	if p, err := ParsePowerTokens("one_zero"); err != nil || p != TokensOneZero {
		t.Errorf("ParsePowerTokens(one_zero) = %v, %v", p, err)
	}
	if _, err := ParsePowerTokens("yes_no"); !errors.Is(err, ErrUnknownTokenSet) {
		t.Errorf("ParsePowerTokens(yes_no) error = %v", err)
	}
}

// ─── Auto mode ─────────────────────────────────────────────────────

func TestDecodeAutoMode(t *testing.T) {
	tests := []struct {
		payload string
		want    bool
	}{
		{"ONAUTO", true},
		{"onauto", true},
		{"OFFAUTO", false},
		{"ON", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := DecodeAutoMode([]byte(tt.payload)); got != tt.want {
			t.Errorf("DecodeAutoMode(%q) = %v, want %v", tt.payload, got, tt.want)
		}
	}
}

func TestAutoModeRoundTrip(t *testing.T) {
	for _, v := range []bool{true, false} {
		if got := DecodeAutoMode(EncodeAutoMode(v)); got != v {
			t.Errorf("DecodeAutoMode(EncodeAutoMode(%v)) = %v", v, got)
		}
	}
}
