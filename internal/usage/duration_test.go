package usage

import (
	"encoding/json"
	"testing"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want int64
	}{
		{"nil", nil, 0},
		{"float hours", 1.5, 5400},
		{"fractional hours rounds", 57.885179, 208387},
		{"zero", 0.0, 0},
		{"negative float floors at zero", -2.0, 0},
		{"int hours", 2, 7200},
		{"int64 hours", int64(3), 10800},
		{"float32 hours", float32(0.5), 1800},
		{"json number", json.Number("1.25"), 4500},
		{"hms string", "02:30:15", 9015},
		{"hm string", "2:30", 9000},
		{"hours beyond a day", "100:00:00", 360000},
		{"padded string", " 01:00:00 ", 3600},
		{"float string", "57.885179", 208387},
		{"empty string", "", 0},
		{"garbage string", "abc", 0},
		{"non-integer field", "1:xx:00", 0},
		{"fractional seconds field", "01:02:03.5", 0},
		{"too many fields", "1:2:3:4", 0},
		{"single colon field", "5:", 0},
		{"negative field", "-1:00:00", 0},
		{"nan string", "NaN", 0},
		{"inf string", "Inf", 0},
		{"unsupported type", true, 0},
		{"float beyond int64", 1e20, 0},
		{"uint64 beyond int64", uint64(1 << 63), 0},
		{"clock hours beyond int64", "9999999999999999:0:0", 0},
		{"clock seconds beyond int64", "0:0:9223372036854775807", 9223372036854775807},
		{"clock sum beyond int64", "1:0:9223372036854775807", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseDuration(tt.raw); got != tt.want {
				t.Errorf("ParseDuration(%#v) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

// TestParseDuration_NumericMatchesHours checks that any numeric value is
// read as hours and rounded to the nearest second.
func TestParseDuration_NumericMatchesHours(t *testing.T) {
	for _, v := range []float64{0.0001, 0.25, 1, 7.77, 12.3456, 160} {
		want := int64(v*3600 + 0.5)
		if got := ParseDuration(v); got != want {
			t.Errorf("ParseDuration(%v) = %d, want %d", v, got, want)
		}
	}
}

func TestFormatHMS(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{3661, "01:01:01"},
		{86399, "23:59:59"},
		{360000, "100:00:00"},
		{-5, "00:00:00"},
	}

	for _, tt := range tests {
		if got := FormatHMS(tt.seconds); got != tt.want {
			t.Errorf("FormatHMS(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
