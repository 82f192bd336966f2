package usage

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseDuration normalizes the duration encodings seen upstream into whole
// seconds. Numbers and colon-free strings are hours; "H:M:S" and "H:M" are
// wall-clock style. Anything malformed or beyond int64 seconds yields 0.
func ParseDuration(raw any) int64 {
	switch v := raw.(type) {
	case nil:
		return 0
	case float64:
		return hoursToSeconds(v)
	case float32:
		return hoursToSeconds(float64(v))
	case int:
		return hoursToSeconds(float64(v))
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f, err := strconv.ParseFloat(fmt.Sprint(v), 64)
		if err != nil {
			return 0
		}
		return hoursToSeconds(f)
	case json.Number:
		return parseDurationString(v.String())
	case string:
		return parseDurationString(v)
	default:
		return 0
	}
}

func parseDurationString(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if strings.Contains(s, ":") {
		return parseClock(strings.Split(s, ":"))
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return hoursToSeconds(f)
}

// parseClock handles "H:M:S" and "H:M".
func parseClock(parts []string) int64 {
	if len(parts) != 2 && len(parts) != 3 {
		return 0
	}

	multipliers := []int64{3600, 60, 1}
	var total int64
	for i, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || n < 0 || n > (math.MaxInt64-total)/multipliers[i] {
			return 0
		}
		total += n * multipliers[i]
	}
	return total
}

func hoursToSeconds(hours float64) int64 {
	if math.IsNaN(hours) || math.IsInf(hours, 0) {
		return 0
	}
	seconds := math.Round(hours * 3600)
	if seconds <= 0 || seconds >= math.MaxInt64 {
		return 0
	}
	return int64(seconds)
}

// FormatHMS renders a cumulative duration as HH:MM:SS. Hours are not capped.
func FormatHMS(totalSeconds int64) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	h := totalSeconds / 3600
	m := (totalSeconds % 3600) / 60
	s := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
