package usage

import (
	"time"
)

// DateLayout is the key format for per-day buckets and report days.
const DateLayout = "2006-01-02"

// SessionRecord is a raw presence session as returned by the upstream API.
type SessionRecord struct {
	BeginAt string  `json:"begin_at"`
	EndAt   *string `json:"end_at"`
}

// Interval is one contiguous presence period. A nil End means the session is
// still open.
type Interval struct {
	Begin time.Time
	End   *time.Time
}

// Resolve returns the end of the interval, substituting now for an open end.
func (iv Interval) Resolve(now time.Time) time.Time {
	if iv.End == nil {
		return now
	}
	return *iv.End
}

// DayUsage is the presence attributed to one local calendar date.
type DayUsage struct {
	Date     string `json:"date"`
	Seconds  int64  `json:"seconds"`
	Duration string `json:"duration"`
}

// MonthReport summarises the current month up to "now".
type MonthReport struct {
	Year         int        `json:"year"`
	Month        int        `json:"month"`
	TotalSeconds int64      `json:"total_seconds"`
	AllTime      string     `json:"alltime"`
	Percent      float64    `json:"percent"`
	TargetHours  int        `json:"target_hours"`
	Days         []DayUsage `json:"days"`
}
