package usage

import (
	"fmt"
	"strings"
	"time"
)

// DayBuckets accumulates seconds per local calendar date (DateLayout keys).
type DayBuckets map[string]int64

// Add credits d to the date of day. Negative durations are ignored.
func (b DayBuckets) Add(day time.Time, d time.Duration) {
	seconds := int64(d / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	key := day.Format(DateLayout)
	b[key] += seconds
}

// SplitToDays resolves the interval against now and partitions it across the
// local calendar days of loc.
func SplitToDays(buckets DayBuckets, iv Interval, now time.Time, loc *time.Location) {
	splitRange(buckets, iv.Begin, iv.Resolve(now), loc)
}

// splitRange walks from begin to end one local midnight at a time, so every
// second of the range lands in exactly one bucket.
func splitRange(buckets DayBuckets, begin, end time.Time, loc *time.Location) {
	if !end.After(begin) {
		return
	}

	cursor := begin.In(loc)
	endLocal := end.In(loc)

	for startOfDay(cursor).Before(startOfDay(endLocal)) {
		next := time.Date(cursor.Year(), cursor.Month(), cursor.Day()+1, 0, 0, 0, 0, loc)
		buckets.Add(cursor, next.Sub(cursor))
		cursor = next
	}

	buckets.Add(cursor, endLocal.Sub(cursor))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ParseTimestamp parses an upstream ISO-8601 instant. Zone-less values are
// taken as UTC. Sub-second precision is dropped.
func ParseTimestamp(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.UTC().Truncate(time.Second), nil
	}

	t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", v, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t.Truncate(time.Second), nil
}

// ParseSessions converts raw records into intervals. Records whose timestamps
// cannot be parsed are dropped rather than failing the whole batch.
func ParseSessions(records []SessionRecord) []Interval {
	intervals := make([]Interval, 0, len(records))
	for _, rec := range records {
		if strings.TrimSpace(rec.BeginAt) == "" {
			continue
		}
		begin, err := ParseTimestamp(rec.BeginAt)
		if err != nil {
			continue
		}

		iv := Interval{Begin: begin}
		if rec.EndAt != nil && strings.TrimSpace(*rec.EndAt) != "" {
			end, err := ParseTimestamp(*rec.EndAt)
			if err != nil {
				continue
			}
			iv.End = &end
		}
		intervals = append(intervals, iv)
	}
	return intervals
}
