package usage

import (
	"math"
	"time"
)

// MonthWindow returns the reporting window for now: local midnight on the
// first of now's month in loc, through now itself.
func MonthWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return start, local
}

// BuildMonthReport aggregates sessions into a per-day report for the month
// containing now. Only the part of each session inside [month start, now]
// counts; open sessions run until now.
func BuildMonthReport(sessions []Interval, now time.Time, loc *time.Location, targetHours int) *MonthReport {
	windowStart, windowEnd := MonthWindow(now, loc)
	clampStart := windowStart.UTC()
	clampEnd := windowEnd.UTC()
	nowUTC := now.UTC()

	buckets := make(DayBuckets)
	for _, iv := range sessions {
		begin := iv.Begin.UTC()
		end := iv.Resolve(nowUTC).UTC()

		if !end.After(clampStart) || !begin.Before(clampEnd) {
			continue
		}
		if begin.Before(clampStart) {
			begin = clampStart
		}
		if end.After(clampEnd) {
			end = clampEnd
		}

		splitRange(buckets, begin, end, loc)
	}

	report := &MonthReport{
		Year:        windowEnd.Year(),
		Month:       int(windowEnd.Month()),
		TargetHours: targetHours,
		Days:        []DayUsage{},
	}

	last := startOfDay(windowEnd)
	for day := windowStart; !day.After(last); day = time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, loc) {
		key := day.Format(DateLayout)
		seconds := buckets[key]
		report.TotalSeconds += seconds
		report.Days = append(report.Days, DayUsage{
			Date:     key,
			Seconds:  seconds,
			Duration: FormatHMS(seconds),
		})
	}

	report.AllTime = FormatHMS(report.TotalSeconds)
	report.Percent = Percent(report.TotalSeconds, targetHours)

	return report
}

// Percent returns total as a percentage of targetHours, rounded to two
// decimals. A non-positive target yields 0.
func Percent(totalSeconds int64, targetHours int) float64 {
	if targetHours <= 0 {
		return 0
	}
	ratio := float64(totalSeconds) / float64(targetHours*3600) * 100
	return math.Round(ratio*100) / 100
}
