package usage

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad test time %q: %v", value, err)
	}
	return ts
}

func TestBuildMonthReport_MidnightSession(t *testing.T) {
	now := mustTime(t, "2026-02-02T10:00:00+09:00")
	begin := mustTime(t, "2026-02-01T23:30:00Z")
	end := mustTime(t, "2026-02-02T00:30:00Z")

	report := BuildMonthReport([]Interval{{Begin: begin, End: &end}}, now, kst, 80)

	if report.Year != 2026 || report.Month != 2 {
		t.Errorf("period = %d-%d, want 2026-2", report.Year, report.Month)
	}
	if len(report.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(report.Days))
	}
	if report.Days[0].Date != "2026-02-01" || report.Days[0].Seconds != 0 {
		t.Errorf("day 0 = %+v, want 2026-02-01 with 0 seconds", report.Days[0])
	}
	if report.Days[1].Date != "2026-02-02" || report.Days[1].Seconds != 3600 {
		t.Errorf("day 1 = %+v, want 2026-02-02 with 3600 seconds", report.Days[1])
	}
	if report.Days[1].Duration != "01:00:00" {
		t.Errorf("day 1 duration = %q, want 01:00:00", report.Days[1].Duration)
	}
	if report.TotalSeconds != 3600 {
		t.Errorf("total = %d, want 3600", report.TotalSeconds)
	}
	if report.AllTime != "01:00:00" {
		t.Errorf("alltime = %q, want 01:00:00", report.AllTime)
	}
	if report.Percent != 1.25 {
		t.Errorf("percent = %v, want 1.25", report.Percent)
	}
	if report.TargetHours != 80 {
		t.Errorf("target hours = %d, want 80", report.TargetHours)
	}
}

func TestBuildMonthReport_ClampsToWindow(t *testing.T) {
	now := mustTime(t, "2026-03-10T12:00:00+09:00")
	begin := mustTime(t, "2026-02-25T00:00:00Z")
	end := mustTime(t, "2026-03-15T00:00:00Z")

	report := BuildMonthReport([]Interval{{Begin: begin, End: &end}}, now, kst, 80)

	if len(report.Days) != 10 {
		t.Fatalf("expected 10 days, got %d", len(report.Days))
	}
	for _, day := range report.Days[:9] {
		if day.Seconds != 86400 {
			t.Errorf("%s = %d, want 86400", day.Date, day.Seconds)
		}
	}
	if last := report.Days[9]; last.Date != "2026-03-10" || last.Seconds != 43200 {
		t.Errorf("last day = %+v, want 2026-03-10 with 43200", last)
	}
	if report.TotalSeconds != 820800 {
		t.Errorf("total = %d, want 820800", report.TotalSeconds)
	}
	if report.AllTime != "228:00:00" {
		t.Errorf("alltime = %q, want 228:00:00", report.AllTime)
	}
}

func TestBuildMonthReport_IgnoresOutsideSessions(t *testing.T) {
	now := mustTime(t, "2026-03-10T12:00:00+09:00")

	futureBegin := mustTime(t, "2026-03-10T13:00:00+09:00")
	futureEnd := mustTime(t, "2026-03-10T15:00:00+09:00")
	pastBegin := mustTime(t, "2026-02-20T10:00:00+09:00")
	pastEnd := mustTime(t, "2026-02-20T18:00:00+09:00")
	// ends exactly at month start
	edgeBegin := mustTime(t, "2026-02-28T20:00:00+09:00")
	edgeEnd := mustTime(t, "2026-03-01T00:00:00+09:00")

	sessions := []Interval{
		{Begin: futureBegin, End: &futureEnd},
		{Begin: pastBegin, End: &pastEnd},
		{Begin: edgeBegin, End: &edgeEnd},
	}

	report := BuildMonthReport(sessions, now, kst, 80)
	if report.TotalSeconds != 0 {
		t.Errorf("total = %d, want 0", report.TotalSeconds)
	}
	if report.AllTime != "00:00:00" {
		t.Errorf("alltime = %q, want 00:00:00", report.AllTime)
	}
	if report.Percent != 0 {
		t.Errorf("percent = %v, want 0", report.Percent)
	}
}

func TestBuildMonthReport_OpenSessionRunsUntilNow(t *testing.T) {
	now := mustTime(t, "2026-02-02T10:00:00+09:00")
	begin := mustTime(t, "2026-02-02T09:00:00+09:00")

	report := BuildMonthReport([]Interval{{Begin: begin}}, now, kst, 80)
	if report.TotalSeconds != 3600 {
		t.Errorf("total = %d, want 3600", report.TotalSeconds)
	}
}

func TestBuildMonthReport_OverlappingSessionsAreSummed(t *testing.T) {
	now := mustTime(t, "2026-02-02T20:00:00+09:00")
	b1 := mustTime(t, "2026-02-02T09:00:00+09:00")
	e1 := mustTime(t, "2026-02-02T11:00:00+09:00")
	b2 := mustTime(t, "2026-02-02T10:00:00+09:00")
	e2 := mustTime(t, "2026-02-02T12:00:00+09:00")

	report := BuildMonthReport([]Interval{{Begin: b1, End: &e1}, {Begin: b2, End: &e2}}, now, kst, 80)
	if report.TotalSeconds != 4*3600 {
		t.Errorf("total = %d, want %d", report.TotalSeconds, 4*3600)
	}
}

func TestBuildMonthReport_DaysAreComplete(t *testing.T) {
	now := mustTime(t, "2026-01-31T23:59:59+09:00")
	report := BuildMonthReport(nil, now, kst, 80)

	if len(report.Days) != 31 {
		t.Fatalf("expected 31 days, got %d", len(report.Days))
	}
	for i, day := range report.Days {
		want := time.Date(2026, 1, i+1, 0, 0, 0, 0, kst).Format(DateLayout)
		if day.Date != want {
			t.Errorf("day %d = %s, want %s", i, day.Date, want)
		}
		if day.Duration != "00:00:00" {
			t.Errorf("day %s duration = %q, want 00:00:00", day.Date, day.Duration)
		}
	}
}

func TestBuildMonthReport_FirstInstantOfMonth(t *testing.T) {
	now := mustTime(t, "2026-03-01T00:00:00+09:00")
	begin := mustTime(t, "2026-02-28T22:00:00+09:00")

	report := BuildMonthReport([]Interval{{Begin: begin}}, now, kst, 80)

	if len(report.Days) != 1 || report.Days[0].Date != "2026-03-01" {
		t.Fatalf("days = %+v, want only 2026-03-01", report.Days)
	}
	if report.TotalSeconds != 0 {
		t.Errorf("total = %d, want 0", report.TotalSeconds)
	}
}

func TestBuildMonthReport_SumMatchesTotal(t *testing.T) {
	now := mustTime(t, "2026-02-15T18:00:00+09:00")
	var sessions []Interval
	for d := 1; d <= 14; d++ {
		b := time.Date(2026, 2, d, 21, 17, 3, 0, kst)
		e := b.Add(5*time.Hour + 11*time.Minute)
		sessions = append(sessions, Interval{Begin: b, End: &e})
	}

	report := BuildMonthReport(sessions, now, kst, 80)

	var sum int64
	for _, day := range report.Days {
		sum += day.Seconds
	}
	if sum != report.TotalSeconds {
		t.Errorf("sum of days = %d, total = %d", sum, report.TotalSeconds)
	}
	if want := int64(14 * (5*3600 + 11*60)); report.TotalSeconds != want {
		t.Errorf("total = %d, want %d", report.TotalSeconds, want)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name    string
		seconds int64
		target  int
		want    float64
	}{
		{"exact target", 288000, 80, 100},
		{"one hour", 3600, 80, 1.25},
		{"rounded", 1000, 80, 0.35},
		{"exact half rounds away from zero", 9, 2, 0.13},
		{"over target", 576000, 80, 200},
		{"zero target", 3600, 0, 0},
		{"negative target", 3600, -10, 0},
		{"nothing yet", 0, 80, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percent(tt.seconds, tt.target); got != tt.want {
				t.Errorf("Percent(%d, %d) = %v, want %v", tt.seconds, tt.target, got, tt.want)
			}
		})
	}
}
