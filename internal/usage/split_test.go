package usage

import (
	"reflect"
	"testing"
	"time"
	_ "time/tzdata"
)

var kst = time.FixedZone("KST", 9*60*60)

func ptr(t time.Time) *time.Time {
	return &t
}

func TestSplitToDays_SingleDay(t *testing.T) {
	begin := time.Date(2026, 2, 10, 10, 0, 0, 0, kst)
	end := time.Date(2026, 2, 10, 12, 30, 0, 0, kst)

	buckets := make(DayBuckets)
	SplitToDays(buckets, Interval{Begin: begin.UTC(), End: ptr(end.UTC())}, end, kst)

	want := DayBuckets{"2026-02-10": 9000}
	if !reflect.DeepEqual(buckets, want) {
		t.Errorf("buckets = %v, want %v", buckets, want)
	}
}

func TestSplitToDays_CrossesMidnight(t *testing.T) {
	// 23:00 local on the 10th to 01:00 local on the 11th
	begin := time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 10, 16, 0, 0, 0, time.UTC)

	buckets := make(DayBuckets)
	SplitToDays(buckets, Interval{Begin: begin, End: &end}, end, kst)

	want := DayBuckets{"2026-02-10": 3600, "2026-02-11": 3600}
	if !reflect.DeepEqual(buckets, want) {
		t.Errorf("buckets = %v, want %v", buckets, want)
	}

	var sum int64
	for _, s := range buckets {
		sum += s
	}
	if sum != int64(end.Sub(begin)/time.Second) {
		t.Errorf("sum = %d, want %d", sum, int64(end.Sub(begin)/time.Second))
	}
}

func TestSplitToDays_MultiDay(t *testing.T) {
	begin := time.Date(2026, 2, 1, 22, 0, 0, 0, kst)
	end := time.Date(2026, 2, 4, 2, 0, 0, 0, kst)

	buckets := make(DayBuckets)
	SplitToDays(buckets, Interval{Begin: begin, End: &end}, end, kst)

	want := DayBuckets{
		"2026-02-01": 7200,
		"2026-02-02": 86400,
		"2026-02-03": 86400,
		"2026-02-04": 7200,
	}
	if !reflect.DeepEqual(buckets, want) {
		t.Errorf("buckets = %v, want %v", buckets, want)
	}
}

func TestSplitToDays_InvalidIntervals(t *testing.T) {
	at := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		iv   Interval
	}{
		{"end before begin", Interval{Begin: at, End: ptr(at.Add(-time.Hour))}},
		{"zero length", Interval{Begin: at, End: ptr(at)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buckets := make(DayBuckets)
			SplitToDays(buckets, tt.iv, at, kst)
			if len(buckets) != 0 {
				t.Errorf("expected no buckets, got %v", buckets)
			}
		})
	}
}

func TestSplitToDays_OpenEndUsesNow(t *testing.T) {
	now := time.Date(2026, 2, 10, 15, 0, 0, 0, kst)
	begin := now.Add(-90 * time.Minute)

	buckets := make(DayBuckets)
	SplitToDays(buckets, Interval{Begin: begin}, now, kst)

	if got := buckets["2026-02-10"]; got != 5400 {
		t.Errorf("open session seconds = %d, want 5400", got)
	}
}

func TestSplitToDays_Idempotent(t *testing.T) {
	begin := time.Date(2026, 2, 1, 20, 15, 7, 0, kst)
	end := time.Date(2026, 2, 3, 4, 5, 6, 0, kst)
	iv := Interval{Begin: begin, End: &end}

	first := make(DayBuckets)
	SplitToDays(first, iv, end, kst)
	second := make(DayBuckets)
	SplitToDays(second, iv, end, kst)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ: %v vs %v", first, second)
	}
}

func TestSplitToDays_DaylightSavingDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("failed to load zone: %v", err)
	}

	// 2026-03-08 is 23 hours long in New York
	begin := time.Date(2026, 3, 7, 12, 0, 0, 0, ny)
	end := time.Date(2026, 3, 9, 0, 0, 0, 0, ny)

	buckets := make(DayBuckets)
	SplitToDays(buckets, Interval{Begin: begin, End: &end}, end, ny)

	if got := buckets["2026-03-07"]; got != 12*3600 {
		t.Errorf("2026-03-07 = %d, want %d", got, 12*3600)
	}
	if got := buckets["2026-03-08"]; got != 23*3600 {
		t.Errorf("2026-03-08 = %d, want %d", got, 23*3600)
	}
	if got := buckets["2026-03-09"]; got != 0 {
		t.Errorf("2026-03-09 = %d, want 0", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 2, 5, 12, 34, 56, 0, time.UTC)

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"zulu with millis", "2026-02-05T12:34:56.000Z", false},
		{"zulu truncates fraction", "2026-02-05T12:34:56.987Z", false},
		{"offset", "2026-02-05T21:34:56+09:00", false},
		{"zone-less", "2026-02-05T12:34:56", false},
		{"empty", "", true},
		{"garbage", "yesterday", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimestamp(%q) failed: %v", tt.value, err)
			}
			if !got.Equal(want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.value, got, want)
			}
		})
	}
}

func TestParseSessions(t *testing.T) {
	end := "2026-02-05T13:00:00Z"
	badEnd := "not-a-time"
	blankEnd := ""

	records := []SessionRecord{
		{BeginAt: "2026-02-05T12:00:00Z", EndAt: &end},
		{BeginAt: "2026-02-05T14:00:00Z"},
		{BeginAt: "2026-02-05T15:00:00Z", EndAt: &blankEnd},
		{BeginAt: ""},
		{BeginAt: "2026-02-05T16:00:00Z", EndAt: &badEnd},
		{BeginAt: "nope", EndAt: &end},
	}

	got := ParseSessions(records)
	if len(got) != 3 {
		t.Fatalf("expected 3 intervals, got %d", len(got))
	}
	if got[0].End == nil || got[0].End.Sub(got[0].Begin) != time.Hour {
		t.Errorf("first interval = %+v, want one closed hour", got[0])
	}
	if got[1].End != nil {
		t.Errorf("second interval should be open, got end %v", got[1].End)
	}
	if got[2].End != nil {
		t.Errorf("blank end_at should be open, got end %v", got[2].End)
	}
}
