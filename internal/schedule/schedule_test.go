package schedule

import (
	"errors"
	"testing"
	"time"
)

// Wednesday, March 4 2026, 10:30 local.
var ref = time.Date(2026, time.March, 4, 10, 30, 0, 0, time.UTC)

func TestParseDateRelative(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"today", "today", "2026-03-04"},
		{"tomorrow", "Tomorrow", "2026-03-05"},
		{"day after tomorrow", "day after tomorrow", "2026-03-06"},
		{"in 3 days", "in 3 days", "2026-03-07"},
		{"in 1 day", "in 1 day", "2026-03-05"},
		{"bare weekday is next occurrence", "friday", "2026-03-06"},
		{"next weekday", "next Friday", "2026-03-06"},
		{"this weekday", "this friday", "2026-03-06"},
		{"same weekday rolls a full week", "wednesday", "2026-03-11"},
		{"short day name", "mon", "2026-03-09"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.expr, ref)
			if err != nil {
				t.Fatalf("ParseDate(%q) error: %v", tt.expr, err)
			}
			if DateKey(got) != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.expr, DateKey(got), tt.want)
			}
		})
	}
}

func TestParseDateNextWeekdayWithinWeek(t *testing.T) {
	// The resolved day must be 1-7 days ahead and land on the right weekday.
	got, err := ParseDate("next friday", ref)
	if err != nil {
		t.Fatal(err)
	}
	ahead := int(got.Sub(Midnight(ref)).Hours() / 24)
	if ahead < 1 || ahead > 7 {
		t.Errorf("next friday resolved %d days ahead, want 1-7", ahead)
	}
	if got.Weekday() != time.Friday {
		t.Errorf("next friday resolved to %s", got.Weekday())
	}
}

func TestParseDateAbsolute(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"iso", "2026-03-20", "2026-03-20"},
		{"us numeric", "3/20/2026", "2026-03-20"},
		{"month day ahead", "March 20", "2026-03-20"},
		{"short month", "Dec 2", "2026-12-02"},
		{"lowercased month", "december 2", "2026-12-02"},
		{"month day already past rolls to next year", "January 5", "2027-01-05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.expr, ref)
			if err != nil {
				t.Fatalf("ParseDate(%q) error: %v", tt.expr, err)
			}
			if DateKey(got) != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.expr, DateKey(got), tt.want)
			}
		})
	}
}

func TestParseDateFailures(t *testing.T) {
	tests := []string{
		"",
		"whenever",
		"2026-13-45",
		"2025-01-01", // past
		"yesterday",
	}

	for _, expr := range tests {
		if _, err := ParseDate(expr, ref); !errors.Is(err, ErrUnparseableDate) {
			t.Errorf("ParseDate(%q) error = %v, want ErrUnparseableDate", expr, err)
		}
	}
}

func TestEnumerateSlots(t *testing.T) {
	start := MustTimeOfDay("09:00")
	end := MustTimeOfDay("12:00")

	slots := EnumerateSlots(start, end, 30*time.Minute)
	if len(slots) != 6 {
		t.Fatalf("expected 6 slots, got %d", len(slots))
	}

	wantStarts := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}
	for i, s := range slots {
		if s.Start.String() != wantStarts[i] {
			t.Errorf("slot %d start = %s, want %s", i, s.Start, wantStarts[i])
		}
		if s.End != s.Start+30 {
			t.Errorf("slot %d is not 30 minutes", i)
		}
		if i > 0 && slots[i-1].End != s.Start {
			t.Errorf("slot %d is not contiguous with its predecessor", i)
		}
	}
	if last := slots[len(slots)-1]; last.End > end {
		t.Errorf("last slot ends at %s, past the window end %s", last.End, end)
	}
}

func TestEnumerateSlotsDropsRemainder(t *testing.T) {
	slots := EnumerateSlots(MustTimeOfDay("09:00"), MustTimeOfDay("10:50"), 45*time.Minute)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[1].End.String() != "10:30" {
		t.Errorf("last slot end = %s, want 10:30", slots[1].End)
	}
}

func TestEnumerateSlotsDegenerate(t *testing.T) {
	if got := EnumerateSlots(MustTimeOfDay("12:00"), MustTimeOfDay("09:00"), 30*time.Minute); got != nil {
		t.Errorf("inverted window should yield nil, got %v", got)
	}
	if got := EnumerateSlots(MustTimeOfDay("09:00"), MustTimeOfDay("12:00"), 0); got != nil {
		t.Errorf("zero duration should yield nil, got %v", got)
	}
}

func TestTimeOfDayRoundTrip(t *testing.T) {
	for _, s := range []string{"00:00", "09:05", "17:30", "23:59"} {
		tod, err := ParseTimeOfDay(s)
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%q): %v", s, err)
		}
		if tod.String() != s {
			t.Errorf("round trip %q -> %q", s, tod.String())
		}
	}
	if _, err := ParseTimeOfDay("25:00"); err == nil {
		t.Error("expected error for 25:00")
	}
}

func TestTimePreferenceWindows(t *testing.T) {
	tests := []struct {
		pref  TimePreference
		tod   string
		wantz bool
	}{
		{PreferMorning, "09:00", true},
		{PreferMorning, "12:00", false},
		{PreferAfternoon, "12:00", true},
		{PreferAfternoon, "16:59", true},
		{PreferAfternoon, "17:00", false},
		{PreferEvening, "17:00", true},
		{TimePreference(""), "03:00", true},
	}
	for _, tt := range tests {
		if got := tt.pref.Contains(MustTimeOfDay(tt.tod)); got != tt.wantz {
			t.Errorf("%q.Contains(%s) = %v, want %v", tt.pref, tt.tod, got, tt.wantz)
		}
	}
}
