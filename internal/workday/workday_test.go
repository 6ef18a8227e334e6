package workday

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddWorkingDaysZeroReturnsStart(t *testing.T) {
	starts := []time.Time{
		date(2024, time.January, 1), // Monday
		date(2024, time.January, 6), // Saturday
		date(2024, time.January, 7), // Sunday
	}
	for _, start := range starts {
		if got := AddWorkingDays(start, 0); !got.Equal(start) {
			t.Fatalf("AddWorkingDays(%v, 0) = %v, want start", start, got)
		}
	}
}

func TestAddWorkingDays(t *testing.T) {
	cases := []struct {
		name  string
		start time.Time
		n     int
		want  time.Time
	}{
		{"monday plus three", date(2024, time.January, 1), 3, date(2024, time.January, 4)},
		{"monday plus five spans weekend", date(2024, time.January, 1), 5, date(2024, time.January, 8)},
		{"thursday plus three spans weekend", date(2024, time.January, 4), 3, date(2024, time.January, 9)},
		{"friday plus one lands monday", date(2024, time.January, 5), 1, date(2024, time.January, 8)},
		{"saturday start not counted", date(2024, time.January, 6), 1, date(2024, time.January, 8)},
		{"sunday start not counted", date(2024, time.January, 7), 2, date(2024, time.January, 9)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AddWorkingDays(tc.start, tc.n)
			if !got.Equal(tc.want) {
				t.Fatalf("AddWorkingDays(%v, %d) = %v, want %v", tc.start, tc.n, got, tc.want)
			}
		})
	}
}

func TestAddWorkingDaysAlwaysLandsOnWeekday(t *testing.T) {
	start := date(2024, time.March, 1)
	for n := 1; n <= 30; n++ {
		got := AddWorkingDays(start, n)
		if !IsWorkingDay(got) {
			t.Fatalf("AddWorkingDays(%v, %d) landed on %v", start, n, got.Weekday())
		}
	}
}
