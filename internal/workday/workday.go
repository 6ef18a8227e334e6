// Package workday provides business-day date arithmetic. Weekends are
// skipped; holiday calendars are not modeled.
package workday

import "time"

// AddWorkingDays returns the date reached by advancing one calendar day at
// a time from start, counting only Monday through Friday, until n such
// days have been counted. The start date itself is never counted and the
// result for n=0 is start. n must not be negative.
func AddWorkingDays(start time.Time, n int) time.Time {
	current := start
	added := 0
	for added < n {
		current = current.AddDate(0, 0, 1)
		if IsWorkingDay(current) {
			added++
		}
	}
	return current
}

// IsWorkingDay reports whether t falls on Monday through Friday.
func IsWorkingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
