// Package sla holds the service-level policy table mapping request
// priority to a target turnaround in working days.
package sla

import "github.com/spec-kit/request-hub/internal/domain"

// DefaultDays is the fallback turnaround for priorities missing from the
// policy table.
const DefaultDays = 5

var targetDays = map[domain.RequestPriority]int{
	domain.RequestPriorityMedium: 5,
	domain.RequestPriorityHigh:   3,
}

// Days returns the working-day turnaround target for a priority. Unknown
// or empty priorities silently fall back to the medium tier; this leniency
// is intentional and matches historical behavior.
func Days(priority domain.RequestPriority) int {
	if days, ok := targetDays[priority]; ok {
		return days
	}
	return DefaultDays
}
