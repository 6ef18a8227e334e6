package sla

import (
	"testing"

	"github.com/spec-kit/request-hub/internal/domain"
)

func TestDays(t *testing.T) {
	cases := []struct {
		priority domain.RequestPriority
		want     int
	}{
		{domain.RequestPriorityMedium, 5},
		{domain.RequestPriorityHigh, 3},
		{domain.RequestPriority("urgent"), 5},
		{domain.RequestPriority(""), 5},
	}
	for _, tc := range cases {
		if got := Days(tc.priority); got != tc.want {
			t.Fatalf("Days(%q) = %d, want %d", tc.priority, got, tc.want)
		}
	}
}
