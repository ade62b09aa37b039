package lifecycle

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var slaBusinessDays = map[domain.TicketPriority]int{
	domain.TicketPriorityUrgent: 1,
	domain.TicketPriorityHigh:   3,
	domain.TicketPriorityMedium: 5,
	domain.TicketPriorityLow:    10,
}

// SLABusinessDays returns the resolution allowance for a priority.
func SLABusinessDays(priority domain.TicketPriority) (int, bool) {
	days, ok := slaBusinessDays[priority]
	return days, ok
}

// SLADeadline computes the resolution deadline for a ticket created at
// createdAt. The deadline is fixed at creation and never recomputed.
func SLADeadline(createdAt time.Time, priority domain.TicketPriority) (time.Time, error) {
	days, ok := slaBusinessDays[priority]
	if !ok {
		return time.Time{}, ErrInvalidPriority
	}
	return AddBusinessDays(createdAt, days), nil
}

// AddBusinessDays advances t by n weekdays, skipping Saturdays and Sundays
// and keeping the wall clock time. Weekday boundaries are evaluated in t's
// location.
func AddBusinessDays(t time.Time, n int) time.Time {
	result := t
	for added := 0; added < n; {
		result = result.AddDate(0, 0, 1)
		if isBusinessDay(result) {
			added++
		}
	}
	return result
}

func isBusinessDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}
