// Package lifecycle holds the ticket status machine and its side effects:
// status/priority parsing, the conventional transition table, resolution
// timestamping and SLA deadline arithmetic.
//
// Transitions are advisory. IsConventional tells callers whether a move
// follows the usual flow so they can log unusual jumps, but any authorized
// actor may set any status. The hard rules enforced here are that ASSIGNED
// needs a technician and that RESOLVED stamps the resolution time.
package lifecycle

import (
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var (
	// ErrInvalidStatus is returned for values outside the status enum.
	ErrInvalidStatus = errors.New("invalid ticket status")
	// ErrInvalidPriority is returned for values outside the priority enum.
	ErrInvalidPriority = errors.New("invalid ticket priority")
	// ErrTechnicianRequired is returned when entering ASSIGNED without a technician.
	ErrTechnicianRequired = errors.New("assigned status requires a technician")
)

// Statuses lists every status in lifecycle order.
var Statuses = []domain.TicketStatus{
	domain.TicketStatusOpen,
	domain.TicketStatusAssigned,
	domain.TicketStatusInProgress,
	domain.TicketStatusOnHold,
	domain.TicketStatusResolved,
	domain.TicketStatusClosed,
	domain.TicketStatusCancelled,
}

// Transitions is the conventional flow. CANCELLED is reachable from every
// non-terminal state; CLOSED and CANCELLED are terminal.
var Transitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusAssigned, domain.TicketStatusCancelled},
	domain.TicketStatusAssigned:   {domain.TicketStatusInProgress, domain.TicketStatusCancelled},
	domain.TicketStatusInProgress: {domain.TicketStatusOnHold, domain.TicketStatusResolved, domain.TicketStatusCancelled},
	domain.TicketStatusOnHold:     {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusCancelled},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed, domain.TicketStatusCancelled},
	domain.TicketStatusClosed:     {},
	domain.TicketStatusCancelled:  {},
}

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (domain.TicketStatus, error) {
	status := domain.TicketStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := Transitions[status]; !ok {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// ParsePriority validates a raw priority value.
func ParsePriority(raw string) (domain.TicketPriority, error) {
	priority := domain.TicketPriority(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := slaBusinessDays[priority]; !ok {
		return "", ErrInvalidPriority
	}
	return priority, nil
}

// IsTerminal reports whether no conventional transition leaves status.
func IsTerminal(status domain.TicketStatus) bool {
	return status == domain.TicketStatusClosed || status == domain.TicketStatusCancelled
}

// IsConventional reports whether from -> to follows the usual flow.
// Setting the current status again counts as conventional.
func IsConventional(from, to domain.TicketStatus) bool {
	if from == to {
		return true
	}
	for _, candidate := range Transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// IsRateable reports whether satisfaction feedback may be left in status.
func IsRateable(status domain.TicketStatus) bool {
	return status == domain.TicketStatusResolved || status == domain.TicketStatusClosed
}

// IsOpenWork reports whether the ticket still counts against its SLA.
func IsOpenWork(status domain.TicketStatus) bool {
	switch status {
	case domain.TicketStatusResolved, domain.TicketStatusClosed, domain.TicketStatusCancelled:
		return false
	}
	return true
}

// ApplyStatus moves a single ticket to status and applies the side effects of
// entering it. ResolvedAt is stamped only when the ticket enters RESOLVED from
// a different status; the bulk path overwrites it unconditionally instead.
func ApplyStatus(ticket *domain.Ticket, status domain.TicketStatus, now time.Time) error {
	if _, ok := Transitions[status]; !ok {
		return ErrInvalidStatus
	}
	if status == domain.TicketStatusAssigned && ticket.TechnicianID == nil {
		return ErrTechnicianRequired
	}
	if status == domain.TicketStatusResolved && ticket.Status != domain.TicketStatusResolved {
		resolved := now
		ticket.ResolvedAt = &resolved
	}
	ticket.Status = status
	return nil
}
