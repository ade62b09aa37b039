package domain

import (
	"fmt"
	"time"
)

// ticketNumberBase offsets the per-area counter when formatting ticket numbers.
const ticketNumberBase = 1000

// Area is a department that owns tickets, a technician pool and a numbering sequence.
type Area struct {
	ID            string
	Name          string
	Code          string
	TicketCounter int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FormatTicketNumber renders the human readable identifier, e.g. "TI-1007".
func FormatTicketNumber(code string, counter int) string {
	return fmt.Sprintf("%s-%d", code, ticketNumberBase+counter)
}
