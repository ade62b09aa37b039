package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusAssigned   TicketStatus = "ASSIGNED"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusOnHold     TicketStatus = "ON_HOLD"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
	TicketStatusCancelled  TicketStatus = "CANCELLED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Rating bounds for satisfaction feedback.
const (
	MinSatisfactionRating = 1
	MaxSatisfactionRating = 5
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID                 string
	Number             string
	Title              string
	Description        string
	Location           string
	Equipment          string
	Model              string
	AssetTag           string
	Priority           TicketPriority
	Status             TicketStatus
	AreaID             string
	RequesterID        string
	TechnicianID       *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ResolvedAt         *time.Time
	SLADeadline        *time.Time
	SatisfactionRating *int
	Attachments        []Attachment
}

// IsTechnician reports whether userID is the assigned technician.
func (t *Ticket) IsTechnician(userID string) bool {
	return t.TechnicianID != nil && *t.TechnicianID == userID
}
