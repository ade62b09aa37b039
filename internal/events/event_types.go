package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketAssigned         EventType = "ticket_assigned"
	EventTicketStatusChanged    EventType = "ticket_status_changed"
	EventCommentAdded           EventType = "comment_added"
	EventPasswordResetRequested EventType = "password_reset_requested"
)

// Actor identifies who caused an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id,omitempty"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketRefPayload is the ticket summary shared by ticket events.
type TicketRefPayload struct {
	Number       string  `json:"number"`
	Title        string  `json:"title"`
	AreaID       string  `json:"area_id"`
	RequesterID  string  `json:"requester_id"`
	TechnicianID *string `json:"technician_id,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Ticket      TicketRefPayload      `json:"ticket"`
	Priority    domain.TicketPriority `json:"priority"`
	SLADeadline *time.Time            `json:"sla_deadline,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	Ticket               TicketRefPayload `json:"ticket"`
	PreviousTechnicianID *string          `json:"previous_technician_id,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Ticket    TicketRefPayload    `json:"ticket"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	Ticket      TicketRefPayload `json:"ticket"`
	CommentID   string           `json:"comment_id"`
	AuthorID    string           `json:"author_id"`
	AuthorName  string           `json:"author_name"`
	IsInternal  bool             `json:"is_internal"`
	BodyPreview string           `json:"body_preview"`
}

// PasswordResetRequestedPayload payload.
type PasswordResetRequestedPayload struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RefOfTicket summarises a ticket for event payloads.
func RefOfTicket(t *domain.Ticket) TicketRefPayload {
	return TicketRefPayload{
		Number:       t.Number,
		Title:        t.Title,
		AreaID:       t.AreaID,
		RequesterID:  t.RequesterID,
		TechnicianID: t.TechnicianID,
	}
}
