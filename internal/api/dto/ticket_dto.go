package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                    `json:"title" validate:"required,max=200"`
	Description string                    `json:"description" validate:"max=10000"`
	Location    string                    `json:"location" validate:"max=200"`
	Equipment   string                    `json:"equipment" validate:"max=200"`
	Model       string                    `json:"model" validate:"max=200"`
	AssetTag    string                    `json:"assetTag" validate:"max=100"`
	Priority    string                    `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT low medium high urgent"`
	AreaID      string                    `json:"areaId" validate:"required"`
	Attachments []CreateAttachmentRequest `json:"attachments" validate:"omitempty,max=20,dive"`
}

// CreateAttachmentRequest describes a file already uploaded to storage.
type CreateAttachmentRequest struct {
	FileName   string `json:"fileName" validate:"required,max=255"`
	URL        string `json:"url" validate:"omitempty,url"`
	StorageKey string `json:"storageKey" validate:"max=512"`
	MimeType   string `json:"mimeType" validate:"max=100"`
	SizeBytes  int64  `json:"sizeBytes" validate:"gte=0"`
}

// UpdateTicketRequest is the PATCH body.
type UpdateTicketRequest struct {
	TechnicianID *string `json:"technicianId" validate:"omitempty,min=1"`
	Status       *string `json:"status" validate:"omitempty,min=1"`
}

// RateTicketRequest payload.
type RateTicketRequest struct {
	Rating int `json:"rating" validate:"required,gte=1,lte=5"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Text       string `json:"text" validate:"required,max=5000"`
	IsInternal bool   `json:"isInternal"`
}

// BulkUpdateRequest payload.
type BulkUpdateRequest struct {
	TicketIDs    []string `json:"ticketIds" validate:"required,min=1,max=500,dive,required"`
	Status       *string  `json:"status" validate:"required_without=TechnicianID"`
	TechnicianID *string  `json:"technicianId"`
}

// BulkDeleteRequest payload.
type BulkDeleteRequest struct {
	TicketIDs []string `json:"ticketIds" validate:"required,min=1,max=500,dive,required"`
}

// BulkResult reports how many tickets a bulk call touched.
type BulkResult struct {
	Count int64 `json:"count"`
}

// TicketResponse is the ticket representation returned by every endpoint.
type TicketResponse struct {
	ID                 string                `json:"id"`
	Number             string                `json:"number"`
	Title              string                `json:"title"`
	Description        string                `json:"description"`
	Location           string                `json:"location"`
	Equipment          string                `json:"equipment"`
	Model              string                `json:"model"`
	AssetTag           string                `json:"assetTag"`
	Priority           domain.TicketPriority `json:"priority"`
	Status             domain.TicketStatus   `json:"status"`
	AreaID             string                `json:"areaId"`
	RequesterID        string                `json:"requesterId"`
	TechnicianID       *string               `json:"technicianId"`
	CreatedAt          time.Time             `json:"createdAt"`
	UpdatedAt          time.Time             `json:"updatedAt"`
	ResolvedAt         *time.Time            `json:"resolvedAt"`
	SLADeadline        *time.Time            `json:"slaDeadline"`
	SatisfactionRating *int                  `json:"satisfactionRating"`
	Attachments        []AttachmentResponse  `json:"attachments,omitempty"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID        string    `json:"id"`
	FileName  string    `json:"fileName"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mimeType,omitempty"`
	SizeBytes int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// CommentResponse is one entry of a ticket thread.
type CommentResponse struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticketId"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Text       string    `json:"text"`
	IsInternal bool      `json:"isInternal"`
	CreatedAt  time.Time `json:"createdAt"`
}

// HistoryResponse is one audit entry.
type HistoryResponse struct {
	ID          string                  `json:"id"`
	ChangedByID *string                 `json:"changedById"`
	ChangeType  domain.TicketChangeType `json:"changeType"`
	OldValue    map[string]any          `json:"oldValue"`
	NewValue    map[string]any          `json:"newValue"`
	CreatedAt   time.Time               `json:"createdAt"`
}

// DashboardResponse holds ticket counters for the caller's scope.
type DashboardResponse struct {
	Total    int                         `json:"total"`
	ByStatus map[domain.TicketStatus]int `json:"byStatus"`
	Overdue  int                         `json:"overdue"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:                 t.ID,
		Number:             t.Number,
		Title:              t.Title,
		Description:        t.Description,
		Location:           t.Location,
		Equipment:          t.Equipment,
		Model:              t.Model,
		AssetTag:           t.AssetTag,
		Priority:           t.Priority,
		Status:             t.Status,
		AreaID:             t.AreaID,
		RequesterID:        t.RequesterID,
		TechnicianID:       t.TechnicianID,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
		ResolvedAt:         t.ResolvedAt,
		SLADeadline:        t.SLADeadline,
		SatisfactionRating: t.SatisfactionRating,
	}
	for _, att := range t.Attachments {
		resp.Attachments = append(resp.Attachments, AttachmentResponse{
			ID:        att.ID,
			FileName:  att.FileName,
			URL:       att.URL,
			MimeType:  att.MimeType,
			SizeBytes: att.SizeBytes,
			CreatedAt: att.CreatedAt,
		})
	}
	return resp
}

// NewTicketList maps a page of tickets.
func NewTicketList(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i]))
	}
	return items
}

// NewCommentResponse maps a comment.
func NewCommentResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		TicketID:   c.TicketID,
		AuthorID:   c.AuthorID,
		AuthorName: c.AuthorName,
		Text:       c.Text,
		IsInternal: c.IsInternal,
		CreatedAt:  c.CreatedAt,
	}
}

// NewHistoryResponse maps an audit entry.
func NewHistoryResponse(h *domain.TicketHistory) HistoryResponse {
	return HistoryResponse{
		ID:          h.ID,
		ChangedByID: h.ChangedByID,
		ChangeType:  h.ChangeType,
		OldValue:    h.OldValue,
		NewValue:    h.NewValue,
		CreatedAt:   h.CreatedAt,
	}
}
