package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// TicketWorkflow is the single-ticket surface the handler needs.
type TicketWorkflow interface {
	CreateTicket(ctx context.Context, actor *domain.User, input service.TicketCreateInput) (*domain.Ticket, error)
	ListTickets(ctx context.Context, actor *domain.User, filter service.TicketListFilter) ([]domain.Ticket, error)
	GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error)
	UpdateTicket(ctx context.Context, actor *domain.User, ticketID string, input service.TicketUpdateInput) (*domain.Ticket, error)
	CloseTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error)
	RateTicket(ctx context.Context, actor *domain.User, ticketID string, rating int) (*domain.Ticket, error)
	ListComments(ctx context.Context, actor *domain.User, ticketID string) ([]domain.Comment, error)
	AddComment(ctx context.Context, actor *domain.User, ticketID string, input service.CommentInput) (*domain.Comment, error)
	ListHistory(ctx context.Context, actor *domain.User, ticketID string, limit, offset int) ([]domain.TicketHistory, error)
}

// BulkWorkflow is the set-based surface used by managers and admins.
type BulkWorkflow interface {
	BulkUpdate(ctx context.Context, actor *domain.User, input service.BulkUpdateInput) (int64, error)
	BulkDelete(ctx context.Context, actor *domain.User, ticketIDs []string) (int64, error)
}

// TicketsHandler manages ticket endpoints for every role.
type TicketsHandler struct {
	tickets TicketWorkflow
	bulk    BulkWorkflow
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets TicketWorkflow, bulk BulkWorkflow) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, bulk: bulk}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	input := service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Equipment:   req.Equipment,
		Model:       req.Model,
		AssetTag:    req.AssetTag,
		Priority:    req.Priority,
		AreaID:      req.AreaID,
	}
	for _, att := range req.Attachments {
		input.Attachments = append(input.Attachments, service.AttachmentInput{
			FileName:   att.FileName,
			URL:        att.URL,
			StorageKey: att.StorageKey,
			MimeType:   att.MimeType,
			SizeBytes:  att.SizeBytes,
		})
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewTicketResponse(ticket))
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	limit, offset := page(c)
	tickets, err := h.tickets.ListTickets(c.UserContext(), actor, service.TicketListFilter{
		AreaID:       optionalQuery(c, "areaId"),
		TechnicianID: optionalQuery(c, "technicianId"),
		Statuses:     listQuery(c, "status"),
		Priorities:   listQuery(c, "priority"),
		SearchTerm:   optionalQuery(c, "q"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewTicketList(tickets))
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewTicketResponse(ticket))
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.UpdateTicket(c.UserContext(), actor, c.Params("id"), service.TicketUpdateInput{
		TechnicianID: req.TechnicianID,
		Status:       req.Status,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewTicketResponse(ticket))
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.CloseTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewTicketResponse(ticket))
}

// RateTicket POST /tickets/:id/rate.
func (h *TicketsHandler) RateTicket(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.RateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.RateTicket(c.UserContext(), actor, c.Params("id"), req.Rating)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewTicketResponse(ticket))
}

// ListComments GET /tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	comments, err := h.tickets.ListComments(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, dto.NewCommentResponse(&comments[i]))
	}
	return data(c, http.StatusOK, items)
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	comment, err := h.tickets.AddComment(c.UserContext(), actor, c.Params("id"), service.CommentInput{
		Text:       req.Text,
		IsInternal: req.IsInternal,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewCommentResponse(comment))
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	limit, offset := page(c)
	entries, err := h.tickets.ListHistory(c.UserContext(), actor, c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.HistoryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.NewHistoryResponse(&entries[i]))
	}
	return data(c, http.StatusOK, items)
}

// BulkUpdate POST /tickets/bulk-update.
func (h *TicketsHandler) BulkUpdate(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.BulkUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	count, err := h.bulk.BulkUpdate(c.UserContext(), actor, service.BulkUpdateInput{
		TicketIDs:    req.TicketIDs,
		Status:       req.Status,
		TechnicianID: req.TechnicianID,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.BulkResult{Count: count})
}

// BulkDelete POST /tickets/bulk-delete.
func (h *TicketsHandler) BulkDelete(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.BulkDeleteRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	count, err := h.bulk.BulkDelete(c.UserContext(), actor, req.TicketIDs)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.BulkResult{Count: count})
}
