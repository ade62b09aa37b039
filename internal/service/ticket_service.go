package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/access"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketService coordinates single-ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	areas       repository.AreaRepository
	users       repository.UserRepository
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
	history     repository.TicketHistoryRepository
	dispatcher  events.Dispatcher
	signer      storage.URLSigner
	sanitizer   *bluemonday.Policy
	logger      *zap.Logger
	location    *time.Location
	now         func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	AreaRepo       repository.AreaRepository
	UserRepo       repository.UserRepository
	CommentRepo    repository.CommentRepository
	AttachmentRepo repository.AttachmentRepository
	HistoryRepo    repository.TicketHistoryRepository
	Dispatcher     events.Dispatcher
	Signer         storage.URLSigner
	Logger         *zap.Logger
	// Location is the business timezone for SLA deadlines. Defaults to UTC.
	Location *time.Location
	Now      func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Location    string
	Equipment   string
	Model       string
	AssetTag    string
	Priority    string
	AreaID      string
	Attachments []AttachmentInput
}

// AttachmentInput is metadata for a file already placed in storage.
type AttachmentInput struct {
	FileName   string
	URL        string
	StorageKey string
	MimeType   string
	SizeBytes  int64
}

// TicketListFilter describes listing filters applied within the caller's scope.
type TicketListFilter struct {
	AreaID       *string
	TechnicianID *string
	Statuses     []string
	Priorities   []string
	SearchTerm   *string
	Limit        int
	Offset       int
}

// TicketUpdateInput is a partial update. A technician without a status
// moves the ticket to ASSIGNED.
type TicketUpdateInput struct {
	TechnicianID *string
	Status       *string
}

// CommentInput describes a new comment.
type CommentInput struct {
	Text       string
	IsInternal bool
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	svc := &TicketService{
		tickets:     deps.TicketRepo,
		areas:       deps.AreaRepo,
		users:       deps.UserRepo,
		comments:    deps.CommentRepo,
		attachments: deps.AttachmentRepo,
		history:     deps.HistoryRepo,
		dispatcher:  deps.Dispatcher,
		signer:      deps.Signer,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      nopLogger(deps.Logger),
		location:    deps.Location,
		now:         deps.Now,
	}
	if svc.location == nil {
		svc.location = time.UTC
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.signer == nil {
		svc.signer = storage.NoopSigner{}
	}
	return svc
}

// CreateTicket validates the payload, computes the SLA deadline and stores a
// numbered ticket owned by actor.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	caller := access.CallerFromUser(actor)
	if caller.ID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	title := plainText(s.sanitizer, input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	priority := domain.TicketPriorityMedium
	if strings.TrimSpace(input.Priority) != "" {
		p, err := lifecycle.ParsePriority(input.Priority)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"field": "priority", "value": input.Priority})
		}
		priority = p
	}

	area, err := s.areas.GetByID(ctx, input.AreaID)
	if err != nil {
		return nil, notFound(err, "area")
	}

	createdAt := s.now().In(s.location)
	deadline, err := lifecycle.SLADeadline(createdAt, priority)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"field": "priority"})
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: plainText(s.sanitizer, input.Description),
		Location:    plainText(s.sanitizer, input.Location),
		Equipment:   plainText(s.sanitizer, input.Equipment),
		Model:       plainText(s.sanitizer, input.Model),
		AssetTag:    plainText(s.sanitizer, input.AssetTag),
		Priority:    priority,
		Status:      domain.TicketStatusOpen,
		AreaID:      area.ID,
		RequesterID: caller.ID,
		CreatedAt:   createdAt,
		SLADeadline: &deadline,
	}
	for _, att := range input.Attachments {
		ticket.Attachments = append(ticket.Attachments, domain.Attachment{
			UploaderID: caller.ID,
			FileName:   strings.TrimSpace(att.FileName),
			URL:        strings.TrimSpace(att.URL),
			StorageKey: strings.TrimSpace(att.StorageKey),
			MimeType:   att.MimeType,
			SizeBytes:  att.SizeBytes,
		})
	}

	if err := s.tickets.CreateNumbered(ctx, ticket); err != nil {
		return nil, notFound(err, "area")
	}
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("number", ticket.Number),
		zap.String("area_id", ticket.AreaID),
		zap.String("priority", string(ticket.Priority)))

	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload: events.TicketCreatedPayload{
			Ticket:      events.RefOfTicket(ticket),
			Priority:    ticket.Priority,
			SLADeadline: ticket.SLADeadline,
		},
	})

	if err := s.signAttachments(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ListTickets returns tickets visible to actor.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	scope, err := access.TicketScope(access.CallerFromUser(actor))
	if err != nil {
		return nil, accessError(err)
	}

	repoFilter := repository.TicketFilter{
		Scope:        scope,
		AreaID:       filter.AreaID,
		TechnicianID: filter.TechnicianID,
		SearchTerm:   filter.SearchTerm,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	}
	for _, raw := range filter.Statuses {
		status, err := lifecycle.ParseStatus(raw)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"field": "status", "value": raw})
		}
		repoFilter.Statuses = append(repoFilter.Statuses, status)
	}
	for _, raw := range filter.Priorities {
		priority, err := lifecycle.ParsePriority(raw)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid priority filter", map[string]any{"field": "priority", "value": raw})
		}
		repoFilter.Priorities = append(repoFilter.Priorities, priority)
	}
	return s.tickets.List(ctx, repoFilter)
}

// GetTicket returns a ticket with its attachments. Missing tickets are 404
// before the access check runs.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadAuthorized(ctx, actor, ticketID, access.ActionView)
	if err != nil {
		return nil, err
	}
	if s.attachments != nil {
		atts, err := s.attachments.ListByTicket(ctx, ticket.ID)
		if err != nil {
			return nil, err
		}
		ticket.Attachments = atts
	}
	if err := s.signAttachments(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// UpdateTicket assigns a technician and/or moves the status.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.User, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	if input.TechnicianID == nil && input.Status == nil {
		return nil, apperrors.NewValidationError("technicianId or status is required", nil)
	}

	var status *domain.TicketStatus
	if input.Status != nil {
		parsed, err := lifecycle.ParseStatus(*input.Status)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"field": "status", "value": *input.Status})
		}
		status = &parsed
	}

	ticket, err := s.loadAuthorized(ctx, actor, ticketID, access.ActionView)
	if err != nil {
		return nil, err
	}
	caller := access.CallerFromUser(actor)
	ref := access.RefOf(ticket)

	previousTechnician := ticket.TechnicianID
	technicianChanged := false
	if input.TechnicianID != nil {
		if err := access.Authorize(caller, access.ActionAssign, ref); err != nil {
			return nil, accessError(err)
		}
		technician, err := s.resolveTechnician(ctx, *input.TechnicianID, ticket.AreaID)
		if err != nil {
			return nil, err
		}
		technicianChanged = previousTechnician == nil || *previousTechnician != technician.ID
		ticket.TechnicianID = &technician.ID
		if status == nil {
			assigned := domain.TicketStatusAssigned
			status = &assigned
		}
	} else if err := access.Authorize(caller, access.ActionChangeStatus, ref); err != nil {
		return nil, accessError(err)
	}

	oldStatus := ticket.Status
	if err := s.applyStatus(ticket, *status); err != nil {
		return nil, err
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, notFound(err, "ticket")
	}

	if technicianChanged {
		s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeTechnician,
			map[string]any{"technician_id": previousTechnician},
			map[string]any{"technician_id": ticket.TechnicianID})
		publish(ctx, s.dispatcher, s.logger, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			Actor:    actorOf(actor),
			Payload: events.TicketAssignedPayload{
				Ticket:               events.RefOfTicket(ticket),
				PreviousTechnicianID: previousTechnician,
			},
		})
	}
	if oldStatus != ticket.Status {
		s.statusChanged(ctx, actor, ticket, oldStatus)
	}
	return ticket, nil
}

// CloseTicket lets the requester close a resolved ticket.
func (s *TicketService) CloseTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadAuthorized(ctx, actor, ticketID, access.ActionClose)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status
	if err := s.applyStatus(ticket, domain.TicketStatusClosed); err != nil {
		return nil, err
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, notFound(err, "ticket")
	}
	s.statusChanged(ctx, actor, ticket, oldStatus)
	return ticket, nil
}

// RateTicket stores the requester's satisfaction rating.
func (s *TicketService) RateTicket(ctx context.Context, actor *domain.User, ticketID string, rating int) (*domain.Ticket, error) {
	if rating < domain.MinSatisfactionRating || rating > domain.MaxSatisfactionRating {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"field": "rating", "value": rating})
	}
	ticket, err := s.loadAuthorized(ctx, actor, ticketID, access.ActionRate)
	if err != nil {
		return nil, err
	}
	previous := ticket.SatisfactionRating
	ticket.SatisfactionRating = &rating
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, notFound(err, "ticket")
	}
	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeRating,
		map[string]any{"rating": previous},
		map[string]any{"rating": rating})
	return ticket, nil
}

// ListComments returns the comments actor may read.
func (s *TicketService) ListComments(ctx context.Context, actor *domain.User, ticketID string) ([]domain.Comment, error) {
	ticket, err := s.loadAuthorized(ctx, actor, ticketID, access.ActionView)
	if err != nil {
		return nil, err
	}
	return s.comments.ListByTicket(ctx, ticket.ID, access.CanSeeInternalComments(access.CallerFromUser(actor)))
}

// AddComment appends a comment. COMMON users cannot post internal notes.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.User, ticketID string, input CommentInput) (*domain.Comment, error) {
	text := plainText(s.sanitizer, input.Text)
	if text == "" {
		return nil, apperrors.NewValidationError("text is required", map[string]any{"field": "text"})
	}
	ticket, err := s.loadAuthorized(ctx, actor, ticketID, access.ActionComment)
	if err != nil {
		return nil, err
	}
	if input.IsInternal && !access.CanSeeInternalComments(access.CallerFromUser(actor)) {
		return nil, apperrors.NewForbidden("internal comments are restricted to staff")
	}

	comment := &domain.Comment{
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		AuthorName: actor.Name,
		Text:       text,
		IsInternal: input.IsInternal,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, notFound(err, "ticket")
	}

	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload: events.CommentAddedPayload{
			Ticket:      events.RefOfTicket(ticket),
			CommentID:   comment.ID,
			AuthorID:    actor.ID,
			AuthorName:  actor.Name,
			IsInternal:  comment.IsInternal,
			BodyPreview: stringPreview(text, 280),
		},
	})
	return comment, nil
}

// ListHistory returns the audit trail of a ticket.
func (s *TicketService) ListHistory(ctx context.Context, actor *domain.User, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	ticket, err := s.loadAuthorized(ctx, actor, ticketID, access.ActionView)
	if err != nil {
		return nil, err
	}
	return s.history.ListByTicket(ctx, ticket.ID, limit, offset)
}

// loadAuthorized fetches the ticket, returning 404 when it does not exist
// and 403 when the caller may not perform action on it.
func (s *TicketService) loadAuthorized(ctx context.Context, actor *domain.User, ticketID string, action access.Action) (*domain.Ticket, error) {
	caller := access.CallerFromUser(actor)
	if caller.ID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFound(err, "ticket")
	}
	if err := access.Authorize(caller, action, access.RefOf(ticket)); err != nil {
		return nil, accessError(err)
	}
	return ticket, nil
}

// resolveTechnician returns 404 unless id names a TECHNICIAN of areaID.
func (s *TicketService) resolveTechnician(ctx context.Context, id, areaID string) (*domain.User, error) {
	technician, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "technician")
	}
	if technician.Role != domain.RoleTechnician || !technician.InArea(areaID) {
		return nil, apperrors.NewNotFound("technician", map[string]any{"technician_id": id})
	}
	return technician, nil
}

func (s *TicketService) applyStatus(ticket *domain.Ticket, status domain.TicketStatus) error {
	from := ticket.Status
	if err := lifecycle.ApplyStatus(ticket, status, s.now()); err != nil {
		if errors.Is(err, lifecycle.ErrTechnicianRequired) {
			return apperrors.NewValidationError("a technician must be assigned first", map[string]any{"field": "status"})
		}
		return apperrors.NewValidationError(err.Error(), map[string]any{"field": "status"})
	}
	if !lifecycle.IsConventional(from, status) {
		s.logger.Info("unconventional status transition",
			zap.String("ticket_id", ticket.ID),
			zap.String("from", string(from)),
			zap.String("to", string(status)))
	}
	return nil
}

func (s *TicketService) statusChanged(ctx context.Context, actor *domain.User, ticket *domain.Ticket, oldStatus domain.TicketStatus) {
	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeStatus,
		map[string]any{"status": oldStatus},
		map[string]any{"status": ticket.Status})
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload: events.TicketStatusChangedPayload{
			Ticket:    events.RefOfTicket(ticket),
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		},
	})
}

// recordHistory writes an audit entry. Failures are logged; the change
// itself has already been committed.
func (s *TicketService) recordHistory(ctx context.Context, actor *domain.User, ticketID string, changeType domain.TicketChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	var changedBy *string
	if actor != nil {
		id := actor.ID
		changedBy = &id
	}
	entry := &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: changedBy,
		ChangeType:  changeType,
		OldValue:    oldValue,
		NewValue:    newValue,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("record ticket history failed",
			zap.String("ticket_id", ticketID),
			zap.String("change_type", string(changeType)),
			zap.Error(err))
	}
}

func (s *TicketService) signAttachments(ctx context.Context, ticket *domain.Ticket) error {
	for i := range ticket.Attachments {
		url, err := s.signer.AttachmentURL(ctx, ticket.Attachments[i])
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		ticket.Attachments[i].URL = url
	}
	return nil
}
