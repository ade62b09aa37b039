package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/notification"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// NotificationService turns domain events into queued emails.
type NotificationService struct {
	dispatcher events.Dispatcher
	queue      notification.Queue
	users      repository.UserRepository
	baseURL    string
	logger     *zap.Logger
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Queue      notification.Queue
	UserRepo   repository.UserRepository
	BaseURL    string
	Logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		queue:      deps.Queue,
		users:      deps.UserRepo,
		baseURL:    strings.TrimRight(deps.BaseURL, "/"),
		logger:     nopLogger(deps.Logger),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventCommentAdded, n.handleCommentAdded)
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handlePasswordReset)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return n.unexpectedPayload(event)
	}
	role := domain.RoleManager
	areaID := payload.Ticket.AreaID
	managers, err := n.users.List(ctx, repository.UserFilter{Role: &role, AreaID: &areaID, Limit: 200})
	if err != nil {
		n.logger.Warn("load area managers", zap.String("area_id", areaID), zap.Error(err))
		return nil
	}
	to := make([]string, 0, len(managers))
	for _, m := range managers {
		to = append(to, m.Email)
	}

	data := n.ticketData(event.TicketID, payload.Ticket)
	data["Priority"] = string(payload.Priority)
	if payload.SLADeadline != nil {
		data["SLADeadline"] = payload.SLADeadline.Format(time.RFC1123)
	}
	n.enqueue(ctx, event, notification.TemplateTicketCreated, to, data)
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return n.unexpectedPayload(event)
	}
	if payload.Ticket.TechnicianID == nil {
		return nil
	}
	to := n.emailsOf(ctx, *payload.Ticket.TechnicianID)
	n.enqueue(ctx, event, notification.TemplateTicketAssigned, to, n.ticketData(event.TicketID, payload.Ticket))
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return n.unexpectedPayload(event)
	}
	if event.Actor.UserID == payload.Ticket.RequesterID {
		return nil
	}
	data := n.ticketData(event.TicketID, payload.Ticket)
	data["OldStatus"] = string(payload.OldStatus)
	data["NewStatus"] = string(payload.NewStatus)
	n.enqueue(ctx, event, notification.TemplateStatusChanged, n.emailsOf(ctx, payload.Ticket.RequesterID), data)
	return nil
}

// handleCommentAdded mails the other side of the conversation. Internal
// notes never leave the support team.
func (n *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CommentAddedPayload)
	if !ok {
		return n.unexpectedPayload(event)
	}
	if payload.IsInternal {
		return nil
	}

	var recipient string
	switch {
	case payload.AuthorID != payload.Ticket.RequesterID:
		recipient = payload.Ticket.RequesterID
	case payload.Ticket.TechnicianID != nil:
		recipient = *payload.Ticket.TechnicianID
	default:
		return nil
	}

	data := n.ticketData(event.TicketID, payload.Ticket)
	data["AuthorName"] = payload.AuthorName
	data["Preview"] = payload.BodyPreview
	n.enqueue(ctx, event, notification.TemplateCommentAdded, n.emailsOf(ctx, recipient), data)
	return nil
}

func (n *NotificationService) handlePasswordReset(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordResetRequestedPayload)
	if !ok {
		return n.unexpectedPayload(event)
	}
	data := map[string]string{
		"Name":      payload.Name,
		"ResetURL":  fmt.Sprintf("%s/reset-password?token=%s", n.baseURL, payload.Token),
		"ExpiresAt": payload.ExpiresAt.Format(time.RFC1123),
	}
	n.enqueue(ctx, event, notification.TemplatePasswordReset, []string{payload.Email}, data)
	return nil
}

func (n *NotificationService) ticketData(ticketID string, ref events.TicketRefPayload) map[string]string {
	return map[string]string{
		"Number": ref.Number,
		"Title":  ref.Title,
		"URL":    fmt.Sprintf("%s/tickets/%s", n.baseURL, ticketID),
	}
}

func (n *NotificationService) emailsOf(ctx context.Context, userID string) []string {
	user, err := n.users.GetByID(ctx, userID)
	if err != nil {
		n.logger.Warn("load notification recipient", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return []string{user.Email}
}

// enqueue never fails the caller; a lost email is logged.
func (n *NotificationService) enqueue(ctx context.Context, event events.Event, tmpl notification.Template, to []string, data map[string]string) {
	if len(to) == 0 || n.queue == nil {
		n.logger.Debug("notification skipped", zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
		return
	}
	job := notification.Job{Template: tmpl, To: to, Data: data}
	if err := n.queue.Enqueue(ctx, job); err != nil {
		n.logger.Warn("enqueue notification",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func (n *NotificationService) unexpectedPayload(event events.Event) error {
	return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
}
