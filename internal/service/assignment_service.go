package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/access"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AssignmentService handles bulk ticket operations for managers and admins.
type AssignmentService struct {
	tickets repository.TicketRepository
	users   repository.UserRepository
	logger  *zap.Logger
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Logger     *zap.Logger
}

// BulkUpdateInput selects tickets and the change to apply.
type BulkUpdateInput struct {
	TicketIDs    []string
	Status       *string
	TechnicianID *string
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tickets: deps.TicketRepo,
		users:   deps.UserRepo,
		logger:  nopLogger(deps.Logger),
	}
}

// BulkUpdate applies a status and/or technician to many tickets and returns
// how many rows changed. Tickets outside the caller's bulk scope are
// skipped silently. CLOSED is rejected for every caller before any write.
//
// With a technician the change is applied row by row in one transaction;
// a status-only change runs as a single set-based update. Both stamp
// resolvedAt whenever the target is RESOLVED, overwriting earlier values.
func (s *AssignmentService) BulkUpdate(ctx context.Context, actor *domain.User, input BulkUpdateInput) (int64, error) {
	ids := uniqueIDs(input.TicketIDs)
	if len(ids) == 0 {
		return 0, apperrors.NewValidationError("ticketIds must not be empty", map[string]any{"field": "ticketIds"})
	}
	if input.Status == nil && input.TechnicianID == nil {
		return 0, apperrors.NewValidationError("status or technicianId is required", nil)
	}

	var status domain.TicketStatus
	if input.Status != nil {
		parsed, err := lifecycle.ParseStatus(*input.Status)
		if err != nil {
			return 0, apperrors.NewValidationError("invalid status", map[string]any{"field": "status", "value": *input.Status})
		}
		if parsed == domain.TicketStatusClosed {
			return 0, apperrors.NewValidationError("tickets cannot be closed in bulk", map[string]any{"field": "status"})
		}
		status = parsed
	}

	caller := access.CallerFromUser(actor)
	scope, err := access.BulkScope(caller)
	if err != nil {
		return 0, accessError(err)
	}

	if input.TechnicianID == nil {
		updated, err := s.tickets.BulkUpdateStatus(ctx, ids, status, scope)
		if err != nil {
			return 0, err
		}
		s.logger.Info("bulk status update",
			zap.String("actor_id", caller.ID),
			zap.String("status", string(status)),
			zap.Int("requested", len(ids)),
			zap.Int64("updated", updated))
		return updated, nil
	}

	technician, err := s.users.GetByID(ctx, strings.TrimSpace(*input.TechnicianID))
	if err != nil {
		return 0, notFound(err, "technician")
	}
	if technician.Role != domain.RoleTechnician || technician.AreaID == nil || *technician.AreaID == "" {
		return 0, apperrors.NewNotFound("technician", map[string]any{"technician_id": technician.ID})
	}
	if caller.Role == domain.RoleManager && !technician.InArea(*caller.AreaID) {
		return 0, apperrors.NewNotFound("technician", map[string]any{"technician_id": technician.ID})
	}
	// The technician may only take tickets of their own area.
	techArea := *technician.AreaID
	scope = access.Scope{AreaID: &techArea}

	if status == "" {
		status = domain.TicketStatusAssigned
	}
	updated, err := s.tickets.BulkAssign(ctx, ids, repository.BulkAssignment{
		TechnicianID: technician.ID,
		Status:       status,
	}, scope)
	if err != nil {
		return 0, err
	}
	s.logger.Info("bulk assignment",
		zap.String("actor_id", caller.ID),
		zap.String("technician_id", technician.ID),
		zap.String("status", string(status)),
		zap.Int("requested", len(ids)),
		zap.Int64("updated", updated))
	return updated, nil
}

// BulkDelete removes the in-scope tickets among ids and returns the count.
func (s *AssignmentService) BulkDelete(ctx context.Context, actor *domain.User, ticketIDs []string) (int64, error) {
	ids := uniqueIDs(ticketIDs)
	if len(ids) == 0 {
		return 0, apperrors.NewValidationError("ticketIds must not be empty", map[string]any{"field": "ticketIds"})
	}
	caller := access.CallerFromUser(actor)
	scope, err := access.BulkScope(caller)
	if err != nil {
		return 0, accessError(err)
	}
	deleted, err := s.tickets.BulkDelete(ctx, ids, scope)
	if err != nil {
		return 0, err
	}
	s.logger.Info("bulk delete",
		zap.String("actor_id", caller.ID),
		zap.Int("requested", len(ids)),
		zap.Int64("deleted", deleted))
	return deleted, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
