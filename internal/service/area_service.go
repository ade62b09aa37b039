package service

import (
	"context"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AreaService exposes areas and their technician pools.
type AreaService struct {
	areas repository.AreaRepository
	users repository.UserRepository
}

// NewAreaService builds the service.
func NewAreaService(areas repository.AreaRepository, users repository.UserRepository) *AreaService {
	return &AreaService{areas: areas, users: users}
}

// List returns every area. Any signed-in user may pick an area when opening a ticket.
func (s *AreaService) List(ctx context.Context) ([]domain.Area, error) {
	return s.areas.List(ctx)
}

// Create adds an area with a fresh numbering sequence.
func (s *AreaService) Create(ctx context.Context, actor *domain.User, name, code string) (*domain.Area, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	area := &domain.Area{
		Name: strings.TrimSpace(name),
		Code: strings.ToUpper(strings.TrimSpace(code)),
	}
	if area.Name == "" || area.Code == "" {
		return nil, apperrors.NewValidationError("name and code are required", nil)
	}
	if err := s.areas.Create(ctx, area); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("area code already exists", map[string]any{"field": "code"})
		}
		return nil, err
	}
	return area, nil
}

// ListTechnicians returns the technicians of areaID. Managers only see their own area.
func (s *AreaService) ListTechnicians(ctx context.Context, actor *domain.User, areaID string) ([]domain.User, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	switch actor.Role {
	case domain.RoleSuperAdmin:
	case domain.RoleManager:
		if !actor.InArea(areaID) {
			return nil, apperrors.NewForbidden("managers may only list technicians of their own area")
		}
	default:
		return nil, apperrors.NewForbidden("access denied")
	}

	if _, err := s.areas.GetByID(ctx, areaID); err != nil {
		return nil, notFound(err, "area")
	}
	role := domain.RoleTechnician
	return s.users.List(ctx, repository.UserFilter{Role: &role, AreaID: &areaID, Limit: 200})
}
