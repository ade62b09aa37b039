package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// UserService is the SUPER_ADMIN account management surface.
type UserService struct {
	users      repository.UserRepository
	areas      repository.AreaRepository
	bcryptCost int
	logger     *zap.Logger
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	AreaRepo   repository.AreaRepository
	BcryptCost int
	Logger     *zap.Logger
}

// UserCreateInput describes an account created by an administrator.
type UserCreateInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	AreaID   *string
}

// UserUpdateInput is a partial update. ClearArea removes the area association.
type UserUpdateInput struct {
	Name      *string
	Role      *string
	AreaID    *string
	ClearArea bool
}

// UserListFilter narrows the admin listing.
type UserListFilter struct {
	Role   *string
	AreaID *string
	Limit  int
	Offset int
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{
		users:      deps.UserRepo,
		areas:      deps.AreaRepo,
		bcryptCost: deps.BcryptCost,
		logger:     nopLogger(deps.Logger),
	}
}

func requireAdmin(actor *domain.User) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if actor.Role != domain.RoleSuperAdmin {
		return apperrors.NewForbidden("administrator role required")
	}
	return nil
}

// List returns users matching filter.
func (s *UserService) List(ctx context.Context, actor *domain.User, filter UserListFilter) ([]domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	repoFilter := repository.UserFilter{AreaID: filter.AreaID, Limit: filter.Limit, Offset: filter.Offset}
	if filter.Role != nil {
		role := domain.Role(strings.ToUpper(strings.TrimSpace(*filter.Role)))
		if !role.Valid() {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"field": "role"})
		}
		repoFilter.Role = &role
	}
	return s.users.List(ctx, repoFilter)
}

// Create provisions an account with any role.
func (s *UserService) Create(ctx context.Context, actor *domain.User, input UserCreateInput) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	role := domain.Role(strings.ToUpper(strings.TrimSpace(input.Role)))
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"field": "role"})
	}
	areaID, err := s.checkArea(ctx, role, input.AreaID)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        normalizeEmail(input.Email),
		PasswordHash: hash,
		Role:         role,
		AreaID:       areaID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"field": "email"})
		}
		return nil, err
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)),
		zap.String("actor_id", actor.ID))
	return user, nil
}

// Update changes name, role or area of an account.
func (s *UserService) Update(ctx context.Context, actor *domain.User, id string, input UserUpdateInput) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
		}
		user.Name = name
	}
	if input.Role != nil {
		role := domain.Role(strings.ToUpper(strings.TrimSpace(*input.Role)))
		if !role.Valid() {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"field": "role"})
		}
		if user.ID == actor.ID && role != domain.RoleSuperAdmin {
			return nil, apperrors.NewValidationError("cannot change your own role", map[string]any{"field": "role"})
		}
		user.Role = role
	}
	switch {
	case input.ClearArea:
		user.AreaID = nil
	case input.AreaID != nil:
		user.AreaID = input.AreaID
	}
	if user.AreaID, err = s.checkArea(ctx, user.Role, user.AreaID); err != nil {
		return nil, err
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

// Delete removes an account. Administrators cannot remove themselves.
func (s *UserService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if id == actor.ID {
		return apperrors.NewValidationError("cannot delete your own account", map[string]any{"field": "id"})
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return notFound(err, "user")
	}
	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("actor_id", actor.ID))
	return nil
}

// checkArea enforces that MANAGER and TECHNICIAN accounts point at an
// existing area. Other roles keep whatever area they were given.
func (s *UserService) checkArea(ctx context.Context, role domain.Role, areaID *string) (*string, error) {
	if areaID != nil && strings.TrimSpace(*areaID) == "" {
		areaID = nil
	}
	if areaID == nil {
		if role.RequiresArea() {
			return nil, apperrors.NewValidationError("area is required for this role", map[string]any{"field": "area_id"})
		}
		return nil, nil
	}
	if _, err := s.areas.GetByID(ctx, *areaID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("area", map[string]any{"area_id": *areaID})
		}
		return nil, err
	}
	return areaID, nil
}
