package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// UserAdministration is the SUPER_ADMIN account surface.
type UserAdministration interface {
	List(ctx context.Context, actor *domain.User, filter service.UserListFilter) ([]domain.User, error)
	Create(ctx context.Context, actor *domain.User, input service.UserCreateInput) (*domain.User, error)
	Update(ctx context.Context, actor *domain.User, id string, input service.UserUpdateInput) (*domain.User, error)
	Delete(ctx context.Context, actor *domain.User, id string) error
}

// AdminUsersHandler serves /admin/users.
type AdminUsersHandler struct {
	users UserAdministration
}

// NewAdminUsersHandler constructs handler.
func NewAdminUsersHandler(users UserAdministration) *AdminUsersHandler {
	return &AdminUsersHandler{users: users}
}

// List GET /admin/users.
func (h *AdminUsersHandler) List(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	limit, offset := page(c)
	users, err := h.users.List(c.UserContext(), actor, service.UserListFilter{
		Role:   optionalQuery(c, "role"),
		AreaID: optionalQuery(c, "areaId"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserList(users))
}

// Create POST /admin/users.
func (h *AdminUsersHandler) Create(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.users.Create(c.UserContext(), actor, service.UserCreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		AreaID:   req.AreaID,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewUserResponse(user))
}

// Update PATCH /admin/users/:id.
func (h *AdminUsersHandler) Update(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	areaID, unset, err := req.Area()
	if err != nil {
		return apperrors.NewValidationError("validation failed", map[string]any{"areaId": "must be a string or null"})
	}
	user, err := h.users.Update(c.UserContext(), actor, c.Params("id"), service.UserUpdateInput{
		Name:      req.Name,
		Role:      req.Role,
		AreaID:    areaID,
		ClearArea: unset,
	})
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserResponse(user))
}

// Delete DELETE /admin/users/:id.
func (h *AdminUsersHandler) Delete(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
