package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// AreaDirectory lists areas and their technicians.
type AreaDirectory interface {
	List(ctx context.Context) ([]domain.Area, error)
	Create(ctx context.Context, actor *domain.User, name, code string) (*domain.Area, error)
	ListTechnicians(ctx context.Context, actor *domain.User, areaID string) ([]domain.User, error)
}

// AreasHandler serves /areas and /admin/areas.
type AreasHandler struct {
	areas AreaDirectory
}

// NewAreasHandler constructs handler.
func NewAreasHandler(areas AreaDirectory) *AreasHandler {
	return &AreasHandler{areas: areas}
}

// List GET /areas.
func (h *AreasHandler) List(c *fiber.Ctx) error {
	areas, err := h.areas.List(c.UserContext())
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewAreaList(areas))
}

// Create POST /admin/areas.
func (h *AreasHandler) Create(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateAreaRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	area, err := h.areas.Create(c.UserContext(), actor, req.Name, req.Code)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewAreaResponse(area))
}

// ListTechnicians GET /areas/:id/technicians.
func (h *AreasHandler) ListTechnicians(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	users, err := h.areas.ListTechnicians(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserList(users))
}
