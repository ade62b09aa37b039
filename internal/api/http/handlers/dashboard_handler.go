package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// StatsProvider computes dashboard counters.
type StatsProvider interface {
	Stats(ctx context.Context, actor *domain.User) (*service.DashboardStats, error)
}

// DashboardHandler serves /dashboard and the admin metrics view.
type DashboardHandler struct {
	stats   StatsProvider
	metrics *observability.Metrics
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(stats StatsProvider, metrics *observability.Metrics) *DashboardHandler {
	return &DashboardHandler{stats: stats, metrics: metrics}
}

// Stats GET /dashboard/stats.
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	stats, err := h.stats.Stats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.DashboardResponse{
		Total:    stats.Total,
		ByStatus: stats.ByStatus,
		Overdue:  stats.Overdue,
	})
}

// Metrics GET /admin/metrics.
func (h *DashboardHandler) Metrics(c *fiber.Ctx) error {
	return data(c, http.StatusOK, h.metrics.Snapshot())
}
