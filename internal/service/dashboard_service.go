package service

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/access"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// DashboardStats summarises the tickets visible to a caller.
type DashboardStats struct {
	Total    int
	ByStatus map[domain.TicketStatus]int
	Overdue  int
}

// DashboardService computes counters over the caller's ticket scope.
type DashboardService struct {
	tickets repository.TicketRepository
	now     func() time.Time
}

// NewDashboardService builds the service.
func NewDashboardService(tickets repository.TicketRepository) *DashboardService {
	return &DashboardService{tickets: tickets, now: time.Now}
}

// Stats returns per-status counts and the number of open tickets past their SLA.
func (s *DashboardService) Stats(ctx context.Context, actor *domain.User) (*DashboardStats, error) {
	scope, err := access.TicketScope(access.CallerFromUser(actor))
	if err != nil {
		return nil, accessError(err)
	}

	counts, err := s.tickets.StatusCounts(ctx, scope)
	if err != nil {
		return nil, err
	}
	overdue, err := s.tickets.OverdueCount(ctx, scope, s.now())
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{ByStatus: make(map[domain.TicketStatus]int, len(lifecycle.Statuses)), Overdue: overdue}
	for _, status := range lifecycle.Statuses {
		stats.ByStatus[status] = counts[status]
		stats.Total += counts[status]
	}
	return stats, nil
}
