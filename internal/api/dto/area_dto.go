package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateAreaRequest payload.
type CreateAreaRequest struct {
	Name string `json:"name" validate:"required,max=120"`
	Code string `json:"code" validate:"required,alphanum,max=16"`
}

// AreaResponse representation.
type AreaResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewAreaResponse maps an area.
func NewAreaResponse(a *domain.Area) AreaResponse {
	return AreaResponse{ID: a.ID, Name: a.Name, Code: a.Code, CreatedAt: a.CreatedAt}
}

// NewAreaList maps areas.
func NewAreaList(areas []domain.Area) []AreaResponse {
	items := make([]AreaResponse, 0, len(areas))
	for i := range areas {
		items = append(items, NewAreaResponse(&areas[i]))
	}
	return items
}
