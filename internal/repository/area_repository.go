package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// AreaRepository persists areas and mints their ticket numbers.
type AreaRepository interface {
	Create(ctx context.Context, area *domain.Area) error
	GetByID(ctx context.Context, id string) (*domain.Area, error)
	List(ctx context.Context) ([]domain.Area, error)
	NextTicketCounter(ctx context.Context, areaID string) (string, int, error)
}

type areaRepository struct {
	db DB
}

// NewAreaRepository constructs repository.
func NewAreaRepository(db DB) AreaRepository {
	return &areaRepository{db: db}
}

func (r *areaRepository) Create(ctx context.Context, area *domain.Area) error {
	const query = `
        INSERT INTO areas (name, code)
        VALUES ($1,$2)
        RETURNING id, ticket_counter, created_at, updated_at`
	return r.db.QueryRow(ctx, query, area.Name, area.Code).
		Scan(&area.ID, &area.TicketCounter, &area.CreatedAt, &area.UpdatedAt)
}

func (r *areaRepository) GetByID(ctx context.Context, id string) (*domain.Area, error) {
	const query = `
        SELECT id, name, code, ticket_counter, created_at, updated_at
        FROM areas WHERE id=$1`
	var area domain.Area
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&area.ID,
		&area.Name,
		&area.Code,
		&area.TicketCounter,
		&area.CreatedAt,
		&area.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &area, nil
}

func (r *areaRepository) List(ctx context.Context) ([]domain.Area, error) {
	const query = `
        SELECT id, name, code, ticket_counter, created_at, updated_at
        FROM areas ORDER BY name ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Area
	for rows.Next() {
		var area domain.Area
		if err := rows.Scan(
			&area.ID,
			&area.Name,
			&area.Code,
			&area.TicketCounter,
			&area.CreatedAt,
			&area.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, area)
	}
	return result, rows.Err()
}

// NextTicketCounter increments the area counter and returns the area code
// together with the new value. The row lock taken by the UPDATE serialises
// concurrent callers so every caller observes a distinct value.
func (r *areaRepository) NextTicketCounter(ctx context.Context, areaID string) (string, int, error) {
	return nextTicketCounter(ctx, r.db, areaID)
}

const nextTicketCounterQuery = `
        UPDATE areas SET ticket_counter = ticket_counter + 1, updated_at = NOW()
        WHERE id=$1
        RETURNING code, ticket_counter`

func nextTicketCounter(ctx context.Context, q Querier, areaID string) (string, int, error) {
	var (
		code    string
		counter int
	)
	if err := q.QueryRow(ctx, nextTicketCounterQuery, areaID).Scan(&code, &counter); err != nil {
		return "", 0, err
	}
	return code, counter, nil
}

