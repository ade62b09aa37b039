package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/access"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketFilter captures list parameters. Scope is always applied.
type TicketFilter struct {
	Scope        access.Scope
	AreaID       *string
	TechnicianID *string
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	SearchTerm   *string
	Limit        int
	Offset       int
}

// BulkAssignment is the per-row update applied by BulkAssign.
type BulkAssignment struct {
	TechnicianID string
	Status       domain.TicketStatus
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	CreateNumbered(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	BulkUpdateStatus(ctx context.Context, ids []string, status domain.TicketStatus, scope access.Scope) (int64, error)
	BulkAssign(ctx context.Context, ids []string, assignment BulkAssignment, scope access.Scope) (int64, error)
	BulkDelete(ctx context.Context, ids []string, scope access.Scope) (int64, error)
	StatusCounts(ctx context.Context, scope access.Scope) (map[domain.TicketStatus]int, error)
	OverdueCount(ctx context.Context, scope access.Scope, now time.Time) (int, error)
}

type ticketRepository struct {
	db DB
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DB) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, number, title, description, location, equipment, model, asset_tag,
               priority, status, area_id, requester_id, technician_id,
               created_at, updated_at, resolved_at, sla_deadline, satisfaction_rating`

// CreateNumbered mints the area's next ticket number and inserts the ticket
// with its attachments in one transaction. A failed insert rolls the counter
// back, so numbers are never burned.
func (r *ticketRepository) CreateNumbered(ctx context.Context, ticket *domain.Ticket) error {
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		code, counter, err := nextTicketCounter(ctx, tx, ticket.AreaID)
		if err != nil {
			return err
		}
		ticket.Number = domain.FormatTicketNumber(code, counter)

		const query = `
        INSERT INTO tickets (number, title, description, location, equipment, model, asset_tag,
            priority, status, area_id, requester_id, technician_id, created_at, updated_at, sla_deadline)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$13,$14)
        RETURNING id`
		if err := tx.QueryRow(ctx, query,
			ticket.Number,
			ticket.Title,
			ticket.Description,
			ticket.Location,
			ticket.Equipment,
			ticket.Model,
			ticket.AssetTag,
			ticket.Priority,
			ticket.Status,
			ticket.AreaID,
			ticket.RequesterID,
			ticket.TechnicianID,
			ticket.CreatedAt,
			ticket.SLADeadline,
		).Scan(&ticket.ID); err != nil {
			return err
		}
		ticket.UpdatedAt = ticket.CreatedAt

		for i := range ticket.Attachments {
			att := &ticket.Attachments[i]
			att.TicketID = ticket.ID
			if att.UploaderID == "" {
				att.UploaderID = ticket.RequesterID
			}
			if err := insertAttachment(ctx, tx, att); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, priority=$3, status=$4, technician_id=$5,
            resolved_at=$6, satisfaction_rating=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.TechnicianID,
		ticket.ResolvedAt,
		ticket.SatisfactionRating,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	args := []any{}
	scopeSQL, args := scopeClause(filter.Scope, args)
	clauses := []string{scopeSQL}

	if filter.AreaID != nil {
		args = append(args, *filter.AreaID)
		clauses = append(clauses, fmt.Sprintf("area_id=$%d", len(args)))
	}
	if filter.TechnicianID != nil {
		args = append(args, *filter.TechnicianID)
		clauses = append(clauses, fmt.Sprintf("technician_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(number) LIKE %s OR LOWER(description) LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	limit, offset := clampPage(filter.Limit, filter.Offset, 20)
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

// BulkUpdateStatus moves every in-scope ticket in ids to status with a single
// statement. RESOLVED always restamps resolved_at. ASSIGNED only touches rows
// that already have a technician.
func (r *ticketRepository) BulkUpdateStatus(ctx context.Context, ids []string, status domain.TicketStatus, scope access.Scope) (int64, error) {
	args := []any{status, status == domain.TicketStatusResolved, ids}
	scopeSQL, args := scopeClause(scope, args)
	clauses := []string{"id = ANY($3)", scopeSQL}
	if status == domain.TicketStatusAssigned {
		clauses = append(clauses, "technician_id IS NOT NULL")
	}

	query := `UPDATE tickets SET status=$1,
            resolved_at = CASE WHEN $2 THEN NOW() ELSE resolved_at END,
            updated_at = NOW()
        WHERE ` + strings.Join(clauses, " AND ")
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// BulkAssign sets technician and status row by row inside one transaction.
func (r *ticketRepository) BulkAssign(ctx context.Context, ids []string, assignment BulkAssignment, scope access.Scope) (int64, error) {
	var updated int64
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		for _, id := range ids {
			args := []any{assignment.TechnicianID, assignment.Status, assignment.Status == domain.TicketStatusResolved, id}
			scopeSQL, args := scopeClause(scope, args)
			query := `UPDATE tickets SET technician_id=$1, status=$2,
                resolved_at = CASE WHEN $3 THEN NOW() ELSE resolved_at END,
                updated_at = NOW()
            WHERE id=$4 AND ` + scopeSQL
			cmd, err := tx.Exec(ctx, query, args...)
			if err != nil {
				return err
			}
			updated += cmd.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func (r *ticketRepository) BulkDelete(ctx context.Context, ids []string, scope access.Scope) (int64, error) {
	args := []any{ids}
	scopeSQL, args := scopeClause(scope, args)
	query := `DELETE FROM tickets WHERE id = ANY($1) AND ` + scopeSQL
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ticketRepository) StatusCounts(ctx context.Context, scope access.Scope) (map[domain.TicketStatus]int, error) {
	scopeSQL, args := scopeClause(scope, nil)
	query := `SELECT status, COUNT(*) FROM tickets WHERE ` + scopeSQL + ` GROUP BY status`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TicketStatus]int)
	for rows.Next() {
		var (
			status domain.TicketStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *ticketRepository) OverdueCount(ctx context.Context, scope access.Scope, now time.Time) (int, error) {
	args := []any{now}
	scopeSQL, args := scopeClause(scope, args)
	query := `SELECT COUNT(*) FROM tickets
        WHERE sla_deadline < $1 AND status NOT IN ('RESOLVED','CLOSED','CANCELLED') AND ` + scopeSQL
	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.Title,
		&ticket.Description,
		&ticket.Location,
		&ticket.Equipment,
		&ticket.Model,
		&ticket.AssetTag,
		&ticket.Priority,
		&ticket.Status,
		&ticket.AreaID,
		&ticket.RequesterID,
		&ticket.TechnicianID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
		&ticket.SLADeadline,
		&ticket.SatisfactionRating,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
