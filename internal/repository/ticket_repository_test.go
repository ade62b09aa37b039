package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/access"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func strPtr(s string) *string { return &s }

// anyArgs matches a statement with n bound arguments of any value.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestScopeClause(t *testing.T) {
	tests := []struct {
		name     string
		scope    access.Scope
		wantSQL  string
		wantArgs []any
	}{
		{name: "unrestricted", scope: access.Scope{Unrestricted: true}, wantSQL: "TRUE", wantArgs: []any{"x"}},
		{name: "empty", scope: access.Scope{}, wantSQL: "FALSE", wantArgs: []any{"x"}},
		{name: "area", scope: access.Scope{AreaID: strPtr("A1")}, wantSQL: "(area_id=$2)", wantArgs: []any{"x", "A1"}},
		{
			name:     "own tickets",
			scope:    access.Scope{RequesterID: strPtr("u"), TechnicianID: strPtr("u")},
			wantSQL:  "(requester_id=$2 OR technician_id=$3)",
			wantArgs: []any{"x", "u", "u"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := scopeClause(tt.scope, []any{"x"})
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestNextTicketCounter(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`UPDATE areas SET ticket_counter = ticket_counter \+ 1`).
		WithArgs("area-1").
		WillReturnRows(pgxmock.NewRows([]string{"code", "ticket_counter"}).AddRow("TI", 8))

	code, counter, err := NewAreaRepository(mock).NextTicketCounter(context.Background(), "area-1")
	require.NoError(t, err)
	assert.Equal(t, "TI", code)
	assert.Equal(t, 8, counter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateNumberedAssignsNumberInsideTransaction(t *testing.T) {
	mock := newMock(t)
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE areas SET ticket_counter`).
		WithArgs("area-1").
		WillReturnRows(pgxmock.NewRows([]string{"code", "ticket_counter"}).AddRow("TI", 7))
	mock.ExpectQuery(`INSERT INTO tickets`).
		WithArgs(anyArgs(14)...).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("ticket-1"))
	mock.ExpectQuery(`INSERT INTO attachments`).
		WithArgs("ticket-1", "user-1", "jam.png", "https://files/jam.png", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("att-1", now))
	mock.ExpectCommit()

	ticket := &domain.Ticket{
		Title:       "Printer jam",
		Priority:    domain.TicketPriorityMedium,
		Status:      domain.TicketStatusOpen,
		AreaID:      "area-1",
		RequesterID: "user-1",
		CreatedAt:   now,
		Attachments: []domain.Attachment{{FileName: "jam.png", URL: "https://files/jam.png"}},
	}
	require.NoError(t, NewTicketRepository(mock).CreateNumbered(context.Background(), ticket))

	assert.Equal(t, "TI-1007", ticket.Number)
	assert.Equal(t, "ticket-1", ticket.ID)
	require.Len(t, ticket.Attachments, 1)
	assert.Equal(t, "ticket-1", ticket.Attachments[0].TicketID)
	assert.Equal(t, "user-1", ticket.Attachments[0].UploaderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateNumberedRollsBackOnInsertFailure(t *testing.T) {
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE areas SET ticket_counter`).
		WithArgs("area-1").
		WillReturnRows(pgxmock.NewRows([]string{"code", "ticket_counter"}).AddRow("TI", 3))
	mock.ExpectQuery(`INSERT INTO tickets`).
		WithArgs(anyArgs(14)...).
		WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	ticket := &domain.Ticket{AreaID: "area-1", RequesterID: "user-1", CreatedAt: time.Now()}
	err := NewTicketRepository(mock).CreateNumbered(context.Background(), ticket)
	assert.EqualError(t, err, "insert failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpdateStatusResolvedRestampsInScope(t *testing.T) {
	mock := newMock(t)
	ids := []string{"t1", "t2"}

	mock.ExpectExec(`(?s)UPDATE tickets SET status=\$1.*CASE WHEN \$2 THEN NOW\(\).*WHERE id = ANY\(\$3\) AND \(area_id=\$4\)$`).
		WithArgs(domain.TicketStatusResolved, true, ids, "A1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := NewTicketRepository(mock).BulkUpdateStatus(context.Background(), ids, domain.TicketStatusResolved, access.Scope{AreaID: strPtr("A1")})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpdateStatusAssignedSkipsUnassignedRows(t *testing.T) {
	mock := newMock(t)
	ids := []string{"t1", "t2", "t3"}

	mock.ExpectExec(`(?s)WHERE id = ANY\(\$3\) AND TRUE AND technician_id IS NOT NULL`).
		WithArgs(domain.TicketStatusAssigned, false, ids).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	n, err := NewTicketRepository(mock).BulkUpdateStatus(context.Background(), ids, domain.TicketStatusAssigned, access.Scope{Unrestricted: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkAssignUpdatesEachRowInOneTransaction(t *testing.T) {
	mock := newMock(t)
	scope := access.Scope{AreaID: strPtr("A1")}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tickets SET technician_id=\$1`).
		WithArgs("tech-1", domain.TicketStatusAssigned, false, "t1", "A1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE tickets SET technician_id=\$1`).
		WithArgs("tech-1", domain.TicketStatusAssigned, false, "t2", "A1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectCommit()

	n, err := NewTicketRepository(mock).BulkAssign(context.Background(), []string{"t1", "t2"},
		BulkAssignment{TechnicianID: "tech-1", Status: domain.TicketStatusAssigned}, scope)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkAssignRollsBackOnError(t *testing.T) {
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tickets SET technician_id`).
		WithArgs("tech-1", domain.TicketStatusAssigned, false, "t1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE tickets SET technician_id`).
		WithArgs("tech-1", domain.TicketStatusAssigned, false, "t2").
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	n, err := NewTicketRepository(mock).BulkAssign(context.Background(), []string{"t1", "t2"},
		BulkAssignment{TechnicianID: "tech-1", Status: domain.TicketStatusAssigned}, access.Scope{Unrestricted: true})
	assert.Error(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkDeleteCountsOnlyScopedRows(t *testing.T) {
	mock := newMock(t)
	ids := []string{"in-area", "other-area"}

	mock.ExpectExec(`DELETE FROM tickets WHERE id = ANY\(\$1\) AND \(area_id=\$2\)`).
		WithArgs(ids, "A1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	n, err := NewTicketRepository(mock).BulkDelete(context.Background(), ids, access.Scope{AreaID: strPtr("A1")})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusCounts(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM tickets WHERE \(requester_id=\$1 OR technician_id=\$2\) GROUP BY status`).
		WithArgs("u", "u").
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow(domain.TicketStatusOpen, 3).
			AddRow(domain.TicketStatusResolved, 1))

	counts, err := NewTicketRepository(mock).StatusCounts(context.Background(),
		access.Scope{RequesterID: strPtr("u"), TechnicianID: strPtr("u")})
	require.NoError(t, err)
	assert.Equal(t, 3, counts[domain.TicketStatusOpen])
	assert.Equal(t, 1, counts[domain.TicketStatusResolved])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeResetStoresPasswordInsideTransaction(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE password_reset_tokens SET used_at=NOW\(\)`).
		WithArgs("tok-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE users SET password_hash=\$1`).
		WithArgs("new-hash", "user-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := NewPasswordResetRepository(mock).Consume(context.Background(), "tok-1", "user-1", "new-hash")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeResetRejectsUsedToken(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE password_reset_tokens SET used_at=NOW\(\)`).
		WithArgs("tok-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := NewPasswordResetRepository(mock).Consume(context.Background(), "tok-1", "user-1", "new-hash")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeResetRollsBackWhenPasswordWriteFails(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE password_reset_tokens SET used_at=NOW\(\)`).
		WithArgs("tok-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE users SET password_hash=\$1`).
		WithArgs("new-hash", "user-1").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := NewPasswordResetRepository(mock).Consume(context.Background(), "tok-1", "user-1", "new-hash")
	assert.EqualError(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}
