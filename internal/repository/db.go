package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/helpdesk-service/internal/access"
)

// Querier is the statement surface shared by pools and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is satisfied by *pgxpool.Pool.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// withTx runs fn in a transaction, committing on success and rolling back on error.
func withTx(ctx context.Context, db DB, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// scopeClause renders an access scope as a SQL predicate over the tickets
// table, appending its parameters to args.
func scopeClause(scope access.Scope, args []any) (string, []any) {
	if scope.Unrestricted {
		return "TRUE", args
	}
	var parts []string
	if scope.AreaID != nil {
		args = append(args, *scope.AreaID)
		parts = append(parts, fmt.Sprintf("area_id=$%d", len(args)))
	}
	if scope.RequesterID != nil {
		args = append(args, *scope.RequesterID)
		parts = append(parts, fmt.Sprintf("requester_id=$%d", len(args)))
	}
	if scope.TechnicianID != nil {
		args = append(args, *scope.TechnicianID)
		parts = append(parts, fmt.Sprintf("technician_id=$%d", len(args)))
	}
	if len(parts) == 0 {
		return "FALSE", args
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

func clampPage(limit, offset, defaultLimit int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
