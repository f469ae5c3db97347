package postgres

import (
	"context"
	"database/sql"

	"fabtrack/internal/core/services"
)

type execer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// GetExecutor returns the ambient transaction when services.TxManager put
// one on the context, otherwise the shared pool.
func GetExecutor(ctx context.Context, db *sql.DB) execer {
	if tx, ok := services.TxFromContext(ctx); ok {
		return tx
	}
	return db
}
