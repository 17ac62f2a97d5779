package store

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// QueryInterceptor is the query surface shared by *sql.DB and *sql.Tx.
type QueryInterceptor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type loggingInterceptor struct {
	next QueryInterceptor
	log  *zap.SugaredLogger
}

func newQueryInterceptor(next QueryInterceptor) QueryInterceptor {
	return &loggingInterceptor{next: next, log: zap.S().Named("store")}
}

func (i *loggingInterceptor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := i.next.ExecContext(ctx, query, args...)
	i.log.Debugw("exec", "query", query, "args", args, "duration", time.Since(start), "error", err)
	return res, err
}

func (i *loggingInterceptor) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := i.next.QueryContext(ctx, query, args...)
	i.log.Debugw("query", "query", query, "args", args, "duration", time.Since(start), "error", err)
	return rows, err
}

func (i *loggingInterceptor) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	i.log.Debugw("query row", "query", query, "args", args)
	return i.next.QueryRowContext(ctx, query, args...)
}
