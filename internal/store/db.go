package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	srvErrors "github.com/kubev2v/inventory-scan-agent/pkg/errors"
	"github.com/kubev2v/inventory-scan-agent/pkg/scheduler"
)

const defaultBusyTimeout = 5 * time.Second

// Statement is one parameterized SQL statement of a batch.
type Statement struct {
	Query string
	Args  []any
}

// ExecResult is the outcome of a write statement.
type ExecResult struct {
	RowsAffected int64
	LastInsertID int64
}

// RowsFunc consumes the rows selected by a read statement. It runs inside the
// statement's queue turn; rows are closed by the caller of the RowsFunc.
type RowsFunc = func(rows *sql.Rows) error

type dbOptions struct {
	busyTimeout time.Duration
	synchronous string
}

type DBOption func(*dbOptions)

func WithBusyTimeout(d time.Duration) DBOption {
	return func(o *dbOptions) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

func WithSynchronous(mode string) DBOption {
	return func(o *dbOptions) {
		if mode != "" {
			o.synchronous = mode
		}
	}
}

// DB is the database handle. It owns the single SQLite connection and a
// serial scheduler; every statement and every batch goes through the
// scheduler, so the engine never sees two of them in flight.
//
// The connection is opened lazily by the first operation. conn and shut are
// only read or written from the scheduler's worker.
type DB struct {
	path   string
	opts   dbOptions
	sched  *scheduler.Scheduler
	conn   *sql.DB
	shut   bool
	opens  atomic.Int32
	closed atomic.Bool
}

func NewDB(path string, opts ...DBOption) (*DB, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}
	o := dbOptions{busyTimeout: defaultBusyTimeout, synchronous: "NORMAL"}
	for _, opt := range opts {
		opt(&o)
	}
	return &DB{
		path:  path,
		opts:  o,
		sched: scheduler.NewSerialScheduler(),
	}, nil
}

func (d *DB) Path() string {
	return d.path
}

// Opens returns how many times the underlying connection was successfully
// opened and configured.
func (d *DB) Opens() int {
	return int(d.opens.Load())
}

// Exec runs a write statement.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (ExecResult, error) {
	return submit(ctx, d, func(ctx context.Context, q QueryInterceptor) (ExecResult, error) {
		res, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return ExecResult{}, srvErrors.NewStatementError(query, err)
		}
		return toExecResult(res), nil
	})
}

// Query runs a read statement and hands the selected rows to fn.
func (d *DB) Query(ctx context.Context, fn RowsFunc, query string, args ...any) error {
	_, err := submit(ctx, d, func(ctx context.Context, q QueryInterceptor) (struct{}, error) {
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return struct{}{}, srvErrors.NewStatementError(query, err)
		}
		defer rows.Close()

		if err := fn(rows); err != nil {
			return struct{}{}, err
		}
		if err := rows.Err(); err != nil {
			return struct{}{}, srvErrors.NewStatementError(query, err)
		}
		return struct{}{}, nil
	})
	return err
}

// ExecBatch runs stmts in one transaction. Either every statement is applied
// or none is. An empty batch does not touch the database.
func (d *DB) ExecBatch(ctx context.Context, stmts []Statement) ([]ExecResult, error) {
	if len(stmts) == 0 {
		return nil, nil
	}
	return submitConn(ctx, d, func(ctx context.Context, conn *sql.DB) ([]ExecResult, error) {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return nil, srvErrors.NewBatchError(-1, len(stmts), err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		q := newQueryInterceptor(tx)
		results := make([]ExecResult, 0, len(stmts))
		for i, st := range stmts {
			res, err := q.ExecContext(ctx, st.Query, st.Args...)
			if err != nil {
				return nil, srvErrors.NewBatchError(i, len(stmts), srvErrors.NewStatementError(st.Query, err))
			}
			results = append(results, toExecResult(res))
		}

		if err := tx.Commit(); err != nil {
			return nil, srvErrors.NewBatchError(-1, len(stmts), err)
		}
		return results, nil
	})
}

// ExecScript runs plain statements without arguments as one batch.
func (d *DB) ExecScript(ctx context.Context, queries ...string) error {
	stmts := make([]Statement, 0, len(queries))
	for _, q := range queries {
		stmts = append(stmts, Statement{Query: q})
	}
	_, err := d.ExecBatch(ctx, stmts)
	return err
}

// Close waits for every queued operation, closes the connection and stops the
// scheduler. Operations submitted afterwards fail with ErrClosed, including
// those that passed the closed check while Close was running.
func (d *DB) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	_, err := queue(context.Background(), d, d.shutdown)
	d.sched.Close()
	return err
}

// shutdown runs on the worker. Work queued behind it sees shut and never
// reopens the connection.
func (d *DB) shutdown(context.Context) (struct{}, error) {
	d.shut = true
	if d.conn == nil {
		return struct{}{}, nil
	}
	err := d.conn.Close()
	d.conn = nil
	return struct{}{}, err
}

func submit[T any](ctx context.Context, d *DB, fn func(ctx context.Context, q QueryInterceptor) (T, error)) (T, error) {
	return submitConn(ctx, d, func(ctx context.Context, conn *sql.DB) (T, error) {
		return fn(ctx, newQueryInterceptor(conn))
	})
}

func submitConn[T any](ctx context.Context, d *DB, fn func(ctx context.Context, conn *sql.DB) (T, error)) (T, error) {
	var zero T
	if d.closed.Load() {
		return zero, srvErrors.ErrClosed
	}
	return queue(ctx, d, func(ctx context.Context) (T, error) {
		if d.shut {
			return zero, srvErrors.ErrClosed
		}
		conn, err := d.ensureOpen(ctx)
		if err != nil {
			return zero, err
		}
		return fn(ctx, conn)
	})
}

func queue[T any](ctx context.Context, d *DB, work func(ctx context.Context) (T, error)) (T, error) {
	v, err := scheduler.Submit(ctx, d.sched, work).Wait(ctx)
	if errors.Is(err, scheduler.ErrClosed) {
		var zero T
		return zero, srvErrors.ErrClosed
	}
	return v, err
}

// ensureOpen runs on the scheduler worker. A failed open leaves conn nil so
// the next operation tries again.
func (d *DB) ensureOpen(ctx context.Context) (*sql.DB, error) {
	if d.conn != nil {
		return d.conn, nil
	}

	conn, err := sql.Open("sqlite", d.path)
	if err != nil {
		return nil, srvErrors.NewOpenError(d.path, err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)
	conn.SetConnMaxIdleTime(0)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, srvErrors.NewOpenError(d.path, err)
	}

	for _, pragma := range d.pragmas() {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, srvErrors.NewOpenError(d.path, fmt.Errorf("apply pragma %q: %w", pragma, err))
		}
	}

	d.conn = conn
	d.opens.Add(1)
	zap.S().Named("store").Infow("database opened", "path", d.path, "busy_timeout", d.opts.busyTimeout)
	return conn, nil
}

func (d *DB) pragmas() []string {
	return []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", d.opts.busyTimeout.Milliseconds()),
		fmt.Sprintf("PRAGMA synchronous=%s", d.opts.synchronous),
		"PRAGMA foreign_keys=OFF",
	}
}

func toExecResult(res sql.Result) ExecResult {
	var out ExecResult
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	return out
}
