package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"
)

const schemaVersionKey = "schema_version"

// Conn is the part of the store's database handle the migrations need.
type Conn interface {
	Query(ctx context.Context, fn func(rows *sql.Rows) error, query string, args ...any) error
	ExecScript(ctx context.Context, queries ...string) error
}

// Report describes what a Run changed. A Run against an up to date database
// returns an empty report.
type Report struct {
	CreatedTables   []string
	AddedColumns    []string
	PreviousVersion int
	Version         int
}

// KeyColumnError reports a table written by an older version that lacks a
// key column. Such a table cannot be upgraded in place.
type KeyColumnError struct {
	Table  string
	Column string
}

func (e *KeyColumnError) Error() string {
	return fmt.Sprintf("table %s has no key column %s and cannot be upgraded in place", e.Table, e.Column)
}

// Changed reports whether the run touched the schema structure.
func (r Report) Changed() bool {
	return len(r.CreatedTables) > 0 || len(r.AddedColumns) > 0
}

// Run brings the database to the current schema. It only ever creates tables,
// adds columns and creates indexes; nothing is dropped or rewritten, so rows
// written by older versions survive. Run is idempotent.
func Run(ctx context.Context, conn Conn) (Report, error) {
	log := zap.S().Named("migrations")
	report := Report{Version: SchemaVersion}

	before, err := existingTables(ctx, conn)
	if err != nil {
		return report, err
	}

	creates := make([]string, 0, len(tables))
	for _, t := range tables {
		creates = append(creates, t.createStatement())
		if _, ok := before[t.name]; !ok {
			report.CreatedTables = append(report.CreatedTables, t.name)
		}
	}
	if err := conn.ExecScript(ctx, creates...); err != nil {
		return report, fmt.Errorf("create tables: %w", err)
	}

	var alters []string
	for _, t := range tables {
		present, err := tableColumns(ctx, conn, t.name)
		if err != nil {
			return report, err
		}
		for _, c := range t.columns {
			if _, ok := present[c.name]; ok {
				continue
			}
			if c.key {
				return report, &KeyColumnError{Table: t.name, Column: c.name}
			}
			alters = append(alters, t.addColumnStatement(c))
			report.AddedColumns = append(report.AddedColumns, t.name+"."+c.name)
		}
	}
	if len(alters) > 0 {
		if err := conn.ExecScript(ctx, alters...); err != nil {
			return report, fmt.Errorf("add columns: %w", err)
		}
	}

	// indexes go last: an older table may have just received the indexed column.
	idx := make([]string, 0, len(indexes))
	for _, i := range indexes {
		idx = append(idx, i.createStatement())
	}
	if err := conn.ExecScript(ctx, idx...); err != nil {
		return report, fmt.Errorf("create indexes: %w", err)
	}

	report.PreviousVersion, err = CurrentVersion(ctx, conn)
	if err != nil {
		return report, err
	}
	if report.PreviousVersion != SchemaVersion {
		upsert := fmt.Sprintf(`INSERT INTO metadata (key, value, updated_at)
VALUES ('%s', '%d', strftime('%%Y-%%m-%%dT%%H:%%M:%%fZ', 'now'))
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, schemaVersionKey, SchemaVersion)
		if err := conn.ExecScript(ctx, upsert); err != nil {
			return report, fmt.Errorf("record schema version: %w", err)
		}
	}

	if report.Changed() || report.PreviousVersion != SchemaVersion {
		log.Infow("schema updated",
			"created_tables", report.CreatedTables,
			"added_columns", report.AddedColumns,
			"from_version", report.PreviousVersion,
			"to_version", SchemaVersion)
	} else {
		log.Debugw("schema up to date", "version", SchemaVersion)
	}

	return report, nil
}

// CurrentVersion returns the recorded schema version, or 0 for a database
// that was never migrated.
func CurrentVersion(ctx context.Context, conn Conn) (int, error) {
	present, err := existingTables(ctx, conn)
	if err != nil {
		return 0, err
	}
	if _, ok := present["metadata"]; !ok {
		return 0, nil
	}

	var raw string
	err = conn.Query(ctx, func(rows *sql.Rows) error {
		if rows.Next() {
			return rows.Scan(&raw)
		}
		return nil
	}, "SELECT value FROM metadata WHERE key = ?", schemaVersionKey)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid schema version %q: %w", raw, err)
	}
	return v, nil
}

// MissingColumns lists, per table, the target columns the database lacks.
// A table that does not exist at all is reported with every column.
func MissingColumns(ctx context.Context, conn Conn) (map[string][]string, error) {
	present, err := existingTables(ctx, conn)
	if err != nil {
		return nil, err
	}

	missing := make(map[string][]string)
	for _, t := range tables {
		var cols map[string]struct{}
		if _, ok := present[t.name]; ok {
			cols, err = tableColumns(ctx, conn, t.name)
			if err != nil {
				return nil, err
			}
		}
		for _, c := range t.columns {
			if _, ok := cols[c.name]; !ok {
				missing[t.name] = append(missing[t.name], c.name)
			}
		}
	}
	return missing, nil
}

func existingTables(ctx context.Context, conn Conn) (map[string]struct{}, error) {
	names := make(map[string]struct{})
	err := conn.Query(ctx, func(rows *sql.Rows) error {
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			names[name] = struct{}{}
		}
		return nil
	}, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}

func tableColumns(ctx context.Context, conn Conn, name string) (map[string]struct{}, error) {
	cols := make(map[string]struct{})
	err := conn.Query(ctx, func(rows *sql.Rows) error {
		for rows.Next() {
			var (
				cid     int
				colName string
				typeStr string
				notNull int
				dflt    any
				pk      int
			)
			if err := rows.Scan(&cid, &colName, &typeStr, &notNull, &dflt, &pk); err != nil {
				return err
			}
			cols[colName] = struct{}{}
		}
		return nil
	}, fmt.Sprintf("PRAGMA table_info(%s)", quote(name)))
	if err != nil {
		return nil, fmt.Errorf("inspect table %s: %w", name, err)
	}
	if len(cols) == 0 {
		return nil, errors.New("table " + name + " has no columns")
	}
	return cols, nil
}

// SortedTables returns the keys of a MissingColumns result in a stable order.
func SortedTables(missing map[string][]string) []string {
	keys := make([]string, 0, len(missing))
	for k := range missing {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
