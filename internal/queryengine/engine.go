// Package queryengine runs read-only SQL over a table loaded into a private
// in-memory SQLite database.
package queryengine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/kailas-cloud/tablens/internal/domain/result"
	"github.com/kailas-cloud/tablens/internal/domain/table"
)

// Engine executes queries. It keeps no state between runs.
type Engine struct {
	logger *zap.Logger
}

// New creates an Engine.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Run loads tbl under the relation name and executes query against it.
// kinds gives the physical type of every column; nil derives it from the cells.
func (e *Engine) Run(ctx context.Context, name string, tbl *table.Table, kinds []table.Kind, query string) (*result.Set, error) {
	if tbl == nil || tbl.NumColumns() == 0 {
		return nil, fmt.Errorf("table %s has no columns", name)
	}
	if kinds == nil {
		kinds = deriveKinds(tbl)
	}
	if len(kinds) != tbl.NumColumns() {
		return nil, fmt.Errorf("table %s: %d kinds for %d columns", name, len(kinds), tbl.NumColumns())
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}
	defer db.Close()
	// every :memory: connection is a separate database
	db.SetMaxOpenConns(1)

	if err := load(ctx, db, name, tbl, kinds); err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return nil, fmt.Errorf("enable query_only: %w", err)
	}

	e.logger.Debug("Running query", zap.String("table", name), zap.Int("rows", tbl.NumRows()), zap.String("query", query))
	return collect(ctx, db, query)
}

// QuoteIdent renders s as a double-quoted SQL identifier.
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func sqlType(k table.Kind) string {
	switch k {
	case table.KindInt, table.KindBool:
		return "INTEGER"
	case table.KindFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

func load(ctx context.Context, db *sql.DB, name string, tbl *table.Table, kinds []table.Kind) (err error) {
	defs := make([]string, len(tbl.Columns))
	marks := make([]string, len(tbl.Columns))
	for j, c := range tbl.Columns {
		defs[j] = QuoteIdent(c) + " " + sqlType(kinds[j])
		marks[j] = "?"
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(name), strings.Join(defs, ", "))
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", QuoteIdent(name), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("prepare load: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(tbl.Columns))
	for i, row := range tbl.Rows {
		for j := range args {
			if j < len(row) {
				args[j] = toSQL(row[j])
			} else {
				args[j] = nil
			}
		}
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("load row %d: %w", i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}
	return nil
}

func toSQL(c table.Cell) any {
	switch c.Kind() {
	case table.KindInt:
		return c.Int64()
	case table.KindFloat:
		return c.Float64()
	case table.KindBool:
		if c.Boolean() {
			return int64(1)
		}
		return int64(0)
	case table.KindString, table.KindTime:
		return c.Text()
	default:
		return nil
	}
}

func collect(ctx context.Context, db *sql.DB, query string) (*result.Set, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	out := &result.Set{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for j := range vals {
			ptrs[j] = &vals[j]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for j, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[j] = string(b)
			}
		}
		out.Rows = append(out.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func deriveKinds(tbl *table.Table) []table.Kind {
	kinds := make([]table.Kind, tbl.NumColumns())
	for j := range kinds {
		k, _ := table.Dominant(tbl.Column(j))
		if k == table.KindNull {
			k = table.KindString
		}
		kinds[j] = k
	}
	return kinds
}
