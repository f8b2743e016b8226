// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package pgxrepo implements [resolve.Repository] on top of PostgreSQL.
package pgxrepo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Querier is implemented by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// TableOptions are configurable parameters of a [Table].
type TableOptions struct {
	columns []string
}

// TableOption sets a value on [TableOptions].
type TableOption interface {
	ApplyTableOption(*TableOptions)
}

type tableOptionFunc func(*TableOptions)

func (f tableOptionFunc) ApplyTableOption(to *TableOptions) {
	f(to)
}

// Columns restricts the selected columns. All columns are selected by default.
func Columns(columns ...string) TableOption {
	return tableOptionFunc(func(to *TableOptions) {
		to.columns = append(to.columns, columns...)
	})
}

// Table finds rows of a single table. Rows are returned as map[string]any
// keyed by column name.
type Table struct {
	db      Querier
	name    pgx.Identifier
	columns []string
}

// NewTable returns a [Table] for name, which may be schema qualified.
func NewTable(db Querier, name string, opts ...TableOption) *Table {
	to := &TableOptions{}
	for _, opt := range opts {
		opt.ApplyTableOption(to)
	}
	return &Table{
		db:      db,
		name:    pgx.Identifier(strings.Split(name, ".")),
		columns: to.columns,
	}
}

// FindOneBy returns the first row whose columns equal every criteria value.
// A nil row and nil error means no row matched.
func (t *Table) FindOneBy(ctx context.Context, criteria map[string]any) (any, error) {
	sql, args, err := t.buildQuery(criteria)
	if err != nil {
		return nil, err
	}

	rows, err := t.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	row, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (t *Table) buildQuery(criteria map[string]any) (string, []any, error) {
	if len(criteria) == 0 {
		return "", nil, errors.New("pgxrepo: at least one criteria field is required")
	}

	fields := make([]string, 0, len(criteria))
	for field := range criteria {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	where := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, field := range fields {
		where[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{field}.Sanitize(), i+1)
		args[i] = criteria[field]
	}

	cols := "*"
	if len(t.columns) > 0 {
		sanitized := make([]string, len(t.columns))
		for i, c := range t.columns {
			sanitized[i] = pgx.Identifier{c}.Sanitize()
		}
		cols = strings.Join(sanitized, ", ")
	}

	sql := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s LIMIT 1",
		cols,
		t.name.Sanitize(),
		strings.Join(where, " AND "),
	)
	return sql, args, nil
}
