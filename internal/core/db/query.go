// internal/core/db/query.go
package db

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/datagrid/internal/grid"
)

/*
 * SQL-backed grid sources.
 *
 * NewSQLQuery turns a SELECT statement into a grid.Query. The total count
 * runs in the database as SELECT COUNT(*) over the statement; filtering,
 * sorting and paging run over the materialized rows, because predicates and
 * comparators are compiled Go functions.
 *
 * A statement containing ORDER BY is treated as already ordered, so the grid
 * keeps its order when the request carries no sort settings.
 *
 * All reads go through Ext, so inside a TxBoundary they share the request
 * transaction.
 */

var orderByPattern = regexp.MustCompile(`(?i)\border\s+by\b`)

// Hydrator post-processes rows after they are scanned, inside the same
// transaction (for example to load child collections).
type Hydrator[T any] func(ctx context.Context, rows []T) error

// SQLSource describes a SELECT statement backing a grid query.
type SQLSource[T any] struct {
	DB      *sqlx.DB
	Query   string // with ? placeholders, rebound per driver
	Args    []interface{}
	Hydrate Hydrator[T] // optional
}

// NewSQLQuery builds a grid query over src.
func NewSQLQuery[T any](src SQLSource[T]) grid.Query[T] {
	stmt := trimStatement(src.Query)
	load := func(ctx context.Context) ([]T, error) {
		ext := Ext(ctx, src.DB)
		var rows []T
		if err := sqlx.SelectContext(ctx, ext, &rows, ext.Rebind(stmt), src.Args...); err != nil {
			return nil, fmt.Errorf("failed to load records: %w", err)
		}
		if src.Hydrate != nil && len(rows) > 0 {
			if err := src.Hydrate(ctx, rows); err != nil {
				return nil, fmt.Errorf("failed to hydrate records: %w", err)
			}
		}
		return rows, nil
	}
	count := func(ctx context.Context) (int, error) {
		ext := Ext(ctx, src.DB)
		var n int
		if err := sqlx.GetContext(ctx, ext, &n, ext.Rebind(countStatement(stmt)), src.Args...); err != nil {
			return 0, fmt.Errorf("failed to count records: %w", err)
		}
		return n, nil
	}
	return grid.NewQuery[T](load, count, IsOrdered(stmt))
}

// IsOrdered reports whether stmt carries an ORDER BY clause.
func IsOrdered(stmt string) bool {
	return orderByPattern.MatchString(stmt)
}

func countStatement(stmt string) string {
	return "SELECT COUNT(*) FROM (" + stmt + ") AS grid_source"
}

func trimStatement(stmt string) string {
	return strings.TrimRight(strings.TrimSpace(stmt), "; \n\t")
}
