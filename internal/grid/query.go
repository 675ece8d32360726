// internal/grid/query.go
package grid

import (
	"context"
	"slices"
	"sync"

	"github.com/solatis/datagrid/internal/expr"
)

/*
 * Deferred record sources.
 *
 * A Query describes a record sequence and the operations to apply to it.
 * Nothing is read until Count or Fetch. Filter, Sort and Slice return new
 * queries sharing the same source, so the orchestrator can count the
 * unfiltered source, count the filtered view, then fetch a sorted page.
 *
 * The source is loaded at most once per query tree. A Counter, when given,
 * answers Count on the untouched source without loading it; SQL sources use
 * this to push the total count to the database.
 */

// Query is a deferred, composable view over a record source.
type Query[T any] interface {
	// Count returns the number of records in the view.
	Count(ctx context.Context) (int, error)
	// Filter keeps records satisfying p.
	Filter(p expr.Predicate[T]) Query[T]
	// Sort orders records by c. Ties keep their relative order.
	Sort(c expr.Comparator[T]) Query[T]
	// Slice skips skip records and keeps at most take; take < 0 keeps the rest.
	Slice(skip, take int) Query[T]
	// Fetch materializes the view.
	Fetch(ctx context.Context) ([]T, error)
	// Ordered reports whether the view already carries an ordering.
	Ordered() bool
}

// Loader materializes a record source.
type Loader[T any] func(ctx context.Context) ([]T, error)

// Counter counts a record source without materializing it.
type Counter func(ctx context.Context) (int, error)

// NewQuery builds a query over load. count may be nil. ordered declares that
// load already returns records in a meaningful order.
func NewQuery[T any](load Loader[T], count Counter, ordered bool) Query[T] {
	return &deferred[T]{src: &source[T]{load: load}, count: count, ordered: ordered}
}

// FromSlice builds an unordered query over records. records is never modified.
func FromSlice[T any](records []T) Query[T] {
	return NewQuery(func(context.Context) ([]T, error) { return records, nil }, nil, false)
}

// FromOrderedSlice is FromSlice for records already in display order.
func FromOrderedSlice[T any](records []T) Query[T] {
	return NewQuery(func(context.Context) ([]T, error) { return records, nil }, nil, true)
}

type source[T any] struct {
	mu     sync.Mutex
	load   Loader[T]
	rows   []T
	loaded bool
}

func (s *source[T]) get(ctx context.Context) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.rows, nil
	}
	rows, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.rows, s.loaded = rows, true
	return rows, nil
}

type deferred[T any] struct {
	src     *source[T]
	count   Counter
	ops     []func([]T) []T
	ordered bool
}

func (q *deferred[T]) with(op func([]T) []T, ordered bool) Query[T] {
	return &deferred[T]{
		src:     q.src,
		count:   q.count,
		ops:     append(slices.Clip(q.ops), op),
		ordered: ordered,
	}
}

func (q *deferred[T]) Filter(p expr.Predicate[T]) Query[T] {
	return q.with(func(rows []T) []T {
		out := make([]T, 0, len(rows))
		for _, r := range rows {
			if p(r) {
				out = append(out, r)
			}
		}
		return out
	}, q.ordered)
}

func (q *deferred[T]) Sort(c expr.Comparator[T]) Query[T] {
	return q.with(func(rows []T) []T {
		out := slices.Clone(rows)
		slices.SortStableFunc(out, c)
		return out
	}, true)
}

func (q *deferred[T]) Slice(skip, take int) Query[T] {
	skip = max(skip, 0)
	return q.with(func(rows []T) []T {
		if skip >= len(rows) {
			return nil
		}
		rows = rows[skip:]
		if take >= 0 && take < len(rows) {
			rows = rows[:take]
		}
		return rows
	}, q.ordered)
}

func (q *deferred[T]) Count(ctx context.Context) (int, error) {
	if len(q.ops) == 0 && q.count != nil {
		return q.count(ctx)
	}
	rows, err := q.rows(ctx)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (q *deferred[T]) Fetch(ctx context.Context) ([]T, error) {
	rows, err := q.rows(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(rows), nil
}

func (q *deferred[T]) Ordered() bool {
	return q.ordered
}

func (q *deferred[T]) rows(ctx context.Context) ([]T, error) {
	rows, err := q.src.get(ctx)
	if err != nil {
		return nil, err
	}
	for _, op := range q.ops {
		rows = op(rows)
	}
	return rows, nil
}
