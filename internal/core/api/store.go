package api

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/solatis/datagrid/internal/core/db"
	"github.com/solatis/datagrid/internal/grid"
)

// Store reads and writes orders through the named queries.
type Store struct {
	queries *db.Queries
}

func NewStore(queries *db.Queries) (*Store, error) {
	if queries == nil {
		return nil, fmt.Errorf("queries cannot be nil")
	}
	return &Store{queries: queries}, nil
}

// Orders returns a grid query over all orders, or over the orders in status
// when it is not empty. Tags are loaded in the same transaction.
func (s *Store) Orders(status string) (grid.Query[Order], error) {
	name, args := "list-orders", []interface{}(nil)
	if status != "" {
		name, args = "list-orders-by-status", []interface{}{status}
	}

	stmt, err := s.queries.Raw(name)
	if err != nil {
		return nil, err
	}
	return db.NewSQLQuery(db.SQLSource[Order]{
		DB:      s.queries.DB(),
		Query:   stmt,
		Args:    args,
		Hydrate: s.loadTags,
	}), nil
}

// tagBatchSize caps the ids of one list-order-tags query, well
// below the bind parameter limits of SQLite (32766) and PostgreSQL (65535).
var tagBatchSize = 1000

func (s *Store) loadTags(ctx context.Context, orders []Order) error {
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	for batch := range slices.Chunk(ids, tagBatchSize) {
		var tags []Tag
		if err := s.queries.Select(ctx, "list-order-tags", &tags, batch); err != nil {
			return err
		}
		for _, t := range tags {
			i := index[t.OrderID]
			orders[i].Tags = append(orders[i].Tags, t)
		}
	}
	return nil
}

// CreateOrder inserts o and its tags in one transaction. A missing ID is
// filled with a UUIDv7, a zero PlacedAt with the current time.
func (s *Store) CreateOrder(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.Must(uuid.NewV7()).String()
	}
	if o.PlacedAt.IsZero() {
		o.PlacedAt = time.Now().UTC()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	if !validStatus(o.Status) {
		return fmt.Errorf("%w: status %q", ErrInvalidOrder, o.Status)
	}
	if o.Customer == "" {
		return fmt.Errorf("%w: customer is required", ErrInvalidOrder)
	}

	return s.queries.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.queries.Exec(ctx, "insert-order", o.ID, o.Customer, o.Status, o.Total, o.PlacedAt, o.ShippedAt); err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
		for i := range o.Tags {
			o.Tags[i].OrderID, o.Tags[i].Position = o.ID, i
			if _, err := s.queries.Exec(ctx, "insert-order-tag", o.ID, i, o.Tags[i].Label); err != nil {
				return fmt.Errorf("failed to insert tag: %w", err)
			}
		}
		return nil
	})
}

// UpdateStatus moves an order to status, stamping shipped_at when it ships.
func (s *Store) UpdateStatus(ctx context.Context, id, status string) error {
	if !validStatus(status) {
		return fmt.Errorf("%w: status %q", ErrInvalidOrder, status)
	}
	var shippedAt *time.Time
	if status == StatusShipped {
		now := time.Now().UTC()
		shippedAt = &now
	}
	res, err := s.queries.Exec(ctx, "update-order-status", status, shippedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	return nil
}
