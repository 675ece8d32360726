// Package api provides the gRPC-facing grid service over the orders domain.
package api

import (
	"time"

	"github.com/solatis/datagrid/internal/grid"
	"github.com/solatis/datagrid/internal/types"
)

// OrderCacheTimeout is how long a page of orders stays cached, in seconds.
// Writes through Store invalidate the cached pages regardless.
const OrderCacheTimeout = 60

// OrderCachePrefix keys cached order pages.
const OrderCachePrefix = "Orders"

// Order statuses accepted by the schema.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusShipped   = "shipped"
	StatusCancelled = "cancelled"
)

// Order is one row of the orders table with its tags.
type Order struct {
	ID        string     `db:"id" json:"id"`
	Customer  string     `db:"customer" json:"customer"`
	Status    string     `db:"status" json:"status"`
	Total     float64    `db:"total" json:"total"`
	PlacedAt  time.Time  `db:"placed_at" json:"placedAt"`
	ShippedAt *time.Time `db:"shipped_at" json:"shippedAt,omitempty"`
	Tags      []Tag      `db:"-" json:"tags"`
}

// Tag labels an order; Position keeps the order tags were given in.
type Tag struct {
	OrderID  string `db:"order_id" json:"orderId"`
	Position int    `db:"position" json:"position"`
	Label    string `db:"label" json:"label"`
}

// DefaultOrder shows the most recent orders first.
func (Order) DefaultOrder() []types.SortSetting {
	return []types.SortSetting{{Column: "placed_at", Direction: types.Desc}}
}

func (Order) DatagridCache() grid.CacheOptions {
	return grid.CacheOptions{KeyPrefix: OrderCachePrefix, TimeoutSeconds: OrderCacheTimeout}
}

func validStatus(s string) bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusCancelled:
		return true
	}
	return false
}
