package grid

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/solatis/datagrid/internal/types"
)

type item struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
	Tags      []string  `json:"tags"`
}

// sequenced orders by ID unless told otherwise.
type sequenced struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (sequenced) DefaultOrder() []types.SortSetting {
	return []types.SortSetting{{Column: "id", Direction: types.Asc}}
}

// pinned caches forever under its own prefix.
type pinned struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (*pinned) DatagridCache() CacheOptions {
	return CacheOptions{KeyPrefix: "Pinned", TimeoutSeconds: 0}
}

func items() []item {
	base := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	return []item{
		{ID: 1, Name: "Alpha", Category: "tools", Price: 10, CreatedAt: base, Tags: []string{"red"}},
		{ID: 2, Name: "beta", Category: "toys", Price: 5, CreatedAt: base.Add(24 * time.Hour), Tags: []string{"blue"}},
		{ID: 3, Name: "Gamma", Category: "tools", Price: 7.5, CreatedAt: base.Add(48 * time.Hour)},
		{ID: 4, Name: "delta", Category: "garden", Price: 5, CreatedAt: base.Add(72 * time.Hour), Tags: []string{"red", "green"}},
	}
}

func sequence(n int) []sequenced {
	out := make([]sequenced, n)
	for i := range out {
		// stored in reverse so the default order has work to do
		id := n - 1 - i
		out[i] = sequenced{ID: id, Name: "record-" + strconv.Itoa(id)}
	}
	return out
}

func ids[T any](records []T, id func(T) int) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = id(r)
	}
	return out
}

func itemIDs(records []item) []int { return ids(records, func(i item) int { return i.ID }) }

// countingSlice counts source reads.
func countingSlice[T any](records []T) (Query[T], *int) {
	loads := new(int)
	q := NewQuery(func(context.Context) ([]T, error) {
		*loads++
		return records, nil
	}, nil, false)
	return q, loads
}

func failingQuery[T any](err error) Query[T] {
	return NewQuery(func(context.Context) ([]T, error) { return nil, err }, nil, false)
}

// recordingBoundary remembers the isolation it was asked for.
type recordingBoundary struct {
	mu        sync.Mutex
	calls     int
	isolation sql.IsolationLevel
}

func (b *recordingBoundary) Run(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context) error) error {
	b.mu.Lock()
	b.calls++
	b.isolation = isolation
	b.mu.Unlock()
	return fn(ctx)
}

// dataTables builds the parameter map a DataTables client sends.
func dataTables(columns []string, start, length int, extra map[string]string) map[string]string {
	params := map[string]string{
		"draw":   "1",
		"start":  strconv.Itoa(start),
		"length": strconv.Itoa(length),
	}
	for i, c := range columns {
		params[fmt.Sprintf("columns[%d][data]", i)] = c
		params[fmt.Sprintf("columns[%d][searchable]", i)] = "true"
		params[fmt.Sprintf("columns[%d][orderable]", i)] = "true"
	}
	for k, v := range extra {
		params[k] = v
	}
	return params
}
