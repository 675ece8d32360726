// internal/grid/sorter.go
package grid

import (
	"github.com/solatis/datagrid/internal/expr"
	"github.com/solatis/datagrid/internal/types"
)

// SorterManager decides how a request orders its records.
//
// Explicit sort settings always win. Without them, a query that is already
// ordered keeps its order; otherwise the record type's DefaultOrder applies,
// then the first requested column in Fallback direction.
type SorterManager struct {
	Fallback types.Direction
}

func NewSorterManager() *SorterManager {
	return &SorterManager{Fallback: types.Desc}
}

// Effective returns the sort settings to apply to q, or nil to keep q as is.
func Effective[T any](m *SorterManager, q Query[T], sorters []types.SortSetting, columns []string) []types.SortSetting {
	if len(sorters) > 0 {
		return sorters
	}
	if q.Ordered() {
		return nil
	}
	if order := defaultOrderFor[T](); len(order) > 0 {
		return order
	}
	if len(columns) > 0 && columns[0] != "" {
		return []types.SortSetting{{Column: columns[0], Direction: m.Fallback}}
	}
	return nil
}

// ApplySorters orders q by its effective sort settings.
func ApplySorters[T any](m *SorterManager, q Query[T], sorters []types.SortSetting, columns []string) (Query[T], error) {
	effective := Effective(m, q, sorters, columns)
	if len(effective) == 0 {
		return q, nil
	}
	c, err := expr.CompileComparator[T](effective)
	if err != nil {
		return nil, err
	}
	return q.Sort(c), nil
}
