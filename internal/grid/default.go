// internal/grid/default.go
package grid

import "sync"

var (
	defaultOnce sync.Once
	defaultGrid *Datagrid
)

// Default returns a process-wide Datagrid built from DefaultSettings on
// first use. Prefer New and pass the grid explicitly; Default exists for
// call sites that cannot.
func Default() *Datagrid {
	defaultOnce.Do(func() {
		g, err := New(DefaultSettings())
		if err != nil {
			// default providers never fail
			panic("grid: default grid: " + err.Error())
		}
		defaultGrid = g
	})
	return defaultGrid
}
