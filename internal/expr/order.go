// internal/expr/order.go
package expr

import (
	"cmp"
	"reflect"
	"strings"
	"time"

	"github.com/solatis/datagrid/internal/types"
)

/*
 * Comparator compilation.
 *
 * A sort setting compiles to a key comparator: resolve the column (collections
 * select their first element, no compare context), then compare the resolved
 * values by the natural order of the path's value type. Settings chain as
 * then-by keys; the first non-zero key decides.
 *
 * Natural orders: integers, unsigned integers, floats, strings, booleans
 * (false < true) and time.Time. Other types compare by their text form.
 * No value orders before any value in ascending order, after in descending.
 *
 * Stability is the caller's job: feed the comparator to slices.SortStableFunc.
 */

// Comparator orders two records, negative when a sorts before b.
type Comparator[T any] func(a, b T) int

// CompileKey builds the ascending comparator for one column of T.
func CompileKey[T any](column string) (Comparator[T], error) {
	path, err := Resolve(reflect.TypeFor[T](), column, nil)
	if err != nil {
		return nil, err
	}
	compare := valueComparator(path.Type)
	return func(a, b T) int {
		av, aok := path.Value(reflect.ValueOf(a))
		bv, bok := path.Value(reflect.ValueOf(b))
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return -1
		case !bok:
			return 1
		}
		return compare(av, bv)
	}, nil
}

// CompileComparator chains sort settings into one multi-key comparator.
// An empty list compares every pair as equal.
func CompileComparator[T any](sorters []types.SortSetting) (Comparator[T], error) {
	keys := make([]Comparator[T], 0, len(sorters))
	for _, s := range sorters {
		key, err := CompileKey[T](s.Column)
		if err != nil {
			return nil, err
		}
		if s.Direction == types.Desc {
			key = key.Reverse()
		}
		keys = append(keys, key)
	}
	return func(a, b T) int {
		for _, key := range keys {
			if r := key(a, b); r != 0 {
				return r
			}
		}
		return 0
	}, nil
}

// Reverse flips the order of c.
func (c Comparator[T]) Reverse() Comparator[T] {
	return func(a, b T) int { return c(b, a) }
}

// ThenBy falls back to next when c reports equality.
func (c Comparator[T]) ThenBy(next Comparator[T]) Comparator[T] {
	return func(a, b T) int {
		if r := c(a, b); r != 0 {
			return r
		}
		return next(a, b)
	}
}

func valueComparator(t reflect.Type) func(a, b reflect.Value) int {
	if t == timeType {
		return func(a, b reflect.Value) int {
			at, aok := a.Interface().(time.Time)
			bt, bok := b.Interface().(time.Time)
			if !aok || !bok {
				return textCompare(a, b)
			}
			return at.Compare(bt)
		}
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Int(), b.Int()) }
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Uint(), b.Uint()) }
	case reflect.Float32, reflect.Float64:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Float(), b.Float()) }
	case reflect.String:
		return func(a, b reflect.Value) int { return strings.Compare(a.String(), b.String()) }
	case reflect.Bool:
		return func(a, b reflect.Value) int {
			switch {
			case a.Bool() == b.Bool():
				return 0
			case !a.Bool():
				return -1
			default:
				return 1
			}
		}
	default:
		return textCompare
	}
}

func textCompare(a, b reflect.Value) int {
	return strings.Compare(Text(a, true), Text(b, true))
}
