// internal/grid/policy.go
package grid

import (
	"reflect"

	"github.com/solatis/datagrid/internal/types"
)

// CacheOptions overrides grid-wide cache settings for one record type.
type CacheOptions struct {
	KeyPrefix      string // empty keeps Settings.CacheKeyPrefix
	TimeoutSeconds int    // same convention as Settings.CacheTimeout
}

// CachePolicy is implemented by record types that cache differently from
// the grid default.
type CachePolicy interface {
	DatagridCache() CacheOptions
}

// DefaultOrderer is implemented by record types with a natural display
// order, used when a request carries no sort settings.
type DefaultOrderer interface {
	DefaultOrder() []types.SortSetting
}

// policyOf reports whether T or *T implements I. Methods are called on a
// fresh zero value, so policies must not depend on record state.
func policyOf[I, T any]() (I, bool) {
	t := reflect.TypeFor[T]()
	var v reflect.Value
	switch t.Kind() {
	case reflect.Pointer:
		v = reflect.New(t.Elem())
	case reflect.Interface:
		var zero I
		return zero, false
	default:
		v = reflect.New(t)
	}
	p, ok := v.Interface().(I)
	return p, ok
}

func cacheOptionsFor[T any](s Settings) CacheOptions {
	opts := CacheOptions{KeyPrefix: s.CacheKeyPrefix, TimeoutSeconds: s.CacheTimeout}
	if p, ok := policyOf[CachePolicy, T](); ok {
		own := p.DatagridCache()
		if own.KeyPrefix != "" {
			opts.KeyPrefix = own.KeyPrefix
		}
		opts.TimeoutSeconds = own.TimeoutSeconds
	}
	return opts
}

func defaultOrderFor[T any]() []types.SortSetting {
	if p, ok := policyOf[DefaultOrderer, T](); ok {
		return p.DefaultOrder()
	}
	return nil
}
