// internal/grid/result.go
package grid

import (
	"encoding/json"
	"reflect"
	"slices"
	"sync"
	"time"
)

// Result is one page of a grid request with its counts and timings.
type Result[T any] struct {
	Data            []T
	RecordsTotal    int  // records in the source
	RecordsFiltered int  // records left after filtering
	Filtered        bool // request carried at least one filter
	TotalCountTime  time.Duration
	SelectCountTime time.Duration
	SelectTime      time.Duration
	Cache           bool // served from the result cache
}

// TotalTime is the sum of the three phase timings.
func (r *Result[T]) TotalTime() time.Duration {
	return r.TotalCountTime + r.SelectCountTime + r.SelectTime
}

// View is the wire form of a Result: camelCase keys, durations in milliseconds.
type View[T any] struct {
	Data            []T     `json:"data"`
	RecordsTotal    int     `json:"recordsTotal"`
	RecordsFiltered int     `json:"recordsFiltered"`
	Filtered        bool    `json:"filtered"`
	TotalCountTime  float64 `json:"totalCountTime"`
	SelectCountTime float64 `json:"selectCountTime"`
	SelectTime      float64 `json:"selectTime"`
	TotalTime       float64 `json:"totalTime"`
	Cache           bool    `json:"cache"`
}

func (r *Result[T]) View() View[T] {
	data := r.Data
	if data == nil {
		data = []T{}
	}
	return View[T]{
		Data:            data,
		RecordsTotal:    r.RecordsTotal,
		RecordsFiltered: r.RecordsFiltered,
		Filtered:        r.Filtered,
		TotalCountTime:  millis(r.TotalCountTime),
		SelectCountTime: millis(r.SelectCountTime),
		SelectTime:      millis(r.SelectTime),
		TotalTime:       millis(r.TotalTime()),
		Cache:           r.Cache,
	}
}

// JSON encodes the wire form.
func (r *Result[T]) JSON() ([]byte, error) {
	return json.Marshal(r.View())
}

// Map projects the page into another record type, keeping counts, timings
// and the cache flag.
func Map[T, U any](r *Result[T], fn func([]T) []U) *Result[U] {
	return &Result[U]{
		Data:            fn(r.Data),
		RecordsTotal:    r.RecordsTotal,
		RecordsFiltered: r.RecordsFiltered,
		Filtered:        r.Filtered,
		TotalCountTime:  r.TotalCountTime,
		SelectCountTime: r.SelectCountTime,
		SelectTime:      r.SelectTime,
		Cache:           r.Cache,
	}
}

// clone copies r with its own page slice, so appending to or reordering
// either page leaves the other intact.
func (r *Result[T]) clone() *Result[T] {
	c := *r
	c.Data = slices.Clone(r.Data)
	return &c
}

func (r *Result[T]) cached() *Result[T] {
	c := r.clone()
	c.Cache = true
	return c
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Cached results keep full duration precision.
type cachedResult[T any] struct {
	Data            []T           `json:"data"`
	RecordsTotal    int           `json:"recordsTotal"`
	RecordsFiltered int           `json:"recordsFiltered"`
	Filtered        bool          `json:"filtered"`
	TotalCountTime  time.Duration `json:"totalCountTime"`
	SelectCountTime time.Duration `json:"selectCountTime"`
	SelectTime      time.Duration `json:"selectTime"`
}

func encodeResult[T any](r *Result[T]) ([]byte, error) {
	return json.Marshal(cachedResult[T]{
		Data:            r.Data,
		RecordsTotal:    r.RecordsTotal,
		RecordsFiltered: r.RecordsFiltered,
		Filtered:        r.Filtered,
		TotalCountTime:  r.TotalCountTime,
		SelectCountTime: r.SelectCountTime,
		SelectTime:      r.SelectTime,
	})
}

func decodeResult[T any](data []byte) (*Result[T], error) {
	var c cachedResult[T]
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &Result[T]{
		Data:            c.Data,
		RecordsTotal:    c.RecordsTotal,
		RecordsFiltered: c.RecordsFiltered,
		Filtered:        c.Filtered,
		TotalCountTime:  c.TotalCountTime,
		SelectCountTime: c.SelectCountTime,
		SelectTime:      c.SelectTime,
		Cache:           true,
	}, nil
}

/*
 * Byte-oriented stores only see the JSON form of a result. Record types
 * with fields JSON cannot carry (unexported, tagged "-", interfaces) would
 * come back different from what was stored, so their results are not
 * written to such stores at all.
 */

var (
	jsonMarshaler   = reflect.TypeFor[json.Marshaler]()
	jsonUnmarshaler = reflect.TypeFor[json.Unmarshaler]()

	encodableTypes sync.Map // reflect.Type -> bool
)

// encodable reports whether values of t survive a JSON round trip.
func encodable(t reflect.Type) bool {
	if ok, found := encodableTypes.Load(t); found {
		return ok.(bool)
	}
	ok := jsonLossless(t, make(map[reflect.Type]bool))
	encodableTypes.Store(t, ok)
	return ok
}

func jsonLossless(t reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return true
	}
	seen[t] = true

	if t.Implements(jsonMarshaler) && reflect.PointerTo(t).Implements(jsonUnmarshaler) {
		return true
	}
	switch t.Kind() {
	case reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return jsonLossless(t.Elem(), seen)
	case reflect.Map:
		return jsonLossless(t.Key(), seen) && jsonLossless(t.Elem(), seen)
	case reflect.Struct:
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() || f.Tag.Get("json") == "-" || !jsonLossless(f.Type, seen) {
				return false
			}
		}
	}
	return true
}
