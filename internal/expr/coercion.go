// internal/expr/coercion.go
package expr

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

/*
 * Text coercion for column comparison.
 *
 * Every filter compares text: the resolved value is rendered in a canonical
 * string form, lower-cased, and handed to a compare verb. Null values render
 * as the empty string so a missing value never propagates as an error.
 *
 * Rendering:
 *   - string: as is
 *   - time.Time: DateTimeLayout, which the date/time filter splits at the
 *     first space into a date half and a time half
 *   - numbers and booleans: strconv, shortest representation
 *   - fmt.Stringer: String()
 *   - anything else: %v
 */

// DateTimeLayout is the canonical text form of date/time columns.
const DateTimeLayout = "2006-01-02 15:04:05"

// Text renders a resolved value. ok=false (no value) renders as "".
func Text(v reflect.Value, ok bool) string {
	if !ok {
		return ""
	}
	v, ok = unwrapValue(v)
	if !ok {
		return ""
	}

	if v.Type() == timeType && v.CanInterface() {
		return v.Interface().(time.Time).Format(DateTimeLayout)
	}

	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'f', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return string(v.Bytes())
		}
	}

	if !v.CanInterface() {
		return ""
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v.Interface())
}

// LowerText is Text lower-cased, the form every compare verb receives.
func LowerText(v reflect.Value, ok bool) string {
	return strings.ToLower(Text(v, ok))
}

// NormalizeKeyword trims and lower-cases user input before comparison.
func NormalizeKeyword(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}

// splitDateTime cuts canonical date/time text at the first space.
// Text without a space is all date.
func splitDateTime(s string) (date, clock string) {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}
