// internal/expr/fieldpath.go
package expr

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/solatis/datagrid/internal/types"
)

/*
 * Column path resolution against Go record types.
 *
 * Resolves a dotted column path ("customer.name", "tags.label", "items.0.sku")
 * to a chain of reflection steps, once per compiled predicate or comparator.
 * Evaluation then walks the chain for each record without further lookups.
 *
 * Segment rules:
 *   - Pointers and sql.Null*-shaped wrappers are unwrapped before a segment
 *   - A segment matches an exported field by name, case-insensitively, as
 *     snake_case converted to CamelCase, or by its json/db tag
 *   - A slice or array of structs consumes the next segment: elements are
 *     projected to that field and the first element is selected, or the first
 *     one whose text satisfies the Selector
 *   - A numeric segment after a collection selects that index
 *   - A slice or array of scalars selects without consuming a segment
 *
 * Null semantics: nil pointers, invalid Null wrappers, empty collections and
 * unmatched selectors all resolve to "no value" rather than an error. Only
 * unknown segments fail, and they fail at Resolve time.
 */

var timeType = reflect.TypeFor[time.Time]()

// Selector narrows collection traversal to the first element whose projected
// text satisfies Verb against Keyword. Keyword must already be lower-cased.
type Selector struct {
	Verb    VerbFunc
	Keyword string
}

type step func(v reflect.Value) (reflect.Value, bool)

// Path is a resolved column path bound to a record type.
type Path struct {
	Column string
	Root   reflect.Type // record type the path was resolved against
	Type   reflect.Type // value type reached after unwrapping
	steps  []step
}

// Value walks the path on v. ok is false when the path reaches no value.
func (p *Path) Value(v reflect.Value) (reflect.Value, bool) {
	for _, s := range p.steps {
		var ok bool
		if v, ok = s(v); !ok {
			return reflect.Value{}, false
		}
	}
	return v, true
}

// IsDateTime reports whether the path resolves to a time.Time value.
func (p *Path) IsDateTime() bool {
	return p.Type == timeType
}

// Resolve binds column to root. sel applies to every collection crossed by the
// path; pass nil to always select the first element.
// Returns *types.UnknownColumnError if a segment does not exist.
func Resolve(root reflect.Type, column string, sel *Selector) (*Path, error) {
	if root == nil {
		return nil, types.ErrUnsupportedRecordType
	}
	if sel != nil && sel.Keyword == "" {
		sel = nil
	}

	fail := func(segment string) error {
		return &types.UnknownColumnError{Type: typeName(root), Column: column, Segment: segment}
	}

	if strings.TrimSpace(column) == "" {
		return nil, fail("")
	}

	segments := strings.Split(column, ".")
	p := &Path{Column: column, Root: root}
	cur := root

	for i := 0; i < len(segments); i++ {
		seg := strings.TrimSpace(segments[i])
		base := unwrapType(cur)
		if base.Kind() != reflect.Struct || isScalar(base) {
			return nil, fail(seg)
		}
		field, ok := lookupField(base, seg)
		if !ok {
			return nil, fail(seg)
		}
		p.steps = append(p.steps, fieldStep(field.Index))
		cur = field.Type

		// Projections may land on another collection, so keep expanding.
		for isCollection(unwrapType(cur)) {
			elem := unwrapType(cur).Elem()
			elemBase := unwrapType(elem)

			if isScalar(elemBase) {
				p.steps = append(p.steps, selectStep(unwrapValue, sel))
				cur = elem
				continue
			}
			if i+1 >= len(segments) {
				return nil, fail(seg)
			}
			i++
			next := strings.TrimSpace(segments[i])

			if idx, err := strconv.Atoi(next); err == nil && idx >= 0 {
				p.steps = append(p.steps, indexStep(idx))
				cur = elem
				continue
			}
			if elemBase.Kind() != reflect.Struct {
				return nil, fail(next)
			}
			inner, ok := lookupField(elemBase, next)
			if !ok {
				return nil, fail(next)
			}
			p.steps = append(p.steps, selectStep(fieldStep(inner.Index), sel))
			cur = inner.Type
			seg = next
		}
	}

	p.steps = append(p.steps, unwrapValue)
	p.Type = unwrapType(cur)
	return p, nil
}

// lookupField finds an exported field named by a column segment.
// Order: exact name, case-insensitive name, CamelCase of snake_case, json/db tag.
func lookupField(t reflect.Type, name string) (reflect.StructField, bool) {
	if name == "" {
		return reflect.StructField{}, false
	}
	if f, ok := t.FieldByName(name); ok && f.IsExported() {
		return f, true
	}
	if f, ok := t.FieldByNameFunc(func(n string) bool { return strings.EqualFold(n, name) }); ok && f.IsExported() {
		return f, true
	}
	if camel := strcase.ToCamel(name); camel != name {
		if f, ok := t.FieldByName(camel); ok && f.IsExported() {
			return f, true
		}
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		for _, key := range []string{"json", "db"} {
			tag, _, _ := strings.Cut(f.Tag.Get(key), ",")
			if tag != "" && tag != "-" && strings.EqualFold(tag, name) {
				return f, true
			}
		}
	}
	return reflect.StructField{}, false
}

func fieldStep(index []int) step {
	return func(v reflect.Value) (reflect.Value, bool) {
		v, ok := unwrapValue(v)
		if !ok || v.Kind() != reflect.Struct {
			return reflect.Value{}, false
		}
		f, err := v.FieldByIndexErr(index)
		if err != nil {
			// nil embedded pointer
			return reflect.Value{}, false
		}
		return f, true
	}
}

func indexStep(idx int) step {
	return func(v reflect.Value) (reflect.Value, bool) {
		v, ok := unwrapValue(v)
		if !ok || idx >= v.Len() {
			return reflect.Value{}, false
		}
		return v.Index(idx), true
	}
}

// selectStep projects each element and returns the first projection, or the
// first whose text satisfies sel.
func selectStep(project step, sel *Selector) step {
	return func(v reflect.Value) (reflect.Value, bool) {
		v, ok := unwrapValue(v)
		if !ok {
			return reflect.Value{}, false
		}
		for i := 0; i < v.Len(); i++ {
			item, ok := project(v.Index(i))
			if sel == nil {
				return item, ok
			}
			if sel.Verb(strings.ToLower(Text(item, ok)), sel.Keyword) {
				return item, ok
			}
		}
		return reflect.Value{}, false
	}
}

// unwrapValue dereferences pointers, interfaces and valid Null wrappers.
func unwrapValue(v reflect.Value) (reflect.Value, bool) {
	for {
		if !v.IsValid() {
			return reflect.Value{}, false
		}
		switch {
		case v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface:
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		case isNullWrapper(v.Type()):
			if !v.Field(1).Bool() {
				return reflect.Value{}, false
			}
			v = v.Field(0)
		default:
			return v, true
		}
	}
}

func unwrapType(t reflect.Type) reflect.Type {
	for {
		switch {
		case t.Kind() == reflect.Pointer:
			t = t.Elem()
		case isNullWrapper(t):
			t = t.Field(0).Type
		default:
			return t
		}
	}
}

// isNullWrapper matches sql.NullString, sql.NullTime, sql.Null[T] and friends.
func isNullWrapper(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || t.NumField() != 2 {
		return false
	}
	value, valid := t.Field(0), t.Field(1)
	return value.IsExported() && valid.Name == "Valid" && valid.Type.Kind() == reflect.Bool
}

func isCollection(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return t.Elem().Kind() != reflect.Uint8
	default:
		return false
	}
}

// isScalar reports types that end a path: basic kinds, time.Time, byte
// slices, maps and interfaces (whose dynamic type is unknown until evaluation).
func isScalar(t reflect.Type) bool {
	if t == timeType {
		return true
	}
	switch t.Kind() {
	case reflect.Struct:
		return false
	case reflect.Slice, reflect.Array:
		return t.Elem().Kind() == reflect.Uint8
	default:
		return true
	}
}

func typeName(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		return "*" + typeName(t.Elem())
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// TypeName returns the fully qualified name of t used in cache fingerprints.
func TypeName(t reflect.Type) string {
	return typeName(t)
}
