// internal/expr/compile.go
package expr

import (
	"reflect"
	"strings"

	"github.com/solatis/datagrid/internal/types"
)

/*
 * Predicate compilation.
 *
 * Compiles (column, verb, keyword) into a Predicate for a record type known
 * only at runtime. All failure modes (unknown column, unknown verb) surface
 * here, before any record is read; the returned predicate never errors.
 *
 * Compilation workflow:
 *   1. Look up the verb
 *   2. Normalize the keyword (trim + lower-case)
 *   3. Resolve the column; collections crossed by the path select the first
 *      element whose text satisfies the same verb and keyword
 *   4. Bind either the text predicate or the date/time predicate
 *
 * Date/time columns ignore the verb once it has been validated. The keyword is
 * matched against the two halves of the canonical rendering:
 *   - keyword with a space: date half contains the first token AND time half
 *     starts with the second token
 *   - keyword without a space: date half OR time half contains the keyword
 * A grid search box cannot know which half a typed fragment targets, hence
 * the looser single-token rule.
 */

// Predicate reports whether a record passes a filter.
type Predicate[T any] func(T) bool

// And combines p and o, both must hold.
func (p Predicate[T]) And(o Predicate[T]) Predicate[T] {
	return func(rec T) bool { return p(rec) && o(rec) }
}

// Or combines p and o, either may hold.
func (p Predicate[T]) Or(o Predicate[T]) Predicate[T] {
	return func(rec T) bool { return p(rec) || o(rec) }
}

// CompilePredicate builds the predicate for one column filter on T.
func CompilePredicate[T any](column, verb, keyword string, verbs *Verbs) (Predicate[T], error) {
	if verbs == nil {
		verbs = DefaultVerbs()
	}
	fn, err := verbs.Lookup(verb)
	if err != nil {
		return nil, err
	}

	keyword = NormalizeKeyword(keyword)

	path, err := Resolve(reflect.TypeFor[T](), column, &Selector{Verb: fn, Keyword: keyword})
	if err != nil {
		return nil, err
	}

	if path.IsDateTime() {
		return dateTimePredicate[T](path, keyword), nil
	}

	return func(rec T) bool {
		return fn(LowerText(path.Value(reflect.ValueOf(rec))), keyword)
	}, nil
}

// CompileFilter builds the predicate for a filter setting.
func CompileFilter[T any](f types.FilterSetting, verbs *Verbs) (Predicate[T], error) {
	return CompilePredicate[T](f.Column, f.Verb, f.Keyword, verbs)
}

func dateTimePredicate[T any](path *Path, keyword string) Predicate[T] {
	if strings.Contains(keyword, " ") {
		tokens := strings.Split(keyword, " ")
		date, clock := tokens[0], tokens[1]
		return func(rec T) bool {
			d, c := splitDateTime(LowerText(path.Value(reflect.ValueOf(rec))))
			return strings.Contains(d, date) && strings.HasPrefix(c, clock)
		}
	}
	return func(rec T) bool {
		d, c := splitDateTime(LowerText(path.Value(reflect.ValueOf(rec))))
		return strings.Contains(d, keyword) || strings.Contains(c, keyword)
	}
}
