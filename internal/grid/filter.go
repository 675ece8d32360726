// internal/grid/filter.go
package grid

import (
	"github.com/solatis/datagrid/internal/expr"
	"github.com/solatis/datagrid/internal/types"
)

/*
 * Filter composition.
 *
 * Filters fold left to right. The first filter seeds the predicate; each
 * following filter joins the accumulated predicate with its own operand:
 *
 *   [f1, f2(OR), f3(AND)]  ->  ((f1 OR f2) AND f3)
 *
 * The operand of the first filter is ignored. There is no precedence and no
 * grouping; callers wanting (a AND b) OR (c AND d) must order filters so the
 * fold produces it, or register a custom verb.
 */

// FilterManager compiles filter settings into predicates.
type FilterManager struct {
	verbs      *expr.Verbs
	translator Translator
}

// NewFilterManager uses verbs for compare verbs and translator (may be nil)
// for keyword synonyms.
func NewFilterManager(verbs *expr.Verbs, translator Translator) *FilterManager {
	if verbs == nil {
		verbs = expr.DefaultVerbs()
	}
	return &FilterManager{verbs: verbs, translator: translator}
}

// Verbs returns the verb registry filters compile against.
func (m *FilterManager) Verbs() *expr.Verbs {
	return m.verbs
}

// Compose folds filters into one predicate. An empty list yields nil.
func Compose[T any](m *FilterManager, filters []types.FilterSetting) (expr.Predicate[T], error) {
	var pred expr.Predicate[T]
	for _, f := range filters {
		if m.translator != nil {
			f.Keyword = m.translator.Translate(f.Column, f.Keyword)
		}
		p, err := expr.CompileFilter[T](f, m.verbs)
		if err != nil {
			return nil, err
		}
		switch {
		case pred == nil:
			pred = p
		case f.Operand == types.OperandOr:
			pred = pred.Or(p)
		default:
			pred = pred.And(p)
		}
	}
	return pred, nil
}

// ApplyFilters narrows q by filters. An empty list returns q itself.
func ApplyFilters[T any](m *FilterManager, q Query[T], filters []types.FilterSetting) (Query[T], error) {
	pred, err := Compose[T](m, filters)
	if err != nil {
		return nil, err
	}
	if pred == nil {
		return q, nil
	}
	return q.Filter(pred), nil
}
