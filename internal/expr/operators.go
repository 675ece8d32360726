// internal/expr/operators.go
package expr

import (
	"sort"
	"strings"
	"sync"

	"github.com/solatis/datagrid/internal/types"
)

/*
 * Compare verb registry.
 *
 * A verb is a binary string predicate (column text, keyword) -> bool. Both
 * arguments arrive lower-cased. Defaults:
 *   - contains: substring match
 *   - startswith: prefix match, true for an empty keyword
 *   - endswith: suffix match, true for an empty keyword
 *
 * Names are matched after lower-casing and dropping '-', '_' and spaces, so
 * "starts-with", "StartsWith" and "starts_with" name the same verb.
 *
 * The registry is read by every compile and written only while a grid is
 * being configured; the RWMutex keeps late registration safe anyway.
 */

// VerbFunc compares lower-cased column text with a lower-cased keyword.
type VerbFunc func(value, keyword string) bool

// Default verb names.
const (
	VerbContains   = "contains"
	VerbStartsWith = "startswith"
	VerbEndsWith   = "endswith"
)

// Verbs maps verb names to compare functions.
type Verbs struct {
	mu    sync.RWMutex
	funcs map[string]VerbFunc
}

// DefaultVerbs returns a registry holding contains, startswith and endswith.
func DefaultVerbs() *Verbs {
	return NewVerbs(nil)
}

// NewVerbs returns the default registry with overrides applied on top.
func NewVerbs(overrides map[string]VerbFunc) *Verbs {
	v := &Verbs{funcs: map[string]VerbFunc{
		VerbContains: strings.Contains,
		VerbStartsWith: func(value, keyword string) bool {
			return keyword == "" || strings.HasPrefix(value, keyword)
		},
		VerbEndsWith: func(value, keyword string) bool {
			return keyword == "" || strings.HasSuffix(value, keyword)
		},
	}}
	for name, fn := range overrides {
		v.Register(name, fn)
	}
	return v
}

// Register adds or replaces a verb.
func (v *Verbs) Register(name string, fn VerbFunc) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.funcs[canonicalVerb(name)] = fn
}

// Lookup returns the verb registered under name.
// Returns *types.UnsupportedCompareVerbError if none is.
func (v *Verbs) Lookup(name string) (VerbFunc, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	fn, ok := v.funcs[canonicalVerb(name)]
	if !ok || fn == nil {
		return nil, &types.UnsupportedCompareVerbError{Verb: name}
	}
	return fn, nil
}

// Names lists registered verbs in sorted order.
func (v *Verbs) Names() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	names := make([]string, 0, len(v.funcs))
	for name := range v.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func canonicalVerb(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', ' ':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(name)))
}
