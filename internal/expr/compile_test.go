package expr

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/datagrid/internal/types"
)

type person struct {
	Name string
}

type account struct {
	Owner  string
	Orders []invoice
}

type invoice struct {
	Total float64
}

func filterSlice[T any](records []T, p Predicate[T]) []T {
	var out []T
	for _, r := range records {
		if p(r) {
			out = append(out, r)
		}
	}
	return out
}

func TestCompilePredicate_CaseInsensitiveContains(t *testing.T) {
	records := []person{{Name: "Alpha"}, {Name: "beta"}}
	p, err := CompilePredicate[person]("name", "contains", "ALP", nil)
	if err != nil {
		t.Fatalf("CompilePredicate() error = %v", err)
	}
	got := filterSlice(records, p)
	if len(got) != 1 || got[0].Name != "Alpha" {
		t.Errorf("filter = %v, expected [{Alpha}]", got)
	}
}

func TestCompilePredicate_EmptyCollection(t *testing.T) {
	p, err := CompilePredicate[account]("orders.total", "contains", "1", nil)
	if err != nil {
		t.Fatalf("CompilePredicate() error = %v", err)
	}
	if p(account{Owner: "x"}) {
		t.Errorf("empty collection matched a non-empty keyword")
	}

	k, err := CompileKey[account]("orders.total")
	if err != nil {
		t.Fatalf("CompileKey() error = %v", err)
	}
	if r := k(account{}, account{Orders: []invoice{{Total: 1}}}); r >= 0 {
		t.Errorf("compare(null, 1) = %d, want negative", r)
	}
}

func TestCompilePredicate_Verbs(t *testing.T) {
	rec := fixtureOrder()
	tests := []struct {
		name     string
		column   string
		verb     string
		keyword  string
		expected bool
	}{
		{name: "contains", column: "reference", verb: "contains", keyword: "0042", expected: true},
		{name: "starts with", column: "reference", verb: "startswith", keyword: "ref-", expected: true},
		{name: "starts with miss", column: "reference", verb: "startswith", keyword: "0042", expected: false},
		{name: "ends with", column: "reference", verb: "endswith", keyword: "42", expected: true},
		{name: "keyword is trimmed", column: "customer.name", verb: "contains", keyword: "  SMITH ", expected: true},
		{name: "numeric column", column: "total", verb: "startswith", keyword: "19.", expected: true},
		{name: "bool column", column: "paid", verb: "contains", keyword: "TRUE", expected: true},
		{name: "null column, empty keyword", column: "shippedAt", verb: "contains", keyword: "", expected: true},
		{name: "nullable column, no match", column: "customer.email", verb: "contains", keyword: "bob", expected: false},
		{name: "any collection element", column: "tags.label", verb: "contains", keyword: "blue", expected: true},
		{name: "no collection element", column: "tags.label", verb: "contains", keyword: "green", expected: false},
		{name: "ends with on collection", column: "lines.sku", verb: "endswith", keyword: "-2", expected: true},
		{name: "scalar collection", column: "notes", verb: "startswith", keyword: "gi", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := CompilePredicate[order](tt.column, tt.verb, tt.keyword, nil)
			if err != nil {
				t.Fatalf("CompilePredicate() error = %v", err)
			}
			if got := p(rec); got != tt.expected {
				t.Errorf("predicate(%s %s %q) = %v, expected %v", tt.column, tt.verb, tt.keyword, got, tt.expected)
			}
		})
	}
}

func TestCompilePredicate_DateTime(t *testing.T) {
	rec := fixtureOrder() // placed at 2020-01-02 03:04:05
	tests := []struct {
		name     string
		keyword  string
		expected bool
	}{
		{name: "date and time prefix", keyword: "2020-01 03", expected: true},
		{name: "time prefix fails", keyword: "01 99", expected: false},
		{name: "time contains but not prefix", keyword: "2020 04", expected: false},
		{name: "single token in time", keyword: "04", expected: true},
		{name: "single token in date", keyword: "2020-01", expected: true},
		{name: "single token nowhere", keyword: "1999", expected: false},
		{name: "empty keyword", keyword: "", expected: true},
		{name: "full timestamp", keyword: "2020-01-02 03:04:05", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// verb is validated but ignored for date/time columns
			p, err := CompilePredicate[order]("placedAt", "endswith", tt.keyword, nil)
			if err != nil {
				t.Fatalf("CompilePredicate() error = %v", err)
			}
			if got := p(rec); got != tt.expected {
				t.Errorf("predicate(%q) = %v, expected %v", tt.keyword, got, tt.expected)
			}
		})
	}
}

func TestCompilePredicate_DateTimeNull(t *testing.T) {
	p, err := CompilePredicate[order]("shippedAt", "contains", "2020", nil)
	if err != nil {
		t.Fatalf("CompilePredicate() error = %v", err)
	}
	if p(fixtureOrder()) {
		t.Errorf("null date matched keyword")
	}

	rec := fixtureOrder()
	rec.ShippedAt = timePtr(fixtureTime())
	if !p(rec) {
		t.Errorf("date pointer did not match keyword")
	}
}

func TestCompilePredicate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		column string
		verb   string
		target error
	}{
		{name: "unknown column", column: "missing", verb: "contains", target: types.ErrUnknownColumn},
		{name: "unknown nested column", column: "customer.phone", verb: "contains", target: types.ErrUnknownColumn},
		{name: "unknown verb", column: "reference", verb: "like", target: types.ErrUnsupportedCompareVerb},
		{name: "verb checked first", column: "missing", verb: "like", target: types.ErrUnsupportedCompareVerb},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := CompilePredicate[order](tt.column, tt.verb, "x", nil)
			if !errors.Is(err, tt.target) {
				t.Errorf("CompilePredicate() error = %v, want %v", err, tt.target)
			}
			if p != nil {
				t.Errorf("CompilePredicate() returned a predicate alongside an error")
			}
		})
	}
}

func TestCompileFilter_CustomVerb(t *testing.T) {
	verbs := NewVerbs(map[string]VerbFunc{
		"equals": func(value, keyword string) bool { return value == keyword },
	})
	p, err := CompileFilter[order](types.FilterSetting{Column: "couponCode", Verb: "equals", Keyword: "Spring"}, verbs)
	if err != nil {
		t.Fatalf("CompileFilter() error = %v", err)
	}
	if !p(fixtureOrder()) {
		t.Errorf("equals verb did not match")
	}
}

func TestPredicate_Combinators(t *testing.T) {
	yes := Predicate[int](func(int) bool { return true })
	no := Predicate[int](func(int) bool { return false })

	if !yes.And(yes)(0) || yes.And(no)(0) || no.And(yes)(0) {
		t.Errorf("And misbehaves")
	}
	if !yes.Or(no)(0) || !no.Or(yes)(0) || no.Or(no)(0) {
		t.Errorf("Or misbehaves")
	}
}

// Property-based test: contains matches exactly the records a lower-cased
// substring check would keep, regardless of keyword casing.
func TestCompilePredicate_PropertyContainsIgnoresCase(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("contains agrees with strings.Contains on lower-cased text", prop.ForAll(
		func(names []string, keyword string) bool {
			records := make([]person, len(names))
			for i, n := range names {
				records[i] = person{Name: n}
			}

			p, err := CompilePredicate[person]("name", "contains", strings.ToUpper(keyword), nil)
			if err != nil {
				return false
			}
			want := strings.ToLower(strings.TrimSpace(keyword))
			expected := slices.DeleteFunc(slices.Clone(records), func(r person) bool {
				return !strings.Contains(strings.ToLower(r.Name), want)
			})
			return slices.Equal(filterSlice(records, p), expected)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
