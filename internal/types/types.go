// Package types provides the request descriptors shared across datagrid components.
//
// The parameter pipeline produces these values; the expression compilers and the
// grid orchestrator consume them. Descriptors are plain values and are never
// mutated once a request has been normalized.
package types

import "strings"

// Operand joins a filter to the filters declared before it.
type Operand int

const (
	OperandAnd Operand = iota
	OperandOr
)

func (o Operand) String() string {
	if o == OperandOr {
		return "OR"
	}
	return "AND"
}

// ParseOperand maps "or" (any case) to OperandOr and everything else to OperandAnd.
func ParseOperand(s string) Operand {
	if strings.EqualFold(strings.TrimSpace(s), "or") {
		return OperandOr
	}
	return OperandAnd
}

// Direction is the sort direction of a column.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// ParseDirection maps "desc" (any case) to Desc and everything else to Asc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), "desc") {
		return Desc
	}
	return Asc
}

// FilterSetting is one column filter of a request.
type FilterSetting struct {
	Column  string  // dotted column path
	Keyword string  // text typed by the user
	Operand Operand // how this filter joins the filters before it
	Verb    string  // compare verb name (contains, startswith, endswith)
}

// SortSetting is one ordering key of a request.
type SortSetting struct {
	Column    string
	Direction Direction
}

// TranslatorSetting maps synonyms typed by users to the text stored in a column.
type TranslatorSetting struct {
	Column   string
	Text     string
	Synonyms []string
}

// ParameterSettings is the normalized form of a grid request.
type ParameterSettings struct {
	Parameters map[string]string
	Columns    []string
	Filters    []FilterSetting
	Sorters    []SortSetting
	PageNumber int // 1-based; values below zero are clamped to zero
	PageSize   int // negative disables paging
	Refresh    bool
}

// NewParameterSettings builds settings with PageNumber clamped at zero.
func NewParameterSettings(parameters map[string]string, columns []string, filters []FilterSetting, sorters []SortSetting, pageNumber, pageSize int, refresh bool) *ParameterSettings {
	if pageNumber < 0 {
		pageNumber = 0
	}
	if parameters == nil {
		parameters = map[string]string{}
	}
	return &ParameterSettings{
		Parameters: parameters,
		Columns:    columns,
		Filters:    filters,
		Sorters:    sorters,
		PageNumber: pageNumber,
		PageSize:   pageSize,
		Refresh:    refresh,
	}
}

// Filtered reports whether the request carries any filter.
func (p *ParameterSettings) Filtered() bool {
	return len(p.Filters) > 0
}

// Paged reports whether the request asks for a bounded page.
func (p *ParameterSettings) Paged() bool {
	return p.PageSize >= 0
}

// Skip returns the number of records preceding the requested page.
func (p *ParameterSettings) Skip() int {
	skip := (p.PageNumber - 1) * p.PageSize
	if skip < 0 {
		return 0
	}
	return skip
}
