// internal/grid/params.go
package grid

import (
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/solatis/datagrid/internal/expr"
	"github.com/solatis/datagrid/internal/types"
)

/*
 * Request normalization.
 *
 * Parses the DataTables server-side parameter map into ParameterSettings.
 * Keys are accepted in bracket ("columns[0][search][value]") and dot
 * ("columns[0].search.value", "columns.0.search.value") notation.
 *
 * Per column: data, name, type, orderable, searchable, search value,
 * associates (comma separated data names) and formatted. Values are trimmed
 * and lower-cased; ".0." in data paths collapses to ".".
 *
 * Filters: a non-empty global search value replaces every column's search
 * value. Each column with a search value emits one "contains" filter for
 * itself and each associate that is searchable, joined with OR when the
 * column has associates, AND otherwise.
 *
 * Sorters: order[i] entries in index order; each emits one setting for the
 * referenced column and each associate that is orderable.
 *
 * Date and datetime columns not marked formatted have their search value
 * rewritten from "dd/mm/yyyy [time]" to "yyyy-mm-dd [time]".
 *
 * Paging: page = start/length + 1. Negative length disables paging.
 * Unparseable start or length, a zero length or a negative start fall back
 * to page 1 with the default page size.
 */

// ParameterParser turns raw request parameters into settings.
type ParameterParser interface {
	Parse(params map[string]string) *types.ParameterSettings
}

var (
	columnKey = regexp.MustCompile(`^columns(?:\[(\d+)\]|\.(\d+))(.+)$`)
	orderKey  = regexp.MustCompile(`^order(?:\[(\d+)\]|\.(\d+))(.+)$`)

	attrReplacer = strings.NewReplacer("][", ".", "[", ".", "]", "")
	dateReplacer = strings.NewReplacer("/", "-", ".", "-")
)

type column struct {
	index       int
	data        string
	name        string
	typ         string
	orderable   bool
	searchable  bool
	formatted   bool
	searchValue string
	associates  []string
}

type order struct {
	column    int
	hasColumn bool
	direction types.Direction
}

// ParameterManager parses DataTables-style parameters.
type ParameterManager struct {
	defaultPageSize int
}

func NewParameterManager(defaultPageSize int) *ParameterManager {
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}
	return &ParameterManager{defaultPageSize: defaultPageSize}
}

// Parse never fails; malformed entries are ignored.
func (m *ParameterManager) Parse(params map[string]string) *types.ParameterSettings {
	byIndex := map[int]*column{}
	orders := map[int]*order{}

	for key, value := range params {
		if match := columnKey.FindStringSubmatch(key); match != nil {
			idx, _ := strconv.Atoi(match[1] + match[2])
			c, ok := byIndex[idx]
			if !ok {
				c = &column{index: idx}
				byIndex[idx] = c
			}
			c.set(attribute(match[3]), value)
			continue
		}
		if match := orderKey.FindStringSubmatch(key); match != nil {
			idx, _ := strconv.Atoi(match[1] + match[2])
			o, ok := orders[idx]
			if !ok {
				o = &order{}
				orders[idx] = o
			}
			switch attribute(match[3]) {
			case "column":
				if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n >= 0 {
					o.column, o.hasColumn = n, true
				}
			case "dir":
				o.direction = types.ParseDirection(value)
			}
		}
	}

	columns := make([]*column, 0, len(byIndex))
	for _, c := range byIndex {
		if c.data != "" {
			columns = append(columns, c)
		}
	}
	slices.SortFunc(columns, func(a, b *column) int { return a.index - b.index })

	if search := globalSearch(params); search != "" {
		for _, c := range columns {
			c.searchValue = search
		}
	}

	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.data
	}

	pageNumber, pageSize := m.paging(params)
	refresh, _ := strconv.ParseBool(strings.TrimSpace(params["refresh"]))

	return types.NewParameterSettings(
		maps.Clone(params),
		names,
		filtersFor(columns),
		sortersFor(columns, orders),
		pageNumber,
		pageSize,
		refresh,
	)
}

func (m *ParameterManager) paging(params map[string]string) (page, size int) {
	start, length := 0, m.defaultPageSize
	if raw, ok := params["start"]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 0 {
			return 1, m.defaultPageSize
		}
		start = n
	}
	if raw, ok := params["length"]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n == 0 {
			return 1, m.defaultPageSize
		}
		length = n
	}
	if length < 0 {
		return 1, -1
	}
	return start/length + 1, length
}

func (c *column) set(attr, value string) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch attr {
	case "data":
		c.data = normalizeColumn(value)
	case "name":
		c.name = value
	case "type":
		c.typ = value
	case "orderable":
		c.orderable, _ = strconv.ParseBool(value)
	case "searchable":
		c.searchable, _ = strconv.ParseBool(value)
	case "formatted":
		c.formatted, _ = strconv.ParseBool(value)
	case "search.value":
		c.searchValue = value
	case "associates":
		c.associates = c.associates[:0]
		for _, a := range strings.Split(value, ",") {
			if a = normalizeColumn(strings.TrimSpace(a)); a != "" {
				c.associates = append(c.associates, a)
			}
		}
	}
}

// search formats the column's search value for its type.
func (c *column) search() string {
	if c.formatted || (c.typ != "date" && c.typ != "datetime") {
		return c.searchValue
	}
	value := dateReplacer.Replace(c.searchValue)
	date, clock, hasClock := strings.Cut(value, " ")
	parts := strings.Split(date, "-")
	slices.Reverse(parts)
	value = strings.Join(parts, "-")
	if hasClock {
		value += " " + clock
	}
	return value
}

// group returns c followed by the associates declared as columns.
func (c *column) group(columns []*column) []*column {
	group := []*column{c}
	for _, name := range c.associates {
		for _, other := range columns {
			if other.data == name {
				group = append(group, other)
				break
			}
		}
	}
	return group
}

func filtersFor(columns []*column) []types.FilterSetting {
	var filters []types.FilterSetting
	for _, c := range columns {
		if c.searchValue == "" {
			continue
		}
		group := c.group(columns)
		operand := types.OperandAnd
		if len(group) > 1 {
			operand = types.OperandOr
		}
		keyword := c.search()
		for _, member := range group {
			if !member.searchable {
				continue
			}
			filters = append(filters, types.FilterSetting{
				Column:  member.data,
				Keyword: keyword,
				Operand: operand,
				Verb:    expr.VerbContains,
			})
		}
	}
	return filters
}

func sortersFor(columns []*column, orders map[int]*order) []types.SortSetting {
	var sorters []types.SortSetting
	for _, idx := range slices.Sorted(maps.Keys(orders)) {
		o := orders[idx]
		if !o.hasColumn {
			continue
		}
		i := slices.IndexFunc(columns, func(c *column) bool { return c.index == o.column })
		if i < 0 {
			continue
		}
		for _, member := range columns[i].group(columns) {
			if member.orderable {
				sorters = append(sorters, types.SortSetting{Column: member.data, Direction: o.direction})
			}
		}
	}
	return sorters
}

func globalSearch(params map[string]string) string {
	for _, key := range []string{"search.value", "search[value]"} {
		if v, ok := params[key]; ok {
			return strings.ToLower(strings.TrimSpace(v))
		}
	}
	return ""
}

// attribute turns "[search][value]" or ".search.value" into "search.value".
func attribute(rest string) string {
	return strings.TrimPrefix(attrReplacer.Replace(rest), ".")
}

func normalizeColumn(data string) string {
	return strings.ReplaceAll(data, ".0.", ".")
}
