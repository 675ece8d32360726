package grid

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/datagrid/internal/expr"
)

func TestQuery_Operations(t *testing.T) {
	ctx := context.Background()
	records := items()
	q := FromSlice(records)
	assert.False(t, q.Ordered())

	cheap := q.Filter(func(i item) bool { return i.Price < 8 })
	n, err := cheap.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	byName, err := expr.CompileKey[item]("name")
	require.NoError(t, err)
	sorted := cheap.Sort(byName)
	assert.True(t, sorted.Ordered())
	assert.False(t, cheap.Ordered(), "Sort must not change the parent query")

	page, err := sorted.Slice(1, 1).Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, itemIDs(page)) // ordinal order: Gamma, beta, delta

	all, err := q.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, itemIDs(all), "source order is preserved")
	assert.Equal(t, "Alpha", records[0].Name)
}

func TestQuery_Slice(t *testing.T) {
	ctx := context.Background()
	q := FromSlice(items())

	tests := []struct {
		name       string
		skip, take int
		expected   []int
	}{
		{name: "first page", skip: 0, take: 2, expected: []int{1, 2}},
		{name: "last partial page", skip: 3, take: 2, expected: []int{4}},
		{name: "past the end", skip: 10, take: 2, expected: []int{}},
		{name: "take all", skip: 1, take: -1, expected: []int{2, 3, 4}},
		{name: "negative skip", skip: -5, take: 1, expected: []int{1}},
		{name: "zero take", skip: 0, take: 0, expected: []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := q.Slice(tt.skip, tt.take).Fetch(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, itemIDs(got))
		})
	}
}

func TestQuery_LoadsOnce(t *testing.T) {
	ctx := context.Background()
	q, loads := countingSlice(items())

	filtered := q.Filter(func(i item) bool { return i.ID > 1 })
	_, err := q.Count(ctx)
	require.NoError(t, err)
	_, err = filtered.Count(ctx)
	require.NoError(t, err)
	_, err = filtered.Slice(0, 1).Fetch(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, *loads)
}

func TestQuery_Counter(t *testing.T) {
	ctx := context.Background()
	loads := 0
	q := NewQuery(func(context.Context) ([]item, error) {
		loads++
		return items(), nil
	}, func(context.Context) (int, error) { return 1000, nil }, true)

	n, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1000, n, "untouched source counts through the counter")
	assert.Equal(t, 0, loads)
	assert.True(t, q.Ordered())

	n, err = q.Filter(func(item) bool { return true }).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 1, loads)
}

func TestQuery_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	q := failingQuery[item](boom)

	_, err := q.Count(ctx)
	assert.ErrorIs(t, err, boom)
	_, err = q.Slice(0, 1).Fetch(ctx)
	assert.ErrorIs(t, err, boom)
}
