package grid

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/solatis/datagrid/internal/cache"
	"github.com/solatis/datagrid/internal/log"
	"github.com/solatis/datagrid/internal/types"
)

func newGrid(t *testing.T, s Settings, configure ...func(*Container)) *Datagrid {
	t.Helper()
	g, err := New(s, configure...)
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	return g
}

func cachingSettings() Settings {
	s := DefaultSettings()
	s.CacheTimeout = cache.TimeoutNever
	return s
}

func TestProcess_SecondPageUnderDefaultOrder(t *testing.T) {
	ctx := context.Background()
	g := newGrid(t, DefaultSettings())

	res, err := Process(ctx, g, FromSlice(sequence(100)), dataTables([]string{"name"}, 10, 10, nil))
	require.NoError(t, err)

	assert.Equal(t, []int{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}, ids(res.Data, func(s sequenced) int { return s.ID }))
	assert.Equal(t, 100, res.RecordsTotal)
	assert.Equal(t, 100, res.RecordsFiltered)
	assert.False(t, res.Filtered)
	assert.False(t, res.Cache)
	assert.Equal(t, res.TotalCountTime+res.SelectCountTime+res.SelectTime, res.TotalTime())
}

func TestProcess_FilterSortPage(t *testing.T) {
	ctx := context.Background()
	g := newGrid(t, DefaultSettings())

	params := dataTables([]string{"name", "category", "price"}, 0, 2, map[string]string{
		"columns[1][search][value]": "TO",
		"order[0][column]":          "2",
		"order[0][dir]":             "asc",
	})
	res, err := Process(ctx, g, FromSlice(items()), params)
	require.NoError(t, err)

	// tools and toys, cheapest first
	assert.Equal(t, []int{2, 3}, itemIDs(res.Data))
	assert.Equal(t, 4, res.RecordsTotal)
	assert.Equal(t, 3, res.RecordsFiltered)
	assert.True(t, res.Filtered)
}

func TestProcess_FirstColumnFallback(t *testing.T) {
	ctx := context.Background()
	g := newGrid(t, DefaultSettings())

	res, err := Process(ctx, g, FromSlice(items()), dataTables([]string{"price"}, 0, -1, nil))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 2, 4}, itemIDs(res.Data))

	res, err = Process(ctx, g, FromOrderedSlice(items()), dataTables([]string{"price"}, 0, -1, nil))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, itemIDs(res.Data), "ordered sources keep their order")
}

func TestProcess_RequestOptions(t *testing.T) {
	ctx := context.Background()
	g := newGrid(t, DefaultSettings())

	params := dataTables([]string{"name"}, 0, -1, map[string]string{
		"order[0][column]": "0",
		"order[0][dir]":    "asc",
	})
	res, err := Process(ctx, g, FromSlice(items()), params,
		WithFilters(types.FilterSetting{Column: "category", Keyword: "to", Verb: "startswith"}),
		WithSorters(types.SortSetting{Column: "category", Direction: types.Desc}),
	)
	require.NoError(t, err)

	// toys before tools, then by name within tools (ordinal)
	assert.Equal(t, []int{2, 1, 3}, itemIDs(res.Data))
	assert.True(t, res.Filtered)
}

func TestProcess_CacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	g := newGrid(t, cachingSettings())
	q, loads := countingSlice(items())
	params := dataTables([]string{"name"}, 0, 2, map[string]string{"search[value]": "a"})

	first, err := Process(ctx, g, q, params)
	require.NoError(t, err)
	assert.False(t, first.Cache)

	second, err := Process(ctx, g, q, params)
	require.NoError(t, err)
	assert.True(t, second.Cache)
	assert.Equal(t, itemIDs(first.Data), itemIDs(second.Data))
	assert.Equal(t, first.RecordsTotal, second.RecordsTotal)
	assert.Equal(t, first.RecordsFiltered, second.RecordsFiltered)
	assert.Equal(t, first.Filtered, second.Filtered)
	assert.Equal(t, first.SelectTime, second.SelectTime)
	assert.Equal(t, 1, *loads)

	refreshed, err := Process(ctx, g, FromSlice(items()), params, WithRefresh())
	require.NoError(t, err)
	assert.False(t, refreshed.Cache)

	other := dataTables([]string{"name"}, 2, 2, map[string]string{"search[value]": "a"})
	paged, err := Process(ctx, g, q, other)
	require.NoError(t, err)
	assert.False(t, paged.Cache, "a different page is a different fingerprint")
}

func TestProcess_CacheDisabledByDefault(t *testing.T) {
	ctx := context.Background()
	g := newGrid(t, DefaultSettings())
	q, loads := countingSlice(items())
	params := dataTables([]string{"name"}, 0, 10, nil)

	for range 2 {
		res, err := Process(ctx, g, q, params)
		require.NoError(t, err)
		assert.False(t, res.Cache)
	}
	assert.Equal(t, 1, *loads, "the source is shared, the pipeline runs twice")
}

func TestProcess_TypeCachePolicy(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(0)
	g := newGrid(t, DefaultSettings(), func(c *Container) { Use[cache.Store](c, store) })

	records := []pinned{{ID: 1, Name: "one"}, {ID: 2, Name: "two"}}
	params := dataTables([]string{"id"}, 0, 10, nil)

	_, err := Process(ctx, g, FromSlice(records), params)
	require.NoError(t, err)
	res, err := Process(ctx, g, FromSlice(records), params)
	require.NoError(t, err)
	assert.True(t, res.Cache, "type policy overrides the disabled default")

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Regexp(t, `^Pinned#.*grid\.pinned#`, keys[0])

	assert.Equal(t, 0, g.InvalidateType(ctx, reflect.TypeFor[pinned](), ""), "default prefix does not match")
	assert.Equal(t, 1, Invalidate[pinned](ctx, g))
}

func TestDatagrid_Invalidation(t *testing.T) {
	ctx := context.Background()
	g := newGrid(t, cachingSettings())

	with := func(url string) map[string]string {
		return dataTables([]string{"name"}, 0, 10, map[string]string{ParamURL: url})
	}
	for _, url := range []string{"/a", "/b"} {
		_, err := Process(ctx, g, FromSlice(items()), with(url))
		require.NoError(t, err)
		_, err = Process(ctx, g, FromSlice(sequence(5)), with(url))
		require.NoError(t, err)
	}

	assert.Equal(t, 2, g.InvalidateType(ctx, reflect.TypeFor[item](), ""))
	assert.Equal(t, 0, g.InvalidateType(ctx, reflect.TypeFor[item](), ""))
	assert.Equal(t, 1, g.InvalidatePrefix(ctx, "#/a#"))
	assert.Equal(t, 1, g.InvalidatePattern(ctx, regexp.MustCompile(`grid\.sequenced#`)))
	assert.Equal(t, 0, g.InvalidatePrefix(ctx, "Datagrid"))
}

func TestProcess_CompileErrorsReadNothing(t *testing.T) {
	ctx := context.Background()
	g := newGrid(t, DefaultSettings())

	tests := []struct {
		name   string
		opts   []RequestOption
		target error
	}{
		{name: "unknown filter column", opts: []RequestOption{
			WithFilters(types.FilterSetting{Column: "weight", Keyword: "1", Verb: "contains"}),
		}, target: types.ErrUnknownColumn},
		{name: "unknown verb", opts: []RequestOption{
			WithFilters(types.FilterSetting{Column: "name", Keyword: "1", Verb: "like"}),
		}, target: types.ErrUnsupportedCompareVerb},
		{name: "unknown sort column", opts: []RequestOption{
			WithSorters(types.SortSetting{Column: "weight"}),
		}, target: types.ErrUnknownColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, loads := countingSlice(items())
			_, err := Process(ctx, g, q, nil, tt.opts...)
			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, 0, *loads)
		})
	}
}

func TestProcess_SourceErrorPropagates(t *testing.T) {
	ctx := context.Background()
	g := newGrid(t, cachingSettings())
	boom := errors.New("connection reset")

	_, err := Process(ctx, g, failingQuery[item](boom), dataTables([]string{"name"}, 0, 10, nil))
	assert.ErrorIs(t, err, boom)

	// failures are not cached
	res, err := Process(ctx, g, FromSlice(items()), dataTables([]string{"name"}, 0, 10, nil))
	require.NoError(t, err)
	assert.False(t, res.Cache)
}

func TestProcess_Boundary(t *testing.T) {
	ctx := context.Background()
	b := &recordingBoundary{}
	g := newGrid(t, cachingSettings(), func(c *Container) { Use[Boundary](c, b) })
	params := dataTables([]string{"name"}, 0, 10, nil)

	_, err := Process(ctx, g, FromSlice(items()), params)
	require.NoError(t, err)
	_, err = Process(ctx, g, FromSlice(items()), params)
	require.NoError(t, err)

	assert.Equal(t, 1, b.calls, "cache hits skip the boundary")
	assert.Equal(t, sql.LevelReadUncommitted, b.isolation)
}

func TestProcess_Concurrent(t *testing.T) {
	ctx := context.Background()
	g := newGrid(t, cachingSettings())
	records := sequence(50)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := range 40 {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			res, err := Process(ctx, g, FromSlice(records), dataTables([]string{"name"}, page*10, 10, nil))
			if err != nil {
				errs <- err
				return
			}
			if len(res.Data) != 10 || res.Data[0].ID != page*10 {
				errs <- errors.New("wrong page")
			}
		}(i % 5)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestProcessSettings(t *testing.T) {
	ctx := context.Background()
	g := newGrid(t, DefaultSettings())
	ps := types.NewParameterSettings(nil, []string{"id"}, nil, []types.SortSetting{{Column: "price", Direction: types.Desc}}, 1, 1, false)

	res, err := ProcessSettings(ctx, g, FromSlice(items()), ps)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, itemIDs(res.Data))
}

func TestDefault(t *testing.T) {
	a := Default()
	b := Default()
	require.NotNil(t, a)
	assert.Same(t, a, b)
	assert.Equal(t, cache.TimeoutDisabled, a.Settings().CacheTimeout)
}

// account has fields JSON does not carry.
type account struct {
	Name   string `json:"name"`
	Secret string `json:"-"`
	hidden int
}

// byteStore exposes only the byte interface of the store it wraps.
type byteStore struct{ cache.Store }

func TestProcess_CacheHitMatchesFreshRun(t *testing.T) {
	ctx := context.Background()
	g := newGrid(t, cachingSettings())
	records := []account{{Name: "a", Secret: "s1", hidden: 7}, {Name: "b", Secret: "s2", hidden: 8}}
	params := dataTables([]string{"name"}, 0, 10, nil)

	first, err := Process(ctx, g, FromSlice(records), params)
	require.NoError(t, err)
	require.False(t, first.Cache)

	second, err := Process(ctx, g, FromSlice(records), params)
	require.NoError(t, err)
	require.True(t, second.Cache)
	require.Equal(t, first.Data, second.Data)

	second.Data[0].Secret = "changed"
	second.Data = append(second.Data[:0], account{Name: "z"})
	third, err := Process(ctx, g, FromSlice(records), params)
	require.NoError(t, err)
	assert.True(t, third.Cache)
	assert.Equal(t, first.Data, third.Data, "callers cannot reach the cached page")

	want := first.Data[1].hidden
	first.Data[1].hidden = 99
	fourth, err := Process(ctx, g, FromSlice(records), params)
	require.NoError(t, err)
	assert.Equal(t, want, fourth.Data[1].hidden)
}

func TestProcess_ByteStoreSkipsLossyTypes(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(0)
	g := newGrid(t, cachingSettings(), func(c *Container) { Use[cache.Store](c, byteStore{store}) })
	params := dataTables([]string{"name"}, 0, 10, nil)

	records := []account{{Name: "a", Secret: "s1", hidden: 7}}
	for range 2 {
		res, err := Process(ctx, g, FromSlice(records), params)
		require.NoError(t, err)
		assert.False(t, res.Cache)
		assert.Equal(t, records, res.Data)
	}
	assert.Equal(t, 0, store.Len(), "lossy record types are never serialized")

	_, err := Process(ctx, g, FromSlice(items()), params)
	require.NoError(t, err)
	res, err := Process(ctx, g, FromSlice(items()), params)
	require.NoError(t, err)
	assert.True(t, res.Cache)
	assert.Equal(t, 1, store.Len())
}

func TestEncodable(t *testing.T) {
	type nested struct {
		Accounts []account
	}
	type withInterface struct {
		Value any
	}
	type withMap struct {
		ByName map[string]*item
	}
	type node struct {
		Name     string
		Children []node
	}

	tests := []struct {
		typ  reflect.Type
		want bool
	}{
		{reflect.TypeFor[item](), true},
		{reflect.TypeFor[sequenced](), true},
		{reflect.TypeFor[withMap](), true},
		{reflect.TypeFor[node](), true},
		{reflect.TypeFor[sql.NullString](), true},
		{reflect.TypeFor[account](), false},
		{reflect.TypeFor[nested](), false},
		{reflect.TypeFor[withInterface](), false},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, encodable(tt.typ))
		})
	}
}

func TestProcess_RequestID(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)
	s := DefaultSettings()
	s.Logger = log.NewZapLogger(zap.New(core))
	g := newGrid(t, s)
	params := dataTables([]string{"name"}, 0, 10, nil)

	id := types.NewRequestID()
	_, err := Process(ctx, g, FromSlice(items()), params, WithRequestID(id))
	require.NoError(t, err)
	_, err = Process(ctx, g, FromSlice(items()), params)
	require.NoError(t, err)

	served := logs.FilterMessage("grid request served").All()
	require.Len(t, served, 2)
	first, second := served[0].ContextMap(), served[1].ContextMap()
	assert.Equal(t, string(id), first["request_id"])
	assert.Contains(t, first, "since_issued")
	assert.NotEmpty(t, second["request_id"])
	assert.NotEqual(t, string(id), second["request_id"])

	logs.TakeAll()
	_, err = Process(ctx, g, FromSlice(items()), params, WithRequestID("f47ac10b-58cc-4372-a567-0e02b2c3d479"))
	require.NoError(t, err)
	served = logs.FilterMessage("grid request served").All()
	require.Len(t, served, 1)
	assert.NotContains(t, served[0].ContextMap(), "since_issued", "only v7 ids carry an issue time")
}
