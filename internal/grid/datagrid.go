// internal/grid/datagrid.go
package grid

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"time"

	"github.com/solatis/datagrid/internal/cache"
	"github.com/solatis/datagrid/internal/expr"
	"github.com/solatis/datagrid/internal/log"
	"github.com/solatis/datagrid/internal/metrics"
	"github.com/solatis/datagrid/internal/types"
)

/*
 * Request orchestration.
 *
 * Process runs one grid request:
 *
 *   parse -> compile -> cache lookup -> hit: return cached result
 *                                    -> miss: boundary {
 *                                         count source
 *                                         filter, count filtered
 *                                         sort, page, fetch
 *                                       } -> cache store -> return
 *
 * Filters and sorters compile before anything is read, so unknown columns
 * and verbs fail without touching the source. A refresh request skips the
 * lookup but still stores its result.
 *
 * The miss path runs inside the Boundary so every read of a request sees
 * one consistent snapshot at the configured isolation level.
 *
 * A Datagrid holds no per-request state and serves concurrent requests.
 * Two requests missing on the same fingerprint both compute; the last
 * store wins.
 */

// Boundary runs the read phase of a request in a transactional scope.
type Boundary interface {
	Run(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context) error) error
}

// NopBoundary runs fn without any transaction, for in-memory sources.
type NopBoundary struct{}

func (NopBoundary) Run(ctx context.Context, _ sql.IsolationLevel, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Datagrid is a configured request pipeline.
type Datagrid struct {
	settings Settings
	params   ParameterParser
	filters  *FilterManager
	sorters  *SorterManager
	boundary Boundary
	cache    *cache.ResultCache
	logger   log.Logger
}

// New builds a Datagrid. configure may replace providers on the container
// before capabilities are resolved.
func New(settings Settings, configure ...func(*Container)) (*Datagrid, error) {
	c := NewContainer(settings)
	for _, fn := range configure {
		fn(c)
	}
	return FromContainer(c)
}

// FromContainer resolves every capability of c.
func FromContainer(c *Container) (*Datagrid, error) {
	g := &Datagrid{settings: c.Settings()}

	var err error
	if g.params, err = Resolve[ParameterParser](c); err != nil {
		return nil, err
	}
	if g.filters, err = Resolve[*FilterManager](c); err != nil {
		return nil, err
	}
	if g.sorters, err = Resolve[*SorterManager](c); err != nil {
		return nil, err
	}
	if g.boundary, err = Resolve[Boundary](c); err != nil {
		return nil, err
	}
	if g.logger, err = Resolve[log.Logger](c); err != nil {
		return nil, err
	}
	store, err := Resolve[cache.Store](c)
	if err != nil {
		return nil, err
	}
	g.cache = cache.NewResultCache(store, g.logger)
	return g, nil
}

// Settings returns the settings the grid runs with.
func (g *Datagrid) Settings() Settings {
	return g.settings
}

// Verbs returns the compare verb registry.
func (g *Datagrid) Verbs() *expr.Verbs {
	return g.filters.Verbs()
}

// Close releases the cache store.
func (g *Datagrid) Close() error {
	return g.cache.Close()
}

// RequestOption adjusts a single request.
type RequestOption func(*request)

type request struct {
	filters []types.FilterSetting
	sorters []types.SortSetting
	refresh bool
	id      types.RequestID
}

// WithFilters places filters ahead of the parsed ones.
func WithFilters(filters ...types.FilterSetting) RequestOption {
	return func(r *request) { r.filters = append(r.filters, filters...) }
}

// WithSorters places sorters ahead of the parsed ones.
func WithSorters(sorters ...types.SortSetting) RequestOption {
	return func(r *request) { r.sorters = append(r.sorters, sorters...) }
}

// WithRefresh bypasses the cache lookup.
func WithRefresh() RequestOption {
	return func(r *request) { r.refresh = true }
}

// WithRequestID tags the request's log lines with a caller-issued id
// instead of a fresh one.
func WithRequestID(id types.RequestID) RequestOption {
	return func(r *request) { r.id = id }
}

// Process runs one request over q.
func Process[T any](ctx context.Context, g *Datagrid, q Query[T], params map[string]string, opts ...RequestOption) (*Result[T], error) {
	var req request
	for _, opt := range opts {
		opt(&req)
	}

	ps := g.params.Parse(params)
	ps.Filters = append(slices.Clone(req.filters), ps.Filters...)
	ps.Sorters = append(slices.Clone(req.sorters), ps.Sorters...)
	ps.Refresh = ps.Refresh || req.refresh

	return run(ctx, g, q, ps, req.id)
}

// ProcessSettings runs a request whose parameters are already normalized.
func ProcessSettings[T any](ctx context.Context, g *Datagrid, q Query[T], ps *types.ParameterSettings) (*Result[T], error) {
	return run(ctx, g, q, ps, "")
}

func run[T any](ctx context.Context, g *Datagrid, q Query[T], ps *types.ParameterSettings, id types.RequestID) (*Result[T], error) {
	if id == "" {
		id = types.NewRequestID()
	}
	typ := reflect.TypeFor[T]()
	typeLabel := typ.String()
	logger := g.logger.With("request_id", string(id), "record_type", typeLabel)

	pred, err := Compose[T](g.filters, ps.Filters)
	if err != nil {
		return nil, err
	}
	var order expr.Comparator[T]
	if sorters := Effective(g.sorters, q, ps.Sorters, ps.Columns); len(sorters) > 0 {
		if order, err = expr.CompileComparator[T](sorters); err != nil {
			return nil, err
		}
	}

	policy := cacheOptionsFor[T](g.settings)
	key := Fingerprint(policy.KeyPrefix, expr.TypeName(typ), ps)

	if ps.Refresh {
		metrics.CacheLookups.WithLabelValues("bypass").Inc()
	} else if res, ok := lookupResult[T](ctx, g, key, logger); ok {
		return res, nil
	}

	res := &Result[T]{Filtered: ps.Filtered()}
	err = g.boundary.Run(ctx, g.settings.Isolation, func(ctx context.Context) error {
		start := time.Now()
		total, err := q.Count(ctx)
		if err != nil {
			return fmt.Errorf("count records: %w", err)
		}
		res.RecordsTotal = total
		res.TotalCountTime = time.Since(start)

		start = time.Now()
		view := q
		if pred != nil {
			view = q.Filter(pred)
			if res.RecordsFiltered, err = view.Count(ctx); err != nil {
				return fmt.Errorf("count filtered records: %w", err)
			}
		} else {
			res.RecordsFiltered = total
		}
		res.SelectCountTime = time.Since(start)

		start = time.Now()
		if order != nil {
			view = view.Sort(order)
		}
		if ps.Paged() {
			view = view.Slice(ps.Skip(), ps.PageSize)
		}
		if res.Data, err = view.Fetch(ctx); err != nil {
			return fmt.Errorf("fetch records: %w", err)
		}
		res.SelectTime = time.Since(start)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.PhaseDuration.WithLabelValues(typeLabel, "total_count").Observe(res.TotalCountTime.Seconds())
	metrics.PhaseDuration.WithLabelValues(typeLabel, "filter_count").Observe(res.SelectCountTime.Seconds())
	metrics.PhaseDuration.WithLabelValues(typeLabel, "select").Observe(res.SelectTime.Seconds())
	fields := []interface{}{
		"total", res.RecordsTotal,
		"filtered", res.RecordsFiltered,
		"returned", len(res.Data),
		"total_time", res.TotalTime(),
	}
	if issued := types.RequestIDTime(id); !issued.IsZero() {
		fields = append(fields, "since_issued", time.Since(issued))
	}
	logger.Debug("grid request served", fields...)

	storeResult(ctx, g, key, res, policy.TimeoutSeconds, logger)
	return res, nil
}

// lookupResult reads a cached result. In-process stores hand back the
// stored value; other stores go through the JSON envelope.
func lookupResult[T any](ctx context.Context, g *Datagrid, key string, logger log.Logger) (*Result[T], bool) {
	if g.cache.HoldsObjects() {
		v, ok := g.cache.GetObject(ctx, key)
		if !ok {
			return nil, false
		}
		res, ok := v.(*Result[T])
		if !ok {
			logger.Warn("cached result has another record type, recomputing", "cached", fmt.Sprintf("%T", v))
			return nil, false
		}
		return res.cached(), true
	}

	data, ok := g.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	res, err := decodeResult[T](data)
	if err != nil {
		logger.Warn("cached result unreadable, recomputing", "err", err)
		return nil, false
	}
	return res, true
}

func storeResult[T any](ctx context.Context, g *Datagrid, key string, res *Result[T], timeoutSeconds int, logger log.Logger) {
	switch {
	case timeoutSeconds == cache.TimeoutDisabled:
		g.cache.Put(ctx, key, nil, timeoutSeconds)
	case g.cache.HoldsObjects():
		g.cache.PutObject(ctx, key, res.clone(), timeoutSeconds)
	case !encodable(reflect.TypeFor[T]()):
		logger.Debug("record type does not survive serialization, result not cached")
	default:
		data, err := encodeResult(res)
		if err != nil {
			logger.Warn("result not cacheable", "err", err)
			return
		}
		g.cache.Put(ctx, key, data, timeoutSeconds)
	}
}

// InvalidateType removes every cached result for record type typ stored
// under prefix. An empty prefix means the grid's configured prefix.
func (g *Datagrid) InvalidateType(ctx context.Context, typ reflect.Type, prefix string) int {
	if prefix == "" {
		prefix = g.settings.CacheKeyPrefix
	}
	return g.cache.InvalidatePattern(ctx, typePattern(prefix, expr.TypeName(typ)))
}

// Invalidate removes every cached result for T under T's own cache prefix.
func Invalidate[T any](ctx context.Context, g *Datagrid) int {
	policy := cacheOptionsFor[T](g.settings)
	return g.InvalidateType(ctx, reflect.TypeFor[T](), policy.KeyPrefix)
}

// InvalidatePrefix removes every cached result whose key contains prefix.
func (g *Datagrid) InvalidatePrefix(ctx context.Context, prefix string) int {
	return g.cache.InvalidateContaining(ctx, prefix)
}

// InvalidatePattern removes every cached result whose key matches re.
func (g *Datagrid) InvalidatePattern(ctx context.Context, re *regexp.Regexp) int {
	return g.cache.InvalidatePattern(ctx, re)
}
