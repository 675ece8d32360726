package api

import (
	"context"
	"fmt"
	"regexp"

	"github.com/solatis/datagrid/internal/grid"
	"github.com/solatis/datagrid/internal/log"
	"google.golang.org/protobuf/types/known/structpb"
)

// Full method names of the grid service.
const (
	ServiceName       = "datagrid.v1.Datagrid"
	QueryMethod       = "/" + ServiceName + "/Query"
	InvalidateMethod  = "/" + ServiceName + "/Invalidate"
	CreateOrderMethod = "/" + ServiceName + "/CreateOrder"
)

// ScopeOrders names the order cache in Invalidate requests.
const ScopeOrders = "orders"

// GridService serves grid requests over orders.
// Thin orchestration layer delegating to the grid and the order store.
type GridService struct {
	grid   *grid.Datagrid
	store  *Store
	logger log.Logger
}

// NewGridService creates service instance with dependencies.
func NewGridService(g *grid.Datagrid, store *Store, logger log.Logger) (*GridService, error) {
	if g == nil {
		return nil, fmt.Errorf("grid cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &GridService{grid: g, store: store, logger: logger}, nil
}

// Query runs one grid request over the orders table.
func (s *GridService) Query(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := decodeQuery(req)
	if err != nil {
		return nil, toStatus(err)
	}

	q, err := s.store.Orders(in.Status)
	if err != nil {
		return nil, toStatus(err)
	}

	// Scope the cache entry to the method and status filter
	in.Parameters[grid.ParamURL] = QueryMethod
	if in.Status != "" {
		in.Parameters[grid.ParamQueryString] = "status=" + in.Status
	}

	var opts []grid.RequestOption
	if in.Refresh {
		opts = append(opts, grid.WithRefresh())
	}
	if in.RequestID != "" {
		opts = append(opts, grid.WithRequestID(in.RequestID))
	}

	result, err := grid.Process(ctx, s.grid, q, in.Parameters, opts...)
	if err != nil {
		s.logger.Warn("grid request failed", "err", err)
		return nil, toStatus(err)
	}
	out, err := encodeResult(result)
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

// Invalidate drops cached pages and reports how many were removed.
func (s *GridService) Invalidate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := decodeInvalidate(req)
	if err != nil {
		return nil, toStatus(err)
	}

	var removed int
	switch {
	case in.Scope != "":
		if in.Scope != ScopeOrders {
			return nil, toStatus(fmt.Errorf("%w: unknown scope %q", ErrInvalidRequest, in.Scope))
		}
		removed = grid.Invalidate[Order](ctx, s.grid)
	case in.Prefix != "":
		removed = s.grid.InvalidatePrefix(ctx, in.Prefix)
	default:
		re, err := regexp.Compile(in.Pattern)
		if err != nil {
			return nil, toStatus(fmt.Errorf("%w: pattern: %v", ErrInvalidRequest, err))
		}
		removed = s.grid.InvalidatePattern(ctx, re)
	}

	s.logger.Info("cache invalidated", "scope", in.Scope, "prefix", in.Prefix, "pattern", in.Pattern, "removed", removed)
	return structpb.NewStruct(map[string]interface{}{"removed": removed})
}

// CreateOrder inserts an order and drops the cached order pages.
func (s *GridService) CreateOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	o, err := decodeOrder(req)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.store.CreateOrder(ctx, o); err != nil {
		return nil, toStatus(err)
	}
	removed := grid.Invalidate[Order](ctx, s.grid)
	s.logger.Debug("order created", "id", o.ID, "invalidated", removed)

	return structpb.NewStruct(map[string]interface{}{"id": o.ID, "invalidated": removed})
}
