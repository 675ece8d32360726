// internal/core/server/service.go
package server

import (
	"context"

	"github.com/solatis/datagrid/internal/core/api"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

/*
 * Service wiring for datagrid.v1.Datagrid.
 *
 * The service has no generated stubs: every method takes and returns a
 * google.protobuf.Struct, so the descriptor below is written by hand in the
 * shape protoc-gen-go-grpc would emit. The equivalent proto is:
 *
 *   service Datagrid {
 *     rpc Query(google.protobuf.Struct) returns (google.protobuf.Struct);
 *     rpc Invalidate(google.protobuf.Struct) returns (google.protobuf.Struct);
 *     rpc CreateOrder(google.protobuf.Struct) returns (google.protobuf.Struct);
 *   }
 */

// GridServer is the server API for the grid service.
type GridServer interface {
	Query(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Invalidate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var _ GridServer = (*api.GridService)(nil)

// RegisterGridServer registers srv on s.
func RegisterGridServer(s grpc.ServiceRegistrar, srv GridServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type method func(GridServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call method) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(GridServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(GridServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc is the grpc.ServiceDesc for the grid service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: api.ServiceName,
	HandlerType: (*GridServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Query", Handler: unaryHandler(api.QueryMethod, GridServer.Query)},
		{MethodName: "Invalidate", Handler: unaryHandler(api.InvalidateMethod, GridServer.Invalidate)},
		{MethodName: "CreateOrder", Handler: unaryHandler(api.CreateOrderMethod, GridServer.CreateOrder)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "datagrid/v1/datagrid.proto",
}

// Client calls the grid service over conn.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) Query(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, api.QueryMethod, in, opts...)
}

func (c *Client) Invalidate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, api.InvalidateMethod, in, opts...)
}

func (c *Client) CreateOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, api.CreateOrderMethod, in, opts...)
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
