package server

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/solatis/datagrid/internal/core/api"
	"github.com/solatis/datagrid/internal/core/config"
	"github.com/solatis/datagrid/internal/log"
	"github.com/solatis/datagrid/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

// stubService echoes requests and fails on demand.
type stubService struct {
	fail  error
	delay time.Duration
}

func (s *stubService) Query(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, status.Error(codes.DeadlineExceeded, ctx.Err().Error())
		}
	}
	if s.fail != nil {
		return nil, s.fail
	}
	return structpb.NewStruct(map[string]interface{}{"echo": in.AsMap(), "method": "query"})
}

func (s *stubService) Invalidate(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{"removed": 3})
}

func (s *stubService) CreateOrder(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{"id": "o9"})
}

func startServer(t *testing.T, svc GridServer, cfg config.ServerConfig, logger log.Logger) *grpc.ClientConn {
	t.Helper()
	srv, err := NewGRPCServer(cfg, svc, logger)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	go srv.Serve(lis)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func testConfig() config.ServerConfig {
	return config.DefaultConfig().Server
}

func TestNewGRPCServerRequiresService(t *testing.T) {
	_, err := NewGRPCServer(testConfig(), nil, nil)
	assert.Error(t, err)
}

func TestServiceRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := NewClient(startServer(t, &stubService{}, testConfig(), nil))

	req, err := structpb.NewStruct(map[string]interface{}{"parameters": map[string]interface{}{"start": "0"}})
	require.NoError(t, err)

	res, err := client.Query(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "query", res.GetFields()["method"].GetStringValue())
	assert.Equal(t, "0", res.AsMap()["echo"].(map[string]interface{})["parameters"].(map[string]interface{})["start"])

	res, err = client.Invalidate(ctx, &structpb.Struct{})
	require.NoError(t, err)
	assert.Equal(t, float64(3), res.GetFields()["removed"].GetNumberValue())

	res, err = client.CreateOrder(ctx, &structpb.Struct{})
	require.NoError(t, err)
	assert.Equal(t, "o9", res.GetFields()["id"].GetStringValue())
}

func TestHealth(t *testing.T) {
	conn := startServer(t, &stubService{}, testConfig(), nil)
	health := grpc_health_v1.NewHealthClient(conn)

	for _, service := range []string{"", api.ServiceName} {
		resp, err := health.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus(), service)
	}
}

func TestErrorsAndMetrics(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := log.NewZapLogger(zap.New(core))

	svc := &stubService{fail: status.Error(codes.InvalidArgument, "unknown column")}
	client := NewClient(startServer(t, svc, testConfig(), logger))

	counter := metrics.RequestTotal.WithLabelValues(api.QueryMethod, codes.InvalidArgument.String())
	before := testutil.ToFloat64(counter)

	_, err := client.Query(ctx, &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, before+1, testutil.ToFloat64(counter))

	failed := logs.FilterMessage("rpc failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.WarnLevel, failed[0].Level)
	assert.Equal(t, api.QueryMethod, failed[0].ContextMap()["method"])

	_, err = client.Invalidate(ctx, &structpb.Struct{})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("rpc served").Len())
}

func TestRequestTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.RequestTimeout = 20 * time.Millisecond
	client := NewClient(startServer(t, &stubService{delay: time.Second}, cfg, nil))

	_, err := client.Query(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
}

func TestTimeoutInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: api.QueryMethod}

	t.Run("zero leaves context alone", func(t *testing.T) {
		_, err := TimeoutInterceptor(0)(context.Background(), nil, info, func(ctx context.Context, _ interface{}) (interface{}, error) {
			_, ok := ctx.Deadline()
			assert.False(t, ok)
			return nil, nil
		})
		require.NoError(t, err)
	})

	t.Run("earlier caller deadline wins", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		defer cancel()
		want, _ := ctx.Deadline()
		_, err := TimeoutInterceptor(time.Hour)(ctx, nil, info, func(ctx context.Context, _ interface{}) (interface{}, error) {
			got, ok := ctx.Deadline()
			assert.True(t, ok)
			assert.Equal(t, want, got)
			return nil, errors.New("done")
		})
		assert.EqualError(t, err, "done")
	})
}

func TestAddr(t *testing.T) {
	cfg := testConfig()
	cfg.Host, cfg.Port = "127.0.0.1", 6000
	srv, err := NewGRPCServer(cfg, &stubService{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6000", srv.Addr())
}
