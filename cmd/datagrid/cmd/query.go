package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/solatis/datagrid/internal/core/server"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run one grid request over the orders table and print the result",
	Example: `  datagrid query --db-url sqlite://grid.db \
    --param 'columns[0][data]=customer' --param 'columns[0][searchable]=true' \
    --param 'columns[0][search][value]=ali' --param start=0 --param length=10`,
	RunE: runQuery,
}

var (
	queryParams  []string
	queryStatus  string
	queryRefresh bool
	queryServer  string
)

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringArrayVar(&queryParams, "param", nil, "grid parameter as key=value (repeatable)")
	queryCmd.Flags().StringVar(&queryStatus, "status", "", "only orders in this status")
	queryCmd.Flags().BoolVar(&queryRefresh, "refresh", false, "bypass the result cache")
	queryCmd.Flags().StringVar(&queryServer, "server", "", "send the request to a running service at host:port instead of the database")
}

// queryFunc is satisfied by both the in-process service and the gRPC client.
type queryFunc func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	req, err := buildQueryRequest(queryParams, queryStatus, queryRefresh)
	if err != nil {
		return err
	}

	var call queryFunc
	if queryServer != "" {
		conn, err := grpc.NewClient(queryServer, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", queryServer, err)
		}
		defer conn.Close()
		client := server.NewClient(conn)
		call = func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
			return client.Query(ctx, req)
		}
	} else {
		a, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		svc, g, err := a.newGridService(ctx)
		if err != nil {
			return err
		}
		defer g.Close()
		call = svc.Query
	}

	res, err := call(ctx, req)
	if err != nil {
		return err
	}
	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(res)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// buildQueryRequest turns key=value pairs into a Query request message.
func buildQueryRequest(pairs []string, status string, refresh bool) (*structpb.Struct, error) {
	params := map[string]interface{}{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --param %q: expected key=value", p)
		}
		params[strings.TrimSpace(k)] = v
	}
	fields := map[string]interface{}{"parameters": params}
	if status != "" {
		fields["status"] = status
	}
	if refresh {
		fields["refresh"] = true
	}
	return structpb.NewStruct(fields)
}
