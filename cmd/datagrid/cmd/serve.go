package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/solatis/datagrid/internal/core/server"
	"github.com/solatis/datagrid/internal/metrics"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC grid service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50061, "gRPC server port")
	serveCmd.Flags().Int("metrics-port", 9090, "Prometheus /metrics port (0 disables)")
	serveCmd.Flags().String("cache-backend", "memory", "result cache backend (memory, redis)")
	serveCmd.Flags().String("redis-addr", "localhost:6379", "redis address for the redis cache backend")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

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

	grpcServer, err := server.NewGRPCServer(a.cfg.Server, svc, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	var metricsServer *http.Server
	if a.cfg.Server.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{
			Addr:              net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.MetricsPort)),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	a.logger.Info("starting datagrid service", "version", Version, "addr", grpcServer.Addr(), "metrics_port", a.cfg.Server.MetricsPort)
	errChan := make(chan error, 2)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()
	if metricsServer != nil {
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		a.logger.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
		defer cancel()
		if metricsServer != nil {
			metricsServer.Shutdown(shutdownCtx)
		}
		return grpcServer.Shutdown(shutdownCtx)
	}
}
