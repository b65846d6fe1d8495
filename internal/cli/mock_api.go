package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"ochotona/internal/config"
	"ochotona/internal/infrastructure/http/fakeapi"
)

const shutdownTimeout = 10 * time.Second

func newMockAPICommand(a *app) *cobra.Command {
	var (
		addr string
		seed bool
	)
	cmd := &cobra.Command{
		Use:   "mock-api",
		Short: "Serve an in-memory inventory backend under /api",
		Long: `Serve products, storages, storage-rooms and stock-positions from memory.

Responses are gzip-compressed when the client accepts it. Prometheus metrics are
exposed on /metrics and liveness on /health/live.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = a.cfg.MockAddr
			}
			if !a.cfg.IsDevelopment() {
				gin.SetMode(gin.ReleaseMode)
			}

			registry := fakeapi.NewInventoryRegistry()
			if seed {
				if err := fakeapi.SeedDemo(registry); err != nil {
					return err
				}
			}

			_ = a.registry.Register(collectors.NewGoCollector())
			router, err := fakeapi.NewRouter(fakeapi.Config{
				Registry: registry,
				Logger:   a.log,
				Gatherer: a.registry,
			})
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           gzhttp.GzipHandler(router),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return serve(cmd.Context(), a, srv)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", config.DefaultMockAddr, "Listen address")
	cmd.Flags().BoolVar(&seed, "seed", false, "Start with demo records")
	return cmd
}

// serve runs srv until ctx ends or an interrupt arrives, then shuts it down gracefully.
func serve(ctx context.Context, a *app, srv *http.Server) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.log.Infow("mock api listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down mock api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
