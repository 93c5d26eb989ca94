package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/vessel-track-simulator/internal/httpapi"
	"github.com/signalsfoundry/vessel-track-simulator/internal/logging"
	"github.com/signalsfoundry/vessel-track-simulator/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func (a *cli) serveCmd() *cobra.Command {
	var (
		addr           string
		requestTimeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scenario API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.HTTPAddr = addr
			}
			ln, err := net.Listen("tcp", a.cfg.HTTPAddr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", a.cfg.HTTPAddr, err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, ln, requestTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides TRACKGEN_HTTP_ADDR)")
	cmd.Flags().DurationVar(&requestTimeout, "request-timeout", 30*time.Second, "upper bound on one generation request")
	return cmd
}

// serve runs the HTTP API on ln until ctx is done, then drains in-flight
// requests.
func (a *cli) serve(ctx context.Context, ln net.Listener, requestTimeout time.Duration) error {
	shutdownTracing, err := observability.InitTracing(ctx, a.cfg.Tracing, a.log)
	if err != nil {
		ln.Close()
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, a.log)

	metrics, err := observability.NewGeneratorCollector(prometheus.NewRegistry())
	if err != nil {
		ln.Close()
		return err
	}
	srv := httpapi.New(a.engine(metrics), a.locations, httpapi.Options{
		Logger:                a.log,
		Metrics:               metrics,
		DefaultReportInterval: a.cfg.DefaultReportInterval,
		RequestTimeout:        requestTimeout,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	a.log.Info(ctx, "scenario api ready",
		logging.String("addr", ln.Addr().String()),
		logging.Int("locations", a.locations.Len()),
		logging.Int("max_vessels", a.cfg.Limits.MaxVessels),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info(context.Background(), "shutting down scenario api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-errCh
}
