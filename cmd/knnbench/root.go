package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/hupe1980/knn"
	"github.com/hupe1980/knn/prommetrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. Flag defaults come from cfg, so flags
// override environment values and parsed flags are written back into cfg.
func newRootCmd(cfg *Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "knnbench",
		Short: "Benchmark and verify brute-force k-nearest-neighbour search",
		Long: `knnbench compares the tiled parallel search engine against the
sequential reference on generated or stored point sets. It reports
timings and the fraction of neighbours both engines agree on.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ValidateConfig(cfg)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: json or text")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	pf.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address while running")

	rootCmd.AddCommand(newRunCmd(cfg))
	rootCmd.AddCommand(newGenCmd(cfg))
	return rootCmd
}

// startMetrics serves a private registry on addr and returns a collector
// recording into it. The returned stop function shuts the server down.
func startMetrics(addr string, logger *knn.Logger) (*prommetrics.Collector, func(), error) {
	reg := prometheus.NewRegistry()
	collector := prommetrics.New(reg)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return collector, stop, nil
}
