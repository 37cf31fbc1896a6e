package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/logger"
	"github.com/sentrysoftware/metricshub-sub023/internal/metrics"
	"github.com/sentrysoftware/metricshub-sub023/internal/pid"
	"github.com/sentrysoftware/metricshub-sub023/internal/strategy"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newRunCmd() *cobra.Command {
	var pidDir string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Collect from every configured host until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, pidDir)
		},
	}
	cmd.Flags().StringVar(&pidDir, "pid-dir", "", "Directory of the PID file (default temp dir)")

	return cmd
}

func run(cmd *cobra.Command, pidDir string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	pidFile := pid.New(pidDir, pid.DefaultName)
	if err := pidFile.Write(); err != nil {
		return err
	}
	defer func() {
		if err := pidFile.Remove(); err != nil {
			logger.Error().Err(err).Msg("Failed to remove PID file")
		}
	}()

	a, err := newAgent(cfg)
	if err != nil {
		return err
	}

	snapshots, err := metrics.NewService(metrics.Config{
		DBPath:       cfg.Snapshot.Database,
		BatchSize:    cfg.Snapshot.BatchSize,
		BatchTimeout: cfg.Snapshot.BatchTimeout,
		Enabled:      cfg.Snapshot.Enabled,
	}, logger.New("metrics"))
	if err != nil {
		return err
	}
	defer func() {
		if err := snapshots.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close snapshot storage")
		}
	}()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go handleSignals(ctx, cancel)

	if cfg.MetricsListen != "" {
		srv := serveMetrics(cfg.MetricsListen, a)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info().
		Int("hosts", len(a.hosts)).
		Int("interval", cfg.Interval).
		Int("discovery_cycle", cfg.DiscoveryCycle).
		Msg("Collector started")

	if err := a.scheduler(strategy.WithSnapshotRecorder(snapshots)).Run(ctx); err != nil {
		return errors.New().Wrap(errors.ErrMainLoop, err)
	}
	logger.Info().Msg("Exiting...")

	return nil
}

func serveMetrics(addr string, a *agent) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", addr).Msg("Serving self-metrics")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Self-metrics endpoint stopped")
		}
	}()

	return srv
}

func handleSignals(ctx context.Context, cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
		logger.Info().Msg("Received termination signal.")
		cancel()
	case <-ctx.Done():
	}
}
