package main

import (
	"io"
	"os"
	"time"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/logger"
	"github.com/sentrysoftware/metricshub-sub023/internal/telemetry"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newCollectCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run one discovery and one collect on every host and print the snapshots as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := newAgent(cfg)
			if err != nil {
				return err
			}

			snapshots := collectOnce(cmd, a)

			out := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return errors.New().Wrap(errors.ErrOperationFailed, err)
				}
				defer f.Close()
				out = f
			}

			return writeSnapshots(out, snapshots)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file, - for stdout")

	return cmd
}

// collectOnce runs a discovery cycle on every host. A failing host still
// contributes what it collected before the failure.
func collectOnce(cmd *cobra.Command, a *agent) []telemetry.Snapshot {
	s := a.scheduler()

	snapshots := make([]telemetry.Snapshot, 0, len(a.hosts))
	for _, h := range a.hosts {
		if err := s.Cycle(cmd.Context(), h, true); err != nil {
			log := logger.New("collect").With("host", h.Host.Hostname)
			if coded, ok := err.(errors.Error); ok {
				log.ErrorWithCode(coded).Msg("Collect failed")
			} else {
				log.Error().Err(err).Msg("Collect failed")
			}
		}
		snapshots = append(snapshots, h.Store.Snapshot(time.Now()))
	}

	return snapshots
}

func writeSnapshots(w io.Writer, snapshots []telemetry.Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snapshots); err != nil {
		return errors.New().Wrap(errors.ErrOperationFailed, err)
	}

	return enc.Close()
}
