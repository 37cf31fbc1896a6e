// Command metricshub discovers the hardware of the configured hosts and
// collects its telemetry.
package main

import (
	"fmt"
	"os"

	"github.com/sentrysoftware/metricshub-sub023/internal/config"
	"github.com/sentrysoftware/metricshub-sub023/internal/logger"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "metricshub",
		Short:         "Hardware telemetry collector",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(root.PersistentFlags())
	root.AddCommand(newRunCmd(), newCollectCmd(), newVersionCmd())

	return root
}

// loadConfig reads the configuration with the command flags on top, then
// sets up logging
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.WithFlags(cmd.Flags()))
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
		return nil, err
	}
	logger.Debug().Msg("Config loaded")

	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
