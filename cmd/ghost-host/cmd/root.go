package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/ghost-host/internal/config"
	"github.com/oshokin/ghost-host/internal/logger"
	"github.com/oshokin/ghost-host/internal/service/server"
	"github.com/oshokin/ghost-host/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// stateFile overrides where performance statistics are persisted.
	stateFile string
	// httpAddress overrides the network trigger listen address.
	httpAddress string

	// rootCmd represents the base command for running the prop daemon.
	rootCmd = &cobra.Command{
		Use:   "ghost-host [listen-address]",
		Short: "Run the animatronic prop daemon.",
		Long: `Starts the prop daemon: it watches the trigger sensors, plays a greeting clip
and drives the mouth and head/torso actuators in sync with the audio.

After every performance a cooldown suppresses new triggers. The daemon serves a
gRPC control API (used by ghost-ctl) and, when enabled, an HTTP endpoint for
network triggers together with Prometheus metrics.

The control listen address can be provided as argument to override config
(e.g., :50051, 0.0.0.0:6000).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			settings, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}

			closeLog, err := logger.Setup(settings.Log.Level, settings.Log.File)
			if err != nil {
				return err
			}

			defer func() {
				_ = closeLog()
			}()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return server.Run(ctx, &server.Options{
				ConfigPath:        configPath,
				ListenAddress:     listenAddress,
				HTTPListenAddress: httpAddress,
				StateFile:         stateFile,
			})
		},
	}
)

// Execute runs the ghost-host CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&stateFile, "state-file", "s", "", "path to persist performance statistics")
	rootCmd.Flags().StringVar(&httpAddress, "http-addr", "", "network trigger listen address")
}
