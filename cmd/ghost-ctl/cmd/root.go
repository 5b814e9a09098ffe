package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/ghost-host/internal/config"
	"github.com/oshokin/ghost-host/internal/service/control"
	"github.com/oshokin/ghost-host/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the daemon address from config.
	serverAddress string
	// clip overrides the default clip of a trigger.
	clip string

	// rootCmd is the ghost-ctl entry point; the work happens in subcommands.
	rootCmd = &cobra.Command{
		Use:   "ghost-ctl",
		Short: "Control a running ghost-host daemon.",
		Long: `Sends control requests to the ghost-host daemon over gRPC.

Use it to start a performance by hand, stop a running one, end the cooldown
early or inspect the prop state.`,
		SilenceUsage: true,
	}

	triggerCmd = &cobra.Command{
		Use:   "trigger [source]",
		Short: "Start a performance.",
		Long: `Asks the daemon for a performance as if the given source fired.

Source is one of channel_a (a), channel_b (b), manual or network and defaults
to manual. Rejections (already active, in cooldown) exit with non-zero status.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var source string
			if len(args) > 0 {
				source = args[0]
			}

			return run(control.ActionTrigger, source)
		},
	}

	stopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Stop the running performance and every actuator.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(control.ActionStop, "")
		},
	}

	endCooldownCmd = &cobra.Command{
		Use:   "end-cooldown",
		Short: "Clear the cooldown so the next trigger is accepted.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(control.ActionEndCooldown, "")
		},
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print the prop state.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(control.ActionStatus, "")
		},
	}
)

func run(action control.Action, source string) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return control.Run(ctx, &control.Options{
		ConfigPath:    cfgPath,
		ServerAddress: serverAddress,
		Action:        action,
		Source:        source,
		Clip:          clip,
	})
}

// Execute runs the ghost-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&serverAddress, "server", "s", "", "daemon address, overrides config")

	triggerCmd.Flags().StringVar(&clip, "clip", "", "clip to play instead of the default one")

	rootCmd.AddCommand(triggerCmd, stopCmd, endCooldownCmd, statusCmd)
}
