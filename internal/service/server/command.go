package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/ghost-host/internal/config"
	"github.com/oshokin/ghost-host/internal/hardware/bridge"
	"github.com/oshokin/ghost-host/internal/logger"
)

// Options controls the ghost-host process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress overrides the gRPC control listen address.
	ListenAddress string
	// HTTPListenAddress overrides the network trigger listen address.
	HTTPListenAddress string
	// StateFile overrides the statistics file path.
	StateFile string
	// ProcessName is the executable name guarded against double starts.
	// Empty means DefaultProcessName.
	ProcessName string
}

// DefaultProcessName is the daemon executable name.
const DefaultProcessName = "ghost-host"

// ErrAlreadyRunning is returned when another daemon process is found.
var ErrAlreadyRunning = errors.New("another ghost-host process is running")

// Run starts the prop daemon and blocks until ctx is canceled or a component fails.
// On return every actuator is in its safe state and audio is stopped.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "ghost-host")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyOverrides(settings, opts)

	processName := opts.ProcessName
	if processName == "" {
		processName = DefaultProcessName
	}

	if err = ensureSingleInstance(processName); err != nil {
		return err
	}

	d, err := assemble(ctx, settings, bridge.Open)
	if err != nil {
		return fmt.Errorf("initialise daemon: %w", err)
	}

	return d.run(ctx)
}

// applyOverrides replaces configured values with command line ones.
func applyOverrides(settings *config.Config, opts *Options) {
	if opts.ListenAddress != "" {
		settings.Control.ListenAddress = opts.ListenAddress
	}

	if opts.HTTPListenAddress != "" {
		settings.HTTP.ListenAddress = opts.HTTPListenAddress
	}

	if opts.StateFile != "" {
		settings.StateFile = opts.StateFile
	}
}
