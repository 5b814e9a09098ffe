package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/oshokin/ghost-host/internal/actuator"
	"github.com/oshokin/ghost-host/internal/api/grpc/prop"
	"github.com/oshokin/ghost-host/internal/api/web"
	"github.com/oshokin/ghost-host/internal/audio"
	"github.com/oshokin/ghost-host/internal/config"
	domain "github.com/oshokin/ghost-host/internal/domain/performance"
	"github.com/oshokin/ghost-host/internal/gate"
	"github.com/oshokin/ghost-host/internal/hardware/bridge"
	"github.com/oshokin/ghost-host/internal/logger"
	"github.com/oshokin/ghost-host/internal/metrics"
	repository "github.com/oshokin/ghost-host/internal/repository/stats"
	"github.com/oshokin/ghost-host/internal/sensor"
	"github.com/oshokin/ghost-host/internal/service/idle"
	"github.com/oshokin/ghost-host/internal/service/performance"
	"github.com/oshokin/ghost-host/internal/timing"
)

// readHeaderTimeout bounds slow HTTP clients.
const readHeaderTimeout = 5 * time.Second

// daemon holds every component of a running prop.
type daemon struct {
	// settings is the loaded configuration.
	settings *config.Config
	// library resolves clips and watches the sound directory.
	library *audio.Library
	// bridge is the serial link, nil without serial hardware.
	bridge *bridge.Bridge
	// debouncer gates sensor edges.
	debouncer *gate.Debouncer
	// orchestrator owns performances.
	orchestrator *performance.Service
	// watcher polls sensors, nil without a sensor source.
	watcher *sensor.Watcher
	// idle moves the prop between performances, nil when disabled.
	idle *idle.Scheduler
	// grpcServer serves the control API.
	grpcServer *grpc.Server
	// httpServer serves network triggers, nil when disabled.
	httpServer *http.Server
}

// linkOpener connects to the prop microcontroller.
type linkOpener func(ctx context.Context, port string, baudRate int) (*bridge.Bridge, error)

// assemble builds every component from settings without starting anything.
func assemble(ctx context.Context, settings *config.Config, openLink linkOpener) (*daemon, error) {
	d := &daemon{
		settings:  settings,
		debouncer: gate.NewDebouncer(settings.Sensors.DebounceWindow),
	}

	library, err := audio.NewLibrary(ctx, settings.Audio.SoundDir, settings.Audio.CacheSize)
	if err != nil {
		return nil, err
	}

	d.library = library

	if usesSerial(settings) {
		if d.bridge, err = openLink(ctx, settings.Serial.Port, settings.Serial.BaudRate); err != nil {
			return nil, err
		}
	}

	direction, err := domain.ParseDirection(settings.Motors.Direction)
	if err != nil {
		return nil, d.abort(err)
	}

	tracker := actuator.NewTracker(d.driver(ctx))
	cooldown := gate.NewCooldown(ctx)

	m := metrics.New()
	m.WatchCooldown(func() time.Duration { return cooldown.Remaining(time.Now()) })

	d.orchestrator, err = performance.New(ctx, &performance.Options{
		Transport: audio.NewController(ctx, library, newBackend(settings.Audio)),
		Timings:   timing.NewFileSource(settings.Audio.SoundDir),
		Engine: actuator.NewEngine(ctx, tracker, actuator.Settings{
			MinimumOpen:     settings.Motors.MinimumOpen,
			MouthCloseDelay: settings.Motors.MouthCloseDelay,
		}),
		Cooldown:         cooldown,
		Actuators:        tracker,
		Repository:       repository.NewFileRepository(settings.StateFile),
		Observer:         m,
		DefaultClip:      settings.Audio.DefaultClip,
		CooldownPeriod:   settings.Sensors.CooldownPeriod,
		MovementDuration: settings.Motors.MovementDuration,
		Direction:        direction,
	})
	if err != nil {
		return nil, d.abort(err)
	}

	d.grpcServer = grpc.NewServer()
	prop.RegisterPropServiceServer(d.grpcServer, prop.NewServer(d.orchestrator))

	if settings.HTTP.Enabled {
		router, routerErr := web.NewRouter(ctx, &web.Options{
			Service:  d.orchestrator,
			Triggers: settings.HTTP.NetworkTriggers,
			Clips:    library,
			Metrics:  m.Handler(),
		})
		if routerErr != nil {
			return nil, d.abort(routerErr)
		}

		d.httpServer = &http.Server{
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
		}
	}

	if settings.Sensors.Source == config.SensorSourceSerial {
		d.watcher = sensor.NewWatcher(ctx, d.bridge, d.debouncer, settings.Sensors.PollInterval, d.onSensor)
	}

	if settings.Idle.Enabled {
		d.idle, err = idle.New(ctx, d.orchestrator, settings.Idle.Interval, settings.Idle.Duration, direction)
		if err != nil {
			return nil, d.abort(err)
		}
	}

	return d, nil
}

func usesSerial(settings *config.Config) bool {
	return settings.Sensors.Source == config.SensorSourceSerial ||
		settings.Motors.Driver == config.MotorDriverSerial
}

// driver returns the actuator output selected by settings.
func (d *daemon) driver(ctx context.Context) actuator.Driver {
	if d.settings.Motors.Driver == config.MotorDriverSerial {
		return d.bridge
	}

	return actuator.NewLogDriver(ctx)
}

func newBackend(settings config.AudioConfig) audio.Backend {
	if settings.Backend == config.AudioBackendSimulated {
		return audio.NewSimulatedBackend()
	}

	return audio.NewCommandBackend(settings.Command, settings.Device)
}

// onSensor turns an accepted sensor edge into a trigger.
func (d *daemon) onSensor(ctx context.Context, channel domain.TriggerSource) {
	err := d.orchestrator.Trigger(ctx, domain.TriggerRequest{Source: channel})
	if _, rejected := domain.ReasonOf(err); err != nil && !rejected {
		logger.WarnKV(ctx, "Sensor trigger failed", "channel", channel.String(), "error", err)
	}
}

// abort releases what assemble already opened and returns err.
func (d *daemon) abort(err error) error {
	if d.bridge != nil {
		err = multierr.Append(err, d.bridge.Close())
	}

	return err
}

// run serves until ctx is done or a component fails, then shuts everything down.
// The serial link is closed last so the final safe state reaches the controller.
func (d *daemon) run(ctx context.Context) error {
	var lc net.ListenConfig

	grpcListener, err := lc.Listen(ctx, "tcp", d.settings.Control.ListenAddress)
	if err != nil {
		return d.abort(fmt.Errorf("listen on %s: %w", d.settings.Control.ListenAddress, err))
	}

	var httpListener net.Listener
	if d.httpServer != nil {
		httpListener, err = lc.Listen(ctx, "tcp", d.settings.HTTP.ListenAddress)
		if err != nil {
			_ = grpcListener.Close()

			return d.abort(fmt.Errorf("listen on %s: %w", d.settings.HTTP.ListenAddress, err))
		}
	}

	logger.InfoKV(ctx, "Prop daemon listening",
		"control_address", grpcListener.Addr().String(),
		"http_enabled", d.httpServer != nil,
		"sound_dir", d.library.Dir(),
		"state_file", d.settings.StateFile)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return d.serveGRPC(groupCtx, grpcListener)
	})

	if d.httpServer != nil {
		group.Go(func() error {
			return d.serveHTTP(groupCtx, httpListener)
		})
	}

	group.Go(func() error {
		if watchErr := d.library.Watch(groupCtx); watchErr != nil {
			logger.WarnKV(ctx, "Sound directory is not watched, clip cache may go stale", "error", watchErr)
		}

		return nil
	})

	linkCtx, closeLink := context.WithCancel(context.WithoutCancel(ctx))
	defer closeLink()

	linkStopped := make(chan struct{})

	if d.bridge != nil {
		var linkErr error

		go func() {
			defer close(linkStopped)

			linkErr = d.bridge.Run(linkCtx)
		}()

		group.Go(func() error {
			select {
			case <-linkStopped:
				return linkErr
			case <-groupCtx.Done():
				return nil
			}
		})
	} else {
		close(linkStopped)
	}

	if d.watcher != nil {
		group.Go(func() error { return d.watcher.Run(groupCtx) })
	}

	if d.idle != nil {
		group.Go(func() error { return d.idle.Run(groupCtx) })
	}

	err = group.Wait()

	logger.Info(ctx, "Shutting down prop daemon")

	shutdownCtx := context.WithoutCancel(ctx)

	err = multierr.Combine(err, d.orchestrator.Close(shutdownCtx))
	d.debouncer.Reset()

	closeLink()

	if d.bridge != nil {
		err = multierr.Append(err, d.bridge.Close())
	}

	<-linkStopped

	logger.Info(ctx, "Prop daemon stopped")

	return err
}

func (d *daemon) serveGRPC(ctx context.Context, lis net.Listener) error {
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		d.grpcServer.GracefulStop()
		close(done)
	}()

	if err := d.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done

	return nil
}

func (d *daemon) serveHTTP(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.settings.Control.Timeout)
		defer cancel()

		if err := d.httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WarnKV(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	if err := d.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	return nil
}
