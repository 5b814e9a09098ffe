// Package sensor turns sensor levels into debounced trigger requests.
package sensor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/oshokin/ghost-host/internal/domain/performance"
	"github.com/oshokin/ghost-host/internal/gate"
	"github.com/oshokin/ghost-host/internal/logger"
)

// LevelReader reports the current level of a sensor channel (true is active).
type LevelReader interface {
	Level(channel performance.TriggerSource) (bool, error)
}

// Handler receives every accepted edge.
type Handler func(ctx context.Context, channel performance.TriggerSource)

// Watcher polls sensor channels and reports debounced rising edges.
type Watcher struct {
	// reader provides channel levels.
	reader LevelReader
	// debouncer filters edge bursts.
	debouncer *gate.Debouncer
	// interval is the poll period.
	interval time.Duration
	// handler receives accepted edges.
	handler Handler
	// last holds the previous level per channel; only Run touches it.
	last map[performance.TriggerSource]bool
	// failing remembers channels whose last read failed, to log once per outage.
	failing map[performance.TriggerSource]bool
	// log receives edge messages.
	log *zap.SugaredLogger
}

// NewWatcher creates a Watcher.
func NewWatcher(
	ctx context.Context,
	reader LevelReader,
	debouncer *gate.Debouncer,
	interval time.Duration,
	handler Handler,
) *Watcher {
	channels := performance.SensorChannels()

	return &Watcher{
		reader:    reader,
		debouncer: debouncer,
		interval:  interval,
		handler:   handler,
		last:      make(map[performance.TriggerSource]bool, len(channels)),
		failing:   make(map[performance.TriggerSource]bool, len(channels)),
		log:       logger.FromContext(ctx).Named("sensors"),
	}
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Infow("Sensor polling started", "interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Sensor polling stopped")

			return nil
		case now := <-ticker.C:
			w.poll(ctx, now)
		}
	}
}

// poll reads every channel once and hands over accepted rising edges.
func (w *Watcher) poll(ctx context.Context, now time.Time) {
	for _, channel := range performance.SensorChannels() {
		level, err := w.reader.Level(channel)
		if err != nil {
			if !w.failing[channel] {
				w.log.Warnw("Failed to read sensor", "channel", channel.String(), "error", err)
			}

			w.failing[channel] = true

			continue
		}

		w.failing[channel] = false

		rising := level && !w.last[channel]
		w.last[channel] = level

		if !rising {
			continue
		}

		if !w.debouncer.OnEdge(channel, now) {
			w.log.Debugw("Sensor debounce, ignoring", "channel", channel.String())

			continue
		}

		w.log.Infow("Sensor triggered", "channel", channel.String())
		w.handler(ctx, channel)
	}
}
