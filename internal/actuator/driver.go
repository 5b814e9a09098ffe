package actuator

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/oshokin/ghost-host/internal/domain/performance"
	"github.com/oshokin/ghost-host/internal/logger"
)

// Driver applies actuator commands. Implementations must be fast and must not block.
type Driver interface {
	Apply(cmd performance.ActuatorCommand) error
}

// DriverFunc adapts a function to the Driver interface.
type DriverFunc func(cmd performance.ActuatorCommand) error

// Apply calls f.
func (f DriverFunc) Apply(cmd performance.ActuatorCommand) error {
	return f(cmd)
}

// LogDriver only logs commands. It stands in for hardware on a bench.
type LogDriver struct {
	// log receives one line per command.
	log *zap.SugaredLogger
}

// NewLogDriver creates a LogDriver using the logger carried by ctx.
func NewLogDriver(ctx context.Context) *LogDriver {
	return &LogDriver{
		log: logger.FromContext(ctx).Named("actuators"),
	}
}

// Apply logs the command.
func (d *LogDriver) Apply(cmd performance.ActuatorCommand) error {
	d.log.Debugw("Actuator command", "command", cmd.String())

	return nil
}

// Tracker wraps a Driver and remembers the last successfully applied state.
type Tracker struct {
	// next receives every command.
	next Driver
	// mu protects state.
	mu sync.RWMutex
	// state is the last commanded output state.
	state performance.ActuatorState
}

// NewTracker wraps next.
func NewTracker(next Driver) *Tracker {
	return &Tracker{
		next: next,
	}
}

// Apply forwards cmd and records the resulting state on success.
func (t *Tracker) Apply(cmd performance.ActuatorCommand) error {
	if err := t.next.Apply(cmd); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch cmd.Kind {
	case performance.CommandMouthOpen:
		t.state.MouthOpen = true
	case performance.CommandMouthClose:
		t.state.MouthOpen = false
	case performance.CommandHeadTorsoDrive:
		t.state.HeadTorsoMoving = true
		t.state.Direction = cmd.Direction
	case performance.CommandHeadTorsoStop:
		t.state.HeadTorsoMoving = false
	case performance.CommandEyesOn:
		t.state.EyesOn = true
	case performance.CommandEyesOff:
		t.state.EyesOn = false
	}

	return nil
}

// Snapshot returns the last commanded state.
func (t *Tracker) Snapshot() performance.ActuatorState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.state
}
