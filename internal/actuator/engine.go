package actuator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/oshokin/ghost-host/internal/domain/performance"
	"github.com/oshokin/ghost-host/internal/logger"
)

// FinishReason tells why a run ended.
type FinishReason int

// Run end reasons.
const (
	// ReasonElapsed means the watchdog reached the audio duration.
	ReasonElapsed FinishReason = iota + 1
	// ReasonStopped means StopAll ended the run.
	ReasonStopped
	// ReasonFailed means the driver rejected a command.
	ReasonFailed
)

// String returns the lower-case reason name.
func (r FinishReason) String() string {
	switch r {
	case ReasonElapsed:
		return "elapsed"
	case ReasonStopped:
		return "stopped"
	case ReasonFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes the end of a run.
type Result struct {
	Reason  FinishReason
	Err     error
	Elapsed time.Duration
}

// Settings holds mouth timing.
type Settings struct {
	// MinimumOpen is the shortest mouth opening, even for very short words.
	MinimumOpen time.Duration
	// MouthCloseDelay is the pause after each close before the next word.
	MouthCloseDelay time.Duration
}

// Plan is everything a run needs to know about one performance.
type Plan struct {
	// Source is carried for logging; it does not change behaviour.
	Source performance.TriggerSource
	// AudioDuration bounds the whole run.
	AudioDuration time.Duration
	// Words drive the mouth; empty disables mouth animation.
	Words []performance.WordInterval
	// MovementDuration is the head/torso sweep length; zero means AudioDuration.
	MovementDuration time.Duration
	// Direction is the head/torso sweep direction.
	Direction performance.Direction
	// Eyes lights the eyes for the whole run.
	Eyes bool
}

var (
	// ErrBusy is returned by Start while another run is in progress.
	ErrBusy = errors.New("actuator run already in progress")
	// errInvalidPlan is returned for plans without a positive audio duration.
	errInvalidPlan = errors.New("plan audio duration must be positive")
)

// Engine runs at most one timed actuator sequence set at a time.
type Engine struct {
	// driver receives every command, always under mu.
	driver Driver
	// settings holds mouth timing.
	settings Settings
	// log receives run lifecycle messages.
	log *zap.SugaredLogger

	// mu serializes commands and protects current.
	mu sync.Mutex
	// current is the live run, nil when idle.
	current *run
}

// run is one invocation of Start.
type run struct {
	// plan is the immutable input of the run.
	plan Plan
	// startedAt anchors every deadline of the run.
	startedAt time.Time
	// stop is closed when the run ends for any reason.
	stop chan struct{}
	// onFinish is notified once, on its own goroutine.
	onFinish func(Result)
}

// NewEngine creates an Engine writing to driver.
func NewEngine(ctx context.Context, driver Driver, settings Settings) *Engine {
	return &Engine{
		driver:   driver,
		settings: settings,
		log:      logger.FromContext(ctx).Named("engine"),
	}
}

// Start launches the mouth, head/torso and watchdog sequences and returns
// immediately. onFinish is called exactly once when the run ends.
func (e *Engine) Start(plan Plan, onFinish func(Result)) error {
	if plan.AudioDuration <= 0 {
		return errInvalidPlan
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != nil {
		return ErrBusy
	}

	if plan.Eyes {
		if err := e.driver.Apply(performance.EyesOn()); err != nil {
			return fmt.Errorf("failed to light eyes: %w", multierr.Append(err, e.safeStateLocked()))
		}
	}

	r := &run{
		plan:      plan,
		startedAt: time.Now(),
		stop:      make(chan struct{}),
		onFinish:  onFinish,
	}

	e.current = r

	if len(plan.Words) > 0 {
		go e.animateMouth(r)
	}

	go e.sweepHeadTorso(r)
	go e.watchdog(r)

	e.log.Infow("Synchronized movement started",
		"source", plan.Source.String(),
		"duration", plan.AudioDuration.String(),
		"words", len(plan.Words),
		"direction", plan.Direction.String(),
		"eyes", plan.Eyes,
	)

	return nil
}

// StopAll ends the current run, if any, and commands every output to its safe
// state. It never waits for the sequences and may be called at any time.
func (e *Engine) StopAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != nil {
		return e.finishLocked(e.current, Result{Reason: ReasonStopped})
	}

	return e.safeStateLocked()
}

// Running reports whether a run is in progress.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.current != nil
}

// animateMouth is sequence A: open and close the mouth for every word.
func (e *Engine) animateMouth(r *run) {
	earliest := r.startedAt

	for _, word := range r.plan.Words {
		openAt := r.startedAt.Add(word.Start)
		if openAt.Before(earliest) {
			openAt = earliest
		}

		if !e.sleepUntil(r, openAt) || !e.emit(r, performance.MouthOpen()) {
			return
		}

		closeAt := openAt.Add(max(word.Length(), e.settings.MinimumOpen))

		if !e.sleepUntil(r, closeAt) || !e.emit(r, performance.MouthClose()) {
			return
		}

		earliest = closeAt.Add(e.settings.MouthCloseDelay)
	}
}

// sweepHeadTorso is sequence B: drive head and torso for the movement duration.
func (e *Engine) sweepHeadTorso(r *run) {
	if !e.emit(r, performance.HeadTorsoDrive(r.plan.Direction)) {
		return
	}

	movement := r.plan.MovementDuration
	if movement <= 0 {
		movement = r.plan.AudioDuration
	}

	if !e.sleepUntil(r, r.startedAt.Add(movement)) {
		return
	}

	e.emit(r, performance.HeadTorsoStop())
}

// watchdog is sequence C: end the run once the audio duration has elapsed.
func (e *Engine) watchdog(r *run) {
	if !e.sleepUntil(r, r.startedAt.Add(r.plan.AudioDuration)) {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.finishLocked(r, Result{Reason: ReasonElapsed}); err != nil {
		e.log.Errorw("Failed to stop actuators after audio duration", "error", err)
	}
}

// sleepUntil waits for deadline and reports false if the run ended first.
func (e *Engine) sleepUntil(r *run, deadline time.Time) bool {
	wait := time.Until(deadline)
	if wait <= 0 {
		select {
		case <-r.stop:
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-r.stop:
		return false
	case <-timer.C:
		return true
	}
}

// emit applies cmd on behalf of r. Commands of a finished run are dropped, so a
// sequence can never restart an output after the run was stopped.
func (e *Engine) emit(r *run, cmd performance.ActuatorCommand) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != r {
		return false
	}

	if err := e.driver.Apply(cmd); err != nil {
		e.log.Errorw("Actuator command failed", "command", cmd.String(), "error", err)

		stopErr := e.finishLocked(r, Result{Reason: ReasonFailed, Err: err})
		if stopErr != nil {
			e.log.Errorw("Failed to reach safe state after command failure", "error", stopErr)
		}

		return false
	}

	return true
}

// finishLocked ends r, commands the safe state and notifies the owner.
// Only the first call for a run has any effect.
func (e *Engine) finishLocked(r *run, result Result) error {
	if e.current != r {
		return nil
	}

	e.current = nil
	close(r.stop)

	stopErr := e.safeStateLocked()

	result.Err = multierr.Append(result.Err, stopErr)
	result.Elapsed = time.Since(r.startedAt)

	e.log.Infow("All motors stopped", "reason", result.Reason.String(), "elapsed", result.Elapsed.String())

	if r.onFinish != nil {
		go r.onFinish(result)
	}

	return stopErr
}

// safeStateLocked closes the mouth, stops head and torso and darkens the eyes.
func (e *Engine) safeStateLocked() error {
	return multierr.Combine(
		e.driver.Apply(performance.MouthClose()),
		e.driver.Apply(performance.HeadTorsoStop()),
		e.driver.Apply(performance.EyesOff()),
	)
}
