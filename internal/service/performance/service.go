package performance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/oshokin/ghost-host/internal/actuator"
	"github.com/oshokin/ghost-host/internal/audio"
	domain "github.com/oshokin/ghost-host/internal/domain/performance"
	"github.com/oshokin/ghost-host/internal/gate"
	"github.com/oshokin/ghost-host/internal/logger"
	repo "github.com/oshokin/ghost-host/internal/repository/stats"
	"github.com/oshokin/ghost-host/internal/timing"
)

// Engine drives the actuator sequences of one performance or look-around.
type Engine interface {
	Start(plan actuator.Plan, onFinish func(actuator.Result)) error
	StopAll() error
	Running() bool
}

// ActuatorStater reports the last commanded actuator state.
type ActuatorStater interface {
	Snapshot() domain.ActuatorState
}

// Options wires the orchestrator to its collaborators.
type Options struct {
	// Transport plays clips and knows their duration.
	Transport audio.Transport
	// Timings provides word intervals; failures only disable the mouth.
	Timings timing.Source
	// Engine drives the actuators.
	Engine Engine
	// Cooldown is the gate closed after every performance.
	Cooldown *gate.Cooldown
	// Actuators optionally reports actuator state for Status.
	Actuators ActuatorStater
	// Repository optionally persists statistics.
	Repository repo.Repository
	// Observer optionally receives decisions, for metrics.
	Observer Observer
	// DefaultClip is played when a request names no clip.
	DefaultClip string
	// CooldownPeriod is how long the gate stays closed after a performance.
	CooldownPeriod time.Duration
	// MovementDuration limits head/torso motion; zero means the whole clip.
	MovementDuration time.Duration
	// Direction is the head/torso sweep direction of performances.
	Direction domain.Direction
}

var (
	// ErrInvalidOptions is returned by New when a required collaborator is missing.
	ErrInvalidOptions = errors.New("invalid orchestrator options")
	// errZeroDuration reports a clip without playable length.
	errZeroDuration = errors.New("clip duration is zero")
)

// completion describes one end-of-performance signal.
type completion struct {
	// outcome is how the session ended.
	outcome domain.Outcome
	// playbackEnded is set when the audio transport itself reported the end.
	playbackEnded bool
	// cause names the signal for logs.
	cause string
	// err is the failure behind an OutcomeFailed, if any.
	err error
}

// Service is the performance orchestrator.
type Service struct {
	// transport plays clips.
	transport audio.Transport
	// timings loads word intervals.
	timings timing.Source
	// engine drives the actuators.
	engine Engine
	// cooldown gates new triggers after a performance.
	cooldown *gate.Cooldown
	// actuators reports actuator state, may be nil.
	actuators ActuatorStater
	// repo persists statistics, may be nil.
	repo repo.Repository
	// observer receives decisions.
	observer Observer
	// defaultClip is played when a request names no clip.
	defaultClip string
	// cooldownPeriod is the cooldown length.
	cooldownPeriod time.Duration
	// movement is the head/torso movement duration.
	movement time.Duration
	// direction is the head/torso sweep direction.
	direction domain.Direction
	// log is used where no request context exists, in completion callbacks.
	log *zap.SugaredLogger

	// mu is the single decision point: it protects state, session and stats.
	mu sync.Mutex
	// state is the state machine position.
	state domain.State
	// session is the live performance; its existence means "busy".
	session *domain.Session
	// stats accumulates history.
	stats domain.Stats

	// saveMu keeps statistic writes in order.
	saveMu sync.Mutex
}

// New creates an idle orchestrator and loads persisted statistics.
func New(ctx context.Context, opts *Options) (*Service, error) {
	if opts == nil || opts.Transport == nil || opts.Timings == nil || opts.Engine == nil || opts.Cooldown == nil {
		return nil, ErrInvalidOptions
	}

	s := &Service{
		transport:      opts.Transport,
		timings:        opts.Timings,
		engine:         opts.Engine,
		cooldown:       opts.Cooldown,
		actuators:      opts.Actuators,
		repo:           opts.Repository,
		observer:       opts.Observer,
		defaultClip:    opts.DefaultClip,
		cooldownPeriod: opts.CooldownPeriod,
		movement:       opts.MovementDuration,
		direction:      opts.Direction,
		log:            logger.FromContext(ctx).Named("orchestrator"),
	}

	if s.observer == nil {
		s.observer = nopObserver{}
	}

	if s.repo == nil {
		return s, nil
	}

	stats, err := s.repo.Load(ctx)
	switch {
	case err == nil:
		s.stats = stats
	case errors.Is(err, repo.ErrNotFound):
		// Keep zero stats.
	default:
		// A damaged file only costs the history.
		s.log.Warnw("Failed to load performance stats, starting from zero", "error", err)
	}

	return s, nil
}

// Trigger runs one performance if the prop is idle and out of cooldown.
// It returns once the performance is running; only the accept or reject
// decision is reported, later failures are absorbed by the cleanup path.
func (s *Service) Trigger(ctx context.Context, req domain.TriggerRequest) error {
	if !req.Source.Valid() {
		return fmt.Errorf("%w: %s", domain.ErrUnknownSource, req.Source)
	}

	clip := req.Clip
	if clip == "" {
		clip = s.defaultClip
	}

	log := logger.FromContext(ctx).With("source", req.Source.String(), "clip", clip)
	if req.Actor != "" {
		log = log.With("actor", req.Actor)
	}

	session, err := s.arm(log, req.Source, clip)
	if err != nil {
		return err
	}

	log = log.With("session_id", session.ID)

	duration, err := s.transport.Duration(clip)
	if err == nil && duration <= 0 {
		err = errZeroDuration
	}

	if err != nil {
		log.Errorw("Cannot determine clip duration", "error", err)

		if !s.disarm(session, domain.ReasonDurationUnknown) {
			return domain.ErrAborted
		}

		return fmt.Errorf("%w: %w", domain.ErrDurationUnknown, err)
	}

	words, err := s.timings.LoadIntervals(clip)
	switch {
	case errors.Is(err, timing.ErrNoTimings):
		log.Infow("No word timings, mouth animation disabled")
	case err != nil:
		log.Warnw("Failed to load word timings, mouth animation disabled", "error", err)
	}

	return s.activate(log, session, duration, words)
}

// arm is the decision point: it creates the session or rejects the trigger.
func (s *Service) arm(log *zap.SugaredLogger, source domain.TriggerSource, clip string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.session != nil:
		return nil, s.rejectLocked(log, source, domain.ReasonAlreadyActive)
	case s.cooldown.IsActive(time.Now()):
		return nil, s.rejectLocked(log, source, domain.ReasonInCooldown)
	}

	// A trigger always wins over idle motion.
	if s.engine.Running() {
		log.Infow("Interrupting idle look-around")

		if err := s.engine.StopAll(); err != nil {
			log.Errorw("Failed to stop idle look-around", "error", err)
		}
	}

	s.session = &domain.Session{
		ID:     uuid.NewString(),
		Source: source,
		Clip:   clip,
	}
	s.state = domain.StateArming

	log.Infow("Trigger accepted", "session_id", s.session.ID)

	return s.session, nil
}

// rejectLocked counts and reports a rejected trigger.
func (s *Service) rejectLocked(log *zap.SugaredLogger, source domain.TriggerSource, reason domain.RejectReason) error {
	s.stats.Rejected++
	s.observer.TriggerRejected(source, reason)

	log.Infow("Trigger rejected", "reason", reason.String())

	return &domain.RejectedError{Reason: reason}
}

// disarm drops a session that never became active. It reports false when the
// session was already dropped by a force stop.
func (s *Service) disarm(session *domain.Session, reason domain.RejectReason) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != session {
		return false
	}

	s.session = nil
	s.state = domain.StateIdle
	s.stats.Rejected++
	s.observer.TriggerRejected(session.Source, reason)

	return true
}

// activate starts audio and actuators against the same duration.
func (s *Service) activate(
	log *zap.SugaredLogger,
	session *domain.Session,
	duration time.Duration,
	words []domain.WordInterval,
) error {
	s.mu.Lock()

	if s.session != session {
		s.mu.Unlock()
		log.Infow("Performance aborted while arming")

		return domain.ErrAborted
	}

	id := session.ID
	session.AudioDuration = duration
	session.Words = words

	onPlaybackEnd := func(err error) { s.complete(id, playbackCompletion(err)) }

	if err := s.transport.Play(session.Clip, duration, onPlaybackEnd); err != nil {
		s.mu.Unlock()
		log.Errorw("Failed to start audio", "error", err)
		s.complete(id, completion{outcome: domain.OutcomeFailed, cause: "audio start failed", err: err})

		return nil
	}

	session.ReachedActive = true
	session.StartedAt = time.Now()
	s.state = domain.StateActive
	s.observer.PerformanceStarted(session.Clone())

	plan := actuator.Plan{
		Source:           session.Source,
		AudioDuration:    duration,
		Words:            words,
		MovementDuration: s.movement,
		Direction:        s.direction,
		Eyes:             true,
	}

	if err := s.engine.Start(plan, func(result actuator.Result) { s.complete(id, engineCompletion(result)) }); err != nil {
		s.mu.Unlock()
		log.Errorw("Failed to start actuators", "error", err)
		s.complete(id, completion{outcome: domain.OutcomeFailed, cause: "actuator start failed", err: err})

		return nil
	}

	s.mu.Unlock()

	log.Infow("Performance started", "duration", duration.String(), "words", len(words))

	return nil
}

// playbackCompletion maps the end of audio playback onto a completion.
func playbackCompletion(err error) completion {
	if err != nil {
		return completion{outcome: domain.OutcomeFailed, playbackEnded: true, cause: "playback failed", err: err}
	}

	return completion{outcome: domain.OutcomeCompleted, playbackEnded: true, cause: "playback ended"}
}

// engineCompletion maps the end of an actuator run onto a completion.
func engineCompletion(result actuator.Result) completion {
	switch result.Reason {
	case actuator.ReasonElapsed:
		return completion{outcome: domain.OutcomeCompleted, cause: "watchdog", err: result.Err}
	case actuator.ReasonStopped:
		return completion{outcome: domain.OutcomeForced, cause: "actuators stopped", err: result.Err}
	default:
		return completion{outcome: domain.OutcomeFailed, cause: "actuator failure", err: result.Err}
	}
}

// complete is the single completion handler. Only the first signal for a
// session has any effect.
func (s *Service) complete(id string, c completion) {
	s.mu.Lock()

	session := s.session
	if session == nil || session.ID != id {
		s.mu.Unlock()
		s.log.Debugw("Ignoring completion of a finished session", "session_id", id, "cause", c.cause)

		return
	}

	log := s.log.With("session_id", id, "source", session.Source.String(), "clip", session.Clip)

	s.state = domain.StateCompleting

	if err := s.engine.StopAll(); err != nil {
		log.Errorw("Failed to stop actuators", "error", err)
	}

	if !c.playbackEnded {
		if err := s.transport.Stop(); err != nil {
			log.Errorw("Failed to stop audio", "error", err)
		}
	}

	var (
		finishedAt = time.Now()
		elapsed    time.Duration
	)

	if session.ReachedActive {
		elapsed = finishedAt.Sub(session.StartedAt)

		s.cooldown.Start(s.cooldownPeriod)

		s.stats.Performances++
		s.stats.LastSource = session.Source
		s.stats.LastClip = session.Clip
		s.stats.LastStartedAt = session.StartedAt
		s.stats.LastFinishedAt = finishedAt
		s.stats.LastOutcome = c.outcome
	}

	s.session = nil
	s.state = domain.StateIdle
	s.observer.PerformanceFinished(session, c.outcome, elapsed)

	stats := s.stats

	s.mu.Unlock()

	if c.err != nil {
		log.Errorw("Performance ended with failure", "outcome", c.outcome.String(), "cause", c.cause, "error", c.err)
	} else {
		log.Infow("Performance complete", "outcome", c.outcome.String(), "cause", c.cause, "elapsed", elapsed.String())
	}

	if session.ReachedActive {
		s.saveStats(stats)
	}
}

// saveStats persists a statistics snapshot.
func (s *Service) saveStats(stats domain.Stats) {
	if s.repo == nil {
		return
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := s.repo.Save(context.Background(), stats); err != nil {
		s.log.Errorw("Failed to persist performance stats", "error", err)
	}
}

// ForceStop ends the current performance, or idle motion, at once. It reports
// whether anything was running. Sessions aborted while arming do not start
// the cooldown.
func (s *Service) ForceStop(ctx context.Context) bool {
	s.mu.Lock()

	session := s.session

	switch {
	case session == nil:
		running := s.engine.Running()
		s.mu.Unlock()

		if !running {
			return false
		}

		logger.Info(ctx, "Stopping idle look-around")

		if err := s.engine.StopAll(); err != nil {
			logger.ErrorKV(ctx, "Failed to stop actuators", "error", err)
		}

		return true
	case s.state == domain.StateArming:
		s.session = nil
		s.state = domain.StateIdle
		s.mu.Unlock()

		logger.InfoKV(ctx, "Performance aborted while arming", "session_id", session.ID)

		if err := s.engine.StopAll(); err != nil {
			logger.ErrorKV(ctx, "Failed to stop actuators", "error", err)
		}

		return true
	default:
		s.mu.Unlock()

		logger.InfoKV(ctx, "Force stopping performance", "session_id", session.ID)
		s.complete(session.ID, completion{outcome: domain.OutcomeForced, cause: "force stop"})

		return true
	}
}

// ForceEndCooldown opens the cooldown gate and reports whether it was closed.
func (s *Service) ForceEndCooldown(ctx context.Context) bool {
	active := s.cooldown.IsActive(time.Now())

	s.cooldown.ForceClear()

	logger.InfoKV(ctx, "Cooldown period force ended", "was_active", active)

	return active
}

// Status returns a snapshot of the prop.
func (s *Service) Status(_ context.Context) domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	status := domain.Status{
		Active:            s.session != nil,
		State:             s.state,
		CooldownActive:    s.cooldown.IsActive(now),
		CooldownRemaining: s.cooldown.Remaining(now),
		Session:           s.session.Clone(),
		Stats:             s.stats,
	}

	if s.actuators != nil {
		status.Actuators = s.actuators.Snapshot()
	}

	return status
}

// LookAround moves head and torso for d without audio. It is refused while a
// performance exists and with actuator.ErrBusy while other motion runs.
func (s *Service) LookAround(ctx context.Context, direction domain.Direction, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		return domain.ErrAlreadyActive
	}

	plan := actuator.Plan{
		Source:        domain.SourceManual,
		AudioDuration: d,
		Direction:     direction,
	}

	if err := s.engine.Start(plan, nil); err != nil {
		return fmt.Errorf("start look-around: %w", err)
	}

	logger.InfoKV(ctx, "Idle look-around", "direction", direction.String(), "duration", d.String())

	return nil
}

// Close stops whatever runs and leaves every output in its safe state.
func (s *Service) Close(ctx context.Context) error {
	s.ForceStop(ctx)

	return multierr.Combine(
		s.engine.StopAll(),
		s.transport.Stop(),
	)
}
