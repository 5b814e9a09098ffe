// Package idle moves the head and torso from time to time while nobody is
// being greeted, so the prop looks alive between performances.
package idle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/oshokin/ghost-host/internal/actuator"
	domain "github.com/oshokin/ghost-host/internal/domain/performance"
	"github.com/oshokin/ghost-host/internal/logger"
)

// LookArounder starts one look-around.
type LookArounder interface {
	LookAround(ctx context.Context, direction domain.Direction, d time.Duration) error
}

// Scheduler runs look-arounds on a fixed cadence, alternating direction.
type Scheduler struct {
	// ctx carries the logger into cron callbacks.
	ctx context.Context
	// cron owns the schedule.
	cron *cron.Cron
	// target performs the motion.
	target LookArounder
	// duration is how long each look-around moves.
	duration time.Duration

	// mu protects next.
	mu sync.Mutex
	// next is the direction of the next look-around.
	next domain.Direction
}

var (
	// errNoTarget is returned when no look-around target is configured.
	errNoTarget = errors.New("look-around target must be provided")
	// errInvalidTiming is returned for a non-positive interval or duration.
	errInvalidTiming = errors.New("idle interval and duration must be positive")
)

// New schedules a look-around every interval. The first one moves towards first.
func New(ctx context.Context, target LookArounder, interval, duration time.Duration, first domain.Direction) (*Scheduler, error) {
	if target == nil {
		return nil, errNoTarget
	}

	if interval <= 0 || duration <= 0 {
		return nil, errInvalidTiming
	}

	s := &Scheduler{
		ctx:      logger.WithName(ctx, "idle"),
		cron:     cron.New(),
		target:   target,
		duration: duration,
		next:     first,
	}

	if _, err := s.cron.AddFunc("@every "+interval.String(), s.Tick); err != nil {
		return nil, fmt.Errorf("schedule look-around: %w", err)
	}

	return s, nil
}

// Run starts the schedule and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()

	<-ctx.Done()

	<-s.cron.Stop().Done()

	return nil
}

// Tick performs one look-around unless something else is moving.
// The direction only flips after a look-around actually ran.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.target.LookAround(s.ctx, s.next, s.duration)

	switch {
	case err == nil:
		s.next = s.next.Opposite()
	case errors.Is(err, domain.ErrAlreadyActive), errors.Is(err, actuator.ErrBusy):
		logger.Debug(s.ctx, "Skipping look-around, prop is busy")
	default:
		logger.WarnKV(s.ctx, "Look-around failed", "error", err)
	}
}
