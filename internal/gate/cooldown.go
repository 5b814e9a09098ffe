package gate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oshokin/ghost-host/internal/logger"
)

// Cooldown suppresses new performances for a period after one ends.
// The flag is cleared by a timer and, independently, by a lazy expiry check,
// so a missed timer never leaves the gate closed.
type Cooldown struct {
	// now returns the current instant.
	now func() time.Time
	// log receives expiry messages.
	log *zap.SugaredLogger

	// mu protects the fields below.
	mu sync.Mutex
	// active is the raw flag; read it only through IsActive.
	active bool
	// endsAt is when the current cooldown expires.
	endsAt time.Time
	// generation invalidates timers armed by earlier Start calls.
	generation uint64
	// timer is the pending expiry timer.
	timer *time.Timer
}

// CooldownOption configures a Cooldown.
type CooldownOption func(*Cooldown)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CooldownOption {
	return func(c *Cooldown) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCooldown creates an inactive gate logging through the logger carried by ctx.
func NewCooldown(ctx context.Context, opts ...CooldownOption) *Cooldown {
	c := &Cooldown{
		now: time.Now,
		log: logger.FromContext(ctx).Named("cooldown"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start closes the gate for duration d, replacing any running cooldown.
func (c *Cooldown) Start(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()

	if d <= 0 {
		c.active = false

		return
	}

	c.generation++
	c.active = true
	c.endsAt = c.now().Add(d)

	generation := c.generation
	c.timer = time.AfterFunc(d, func() { c.expire(generation) })

	c.log.Infow("Cooldown started", "duration", d.String())
}

// IsActive reports whether the gate is closed at now, clearing an expired flag.
func (c *Cooldown) IsActive(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.isActiveLocked(now)
}

// Remaining returns the time left until the gate opens, zero when open.
func (c *Cooldown) Remaining(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isActiveLocked(now) {
		return 0
	}

	return c.endsAt.Sub(now)
}

// ForceClear opens the gate immediately.
func (c *Cooldown) ForceClear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()

	if c.active {
		c.log.Info("Cooldown period force ended")
	}

	c.active = false
	c.endsAt = time.Time{}
	c.generation++
}

func (c *Cooldown) isActiveLocked(now time.Time) bool {
	if c.active && !now.Before(c.endsAt) {
		c.active = false
	}

	return c.active
}

// expire is the timer callback for the cooldown armed at generation.
func (c *Cooldown) expire(generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		c.log.Debugw("Stale cooldown timer ignored", "generation", generation, "current", c.generation)

		return
	}

	c.timer = nil

	if !c.active {
		// Lazy expiry got here first.
		return
	}

	c.active = false
	c.log.Info("Cooldown period ended")
}

func (c *Cooldown) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
