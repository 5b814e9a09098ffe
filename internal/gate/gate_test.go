package gate

import (
	"context"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ghost-host/internal/domain/performance"
)

// manualClock is a settable clock for pure arithmetic checks.
type manualClock struct {
	// mu protects now.
	mu sync.Mutex
	// now is the instant returned by Now.
	now time.Time
}

// Now returns the current manual instant.
func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// Advance moves the clock forward.
func (c *manualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)

	return c.now
}

// TestDebouncer_RejectsWithinWindow accepts only the first of a fast burst per channel.
func TestDebouncer_RejectsWithinWindow(t *testing.T) {
	t.Parallel()

	d := NewDebouncer(200 * time.Millisecond)
	start := time.Unix(1_700_000_000, 0)

	require.True(t, d.OnEdge(performance.SourceChannelA, start))

	for _, offset := range []time.Duration{10, 50, 120, 199} {
		require.False(t, d.OnEdge(performance.SourceChannelA, start.Add(offset*time.Millisecond)))
	}

	// Channels are independent.
	require.True(t, d.OnEdge(performance.SourceChannelB, start.Add(10*time.Millisecond)))

	// Rejected edges do not move the reference point.
	require.True(t, d.OnEdge(performance.SourceChannelA, start.Add(200*time.Millisecond)))
	require.False(t, d.OnEdge(performance.SourceChannelA, start.Add(300*time.Millisecond)))
}

// TestDebouncer_Reset forgets previous edges.
func TestDebouncer_Reset(t *testing.T) {
	t.Parallel()

	d := NewDebouncer(time.Second)
	now := time.Unix(1_700_000_000, 0)

	require.True(t, d.OnEdge(performance.SourceChannelA, now))
	require.False(t, d.OnEdge(performance.SourceChannelA, now))

	d.Reset()

	require.True(t, d.OnEdge(performance.SourceChannelA, now))
}

// TestCooldown_LazyExpiry closes the gate for the duration and opens it without any timer help.
func TestCooldown_LazyExpiry(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	c := NewCooldown(context.Background(), WithClock(clock.Now))

	require.False(t, c.IsActive(clock.Now()))
	require.Zero(t, c.Remaining(clock.Now()))

	c.Start(30 * time.Second)

	require.True(t, c.IsActive(clock.Now()))
	require.Equal(t, 30*time.Second, c.Remaining(clock.Now()))

	require.True(t, c.IsActive(clock.Advance(10*time.Second)))
	require.Equal(t, 20*time.Second, c.Remaining(clock.Now()))

	require.False(t, c.IsActive(clock.Advance(20*time.Second)))
	require.Zero(t, c.Remaining(clock.Now()))
}

// TestCooldown_ForceClear opens the gate immediately and is safe to repeat.
func TestCooldown_ForceClear(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	c := NewCooldown(context.Background(), WithClock(clock.Now))

	c.Start(time.Minute)
	require.True(t, c.IsActive(clock.Now()))

	c.ForceClear()
	c.ForceClear()

	require.False(t, c.IsActive(clock.Now()))

	// A zero duration never closes the gate.
	c.Start(0)
	require.False(t, c.IsActive(clock.Now()))
}

// TestCooldown_TimerClearsFlag lets the internal timer open the gate.
func TestCooldown_TimerClearsFlag(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		c := NewCooldown(context.Background())

		c.Start(5 * time.Second)
		require.True(t, c.IsActive(time.Now()))

		time.Sleep(5 * time.Second)
		synctest.Wait()

		c.mu.Lock()
		active := c.active
		c.mu.Unlock()

		require.False(t, active)
	})
}

// TestCooldown_StaleTimerIgnored checks that an old timer cannot end a newer cooldown.
func TestCooldown_StaleTimerIgnored(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		c := NewCooldown(context.Background())

		c.Start(time.Second)
		generation := c.generation

		c.Start(10 * time.Second)

		// Simulate the first timer firing late.
		c.expire(generation)
		require.True(t, c.IsActive(time.Now()))

		time.Sleep(10 * time.Second)
		require.False(t, c.IsActive(time.Now()))
	})
}
