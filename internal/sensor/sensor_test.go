package sensor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ghost-host/internal/domain/performance"
	"github.com/oshokin/ghost-host/internal/gate"
)

// fakeLevels is a LevelReader whose levels are set by the test.
type fakeLevels struct {
	// mu protects levels and err.
	mu sync.Mutex
	// levels holds the current level per channel.
	levels map[performance.TriggerSource]bool
	// err fails every read when set.
	err error
}

func (f *fakeLevels) set(channel performance.TriggerSource, level bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.levels == nil {
		f.levels = make(map[performance.TriggerSource]bool)
	}

	f.levels[channel] = level
}

// Level returns the configured level.
func (f *fakeLevels) Level(channel performance.TriggerSource) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.levels[channel], f.err
}

// collector records handled edges.
type collector struct {
	mu    sync.Mutex
	edges []performance.TriggerSource
}

func (c *collector) handle(_ context.Context, channel performance.TriggerSource) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.edges = append(c.edges, channel)
}

func (c *collector) seen() []performance.TriggerSource {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]performance.TriggerSource(nil), c.edges...)
}

// TestWatcher_RisingEdgesAreDebounced reports one edge per press and filters chatter.
func TestWatcher_RisingEdgesAreDebounced(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		levels := &fakeLevels{}
		edges := &collector{}
		watcher := NewWatcher(
			context.Background(),
			levels,
			gate.NewDebouncer(200*time.Millisecond),
			20*time.Millisecond,
			edges.handle,
		)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		go func() { done <- watcher.Run(ctx) }()

		// A held level is one edge.
		levels.set(performance.SourceChannelA, true)
		time.Sleep(100 * time.Millisecond)
		require.Equal(t, []performance.TriggerSource{performance.SourceChannelA}, edges.seen())

		// Chatter inside the window is ignored.
		levels.set(performance.SourceChannelA, false)
		time.Sleep(30 * time.Millisecond)
		levels.set(performance.SourceChannelA, true)
		time.Sleep(30 * time.Millisecond)
		require.Len(t, edges.seen(), 1)

		// The other channel is independent.
		levels.set(performance.SourceChannelB, true)
		time.Sleep(30 * time.Millisecond)
		require.Equal(t, []performance.TriggerSource{
			performance.SourceChannelA,
			performance.SourceChannelB,
		}, edges.seen())

		// A new press after the window is accepted.
		levels.set(performance.SourceChannelA, false)
		time.Sleep(300 * time.Millisecond)
		levels.set(performance.SourceChannelA, true)
		time.Sleep(30 * time.Millisecond)
		require.Len(t, edges.seen(), 3)

		cancel()
		require.NoError(t, <-done)
	})
}

// TestWatcher_ReadErrorsAreSkipped keeps polling through read failures.
func TestWatcher_ReadErrorsAreSkipped(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		levels := &fakeLevels{err: errors.New("bridge offline")}
		edges := &collector{}
		watcher := NewWatcher(
			context.Background(),
			levels,
			gate.NewDebouncer(200*time.Millisecond),
			20*time.Millisecond,
			edges.handle,
		)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		go func() { done <- watcher.Run(ctx) }()

		levels.set(performance.SourceChannelB, true)
		time.Sleep(100 * time.Millisecond)
		require.Empty(t, edges.seen())

		levels.mu.Lock()
		levels.err = nil
		levels.mu.Unlock()

		time.Sleep(30 * time.Millisecond)
		require.Equal(t, []performance.TriggerSource{performance.SourceChannelB}, edges.seen())

		cancel()
		require.NoError(t, <-done)
	})
}
