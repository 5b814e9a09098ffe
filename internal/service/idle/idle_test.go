package idle

import (
	"context"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ghost-host/internal/actuator"
	domain "github.com/oshokin/ghost-host/internal/domain/performance"
)

// lookCall is one recorded look-around.
type lookCall struct {
	at        time.Duration
	direction domain.Direction
}

// fakeTarget records look-arounds and answers with queued errors.
type fakeTarget struct {
	mu    sync.Mutex
	start time.Time
	errs  []error
	calls []lookCall
}

func (f *fakeTarget) LookAround(_ context.Context, direction domain.Direction, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}

	if err == nil {
		f.calls = append(f.calls, lookCall{at: time.Since(f.start), direction: direction})
	}

	return err
}

// TestNew_Validation rejects a missing target and non-positive timing.
func TestNew_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := New(ctx, nil, time.Minute, time.Second, domain.DirectionLeft)
	require.Error(t, err)

	_, err = New(ctx, new(fakeTarget), 0, time.Second, domain.DirectionLeft)
	require.Error(t, err)

	_, err = New(ctx, new(fakeTarget), time.Minute, 0, domain.DirectionLeft)
	require.Error(t, err)
}

// TestScheduler_Alternates runs on the cron cadence and alternates direction.
func TestScheduler_Alternates(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		target := &fakeTarget{start: time.Now()}

		s, err := New(context.Background(), target, time.Minute, 5*time.Second, domain.DirectionRight)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		go func() { done <- s.Run(ctx) }()

		time.Sleep(3*time.Minute + time.Second)
		synctest.Wait()

		cancel()
		require.NoError(t, <-done)

		target.mu.Lock()
		defer target.mu.Unlock()

		require.Equal(t, []lookCall{
			{at: time.Minute, direction: domain.DirectionRight},
			{at: 2 * time.Minute, direction: domain.DirectionLeft},
			{at: 3 * time.Minute, direction: domain.DirectionRight},
		}, target.calls)
	})
}

// TestTick_SkipsWhileBusy keeps the direction when the prop is busy.
func TestTick_SkipsWhileBusy(t *testing.T) {
	t.Parallel()

	target := &fakeTarget{errs: []error{domain.ErrAlreadyActive, actuator.ErrBusy}}

	s, err := New(context.Background(), target, time.Minute, time.Second, domain.DirectionLeft)
	require.NoError(t, err)

	s.Tick()
	s.Tick()
	s.Tick()
	s.Tick()

	require.Len(t, target.calls, 2)
	require.Equal(t, domain.DirectionLeft, target.calls[0].direction)
	require.Equal(t, domain.DirectionRight, target.calls[1].direction)
}
