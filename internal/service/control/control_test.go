package control

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/oshokin/ghost-host/internal/api/grpc/prop"
	"github.com/oshokin/ghost-host/internal/config"
	domain "github.com/oshokin/ghost-host/internal/domain/performance"
)

// stubService accepts the first trigger and rejects the rest with a cooldown.
type stubService struct {
	triggered int
	last      domain.TriggerRequest
}

func (s *stubService) Trigger(_ context.Context, req domain.TriggerRequest) error {
	s.triggered++
	s.last = req

	if s.triggered > 1 {
		return domain.ErrInCooldown
	}

	return nil
}

func (s *stubService) ForceStop(context.Context) bool        { return true }
func (s *stubService) ForceEndCooldown(context.Context) bool { return false }
func (s *stubService) Status(context.Context) domain.Status {
	return domain.Status{
		State:   domain.StateActive,
		Active:  true,
		Session: &domain.Session{ID: "s-1", Source: domain.SourceManual, Clip: "boo.wav", AudioDuration: 2 * time.Second},
	}
}

func startStub(t *testing.T, svc *stubService) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	prop.RegisterPropServiceServer(srv, prop.NewServer(svc))

	go func() { _ = srv.Serve(lis) }()

	t.Cleanup(srv.Stop)

	return lis.Addr().String()
}

// TestRun_Actions performs every action against a stub daemon.
func TestRun_Actions(t *testing.T) {
	t.Parallel()

	svc := new(stubService)
	addr := startStub(t, svc)

	cfgPath := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, config.Save(cfgPath, config.Default()))

	run := func(action Action, source string) (string, error) {
		var out bytes.Buffer

		err := Run(context.Background(), &Options{
			ConfigPath:    cfgPath,
			ServerAddress: addr,
			Action:        action,
			Source:        source,
			Clip:          "boo.wav",
			Out:           &out,
		})

		return out.String(), err
	}

	out, err := run(ActionTrigger, "b")
	require.NoError(t, err)
	require.Equal(t, "performance started: s-1\n", out)
	require.Equal(t, domain.SourceChannelB, svc.last.Source)
	require.Equal(t, "boo.wav", svc.last.Clip)

	_, err = run(ActionTrigger, "")
	require.ErrorIs(t, err, ErrRejected)
	require.ErrorContains(t, err, "in_cooldown")

	_, err = run(ActionTrigger, "doorbell")
	require.ErrorIs(t, err, domain.ErrUnknownSource)

	out, err = run(ActionStop, "")
	require.NoError(t, err)
	require.Equal(t, "stopped\n", out)

	out, err = run(ActionEndCooldown, "")
	require.NoError(t, err)
	require.Equal(t, "no cooldown running\n", out)

	out, err = run(ActionStatus, "")
	require.NoError(t, err)
	require.Contains(t, out, "state:       active")
	require.Contains(t, out, "s-1 (manual, boo.wav, 2s)")

	_, err = run(Action(99), "")
	require.Error(t, err)
}

// TestFormatStatus renders cooldown and history lines.
func TestFormatStatus(t *testing.T) {
	t.Parallel()

	out := FormatStatus(domain.Status{
		CooldownActive:    true,
		CooldownRemaining: 12400 * time.Millisecond,
		Actuators:         domain.ActuatorState{HeadTorsoMoving: true, Direction: domain.DirectionRight},
		Stats: domain.Stats{
			Performances:  2,
			Rejected:      1,
			LastSource:    domain.SourceChannelA,
			LastClip:      "boo.wav",
			LastStartedAt: time.Date(2025, 10, 31, 20, 0, 0, 0, time.UTC),
			LastOutcome:   domain.OutcomeCompleted,
		},
	})

	require.Contains(t, out, "cooldown:    12s left")
	require.Contains(t, out, "mouth:       closed")
	require.Contains(t, out, "head/torso:  moving right")
	require.Contains(t, out, "eyes:        off")
	require.Contains(t, out, "performed:   2 (rejected 1)")
	require.Contains(t, out, "boo.wav from channel_a at")
	require.Contains(t, out, "completed")
}
