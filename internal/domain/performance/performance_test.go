package performance

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestParseTriggerSource checks the text round trip and the manual default.
func TestParseTriggerSource(t *testing.T) {
	t.Parallel()

	for _, source := range []TriggerSource{SourceChannelA, SourceChannelB, SourceManual, SourceNetwork} {
		parsed, err := ParseTriggerSource(source.String())
		require.NoError(t, err)
		require.Equal(t, source, parsed)
		require.True(t, parsed.Valid())
	}

	parsed, err := ParseTriggerSource("")
	require.NoError(t, err)
	require.Equal(t, SourceManual, parsed)

	_, err = ParseTriggerSource("doorbell")
	require.ErrorIs(t, err, ErrUnknownSource)
	require.False(t, TriggerSource(0).Valid())
}

// TestDirection verifies parsing and alternation.
func TestDirection(t *testing.T) {
	t.Parallel()

	d, err := ParseDirection("Right")
	require.NoError(t, err)
	require.Equal(t, DirectionRight, d)
	require.Equal(t, DirectionLeft, d.Opposite())

	_, err = ParseDirection("up")
	require.ErrorIs(t, err, ErrUnknownDirection)
}

// TestRejectedError_Is verifies reasons are matched through wrapping.
func TestRejectedError_Is(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("trigger: %w", &RejectedError{Reason: ReasonInCooldown})

	require.ErrorIs(t, err, ErrInCooldown)
	require.NotErrorIs(t, err, ErrAlreadyActive)

	reason, ok := ReasonOf(err)
	require.True(t, ok)
	require.Equal(t, ReasonInCooldown, reason)

	_, ok = ReasonOf(errors.New("boom"))
	require.False(t, ok)
}

// TestActuatorCommand_IsStop separates safe-state commands from activating ones.
func TestActuatorCommand_IsStop(t *testing.T) {
	t.Parallel()

	require.True(t, MouthClose().IsStop())
	require.True(t, HeadTorsoStop().IsStop())
	require.True(t, EyesOff().IsStop())
	require.False(t, EyesOn().IsStop())
	require.False(t, MouthOpen().IsStop())
	require.False(t, HeadTorsoDrive(DirectionRight).IsStop())
	require.Equal(t, "head_torso_drive_right", HeadTorsoDrive(DirectionRight).String())
}

// TestSessionClone verifies that Clone copies word intervals.
func TestSessionClone(t *testing.T) {
	t.Parallel()

	require.Nil(t, (*Session)(nil).Clone())

	s := &Session{
		ID:    "s-1",
		Words: []WordInterval{{Start: time.Second, End: 2 * time.Second}},
	}

	c := s.Clone()
	require.Equal(t, s, c)

	c.Words[0].Start = 0
	require.Equal(t, time.Second, s.Words[0].Start)
}

// TestWordInterval_Length never reports a negative span.
func TestWordInterval_Length(t *testing.T) {
	t.Parallel()

	require.Equal(t, 400*time.Millisecond, WordInterval{Start: 500 * time.Millisecond, End: 900 * time.Millisecond}.Length())
	require.Zero(t, WordInterval{Start: time.Second, End: 0}.Length())
}
