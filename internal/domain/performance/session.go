package performance

import (
	"slices"
	"time"
)

// State is the orchestrator state machine position.
type State int

// Orchestrator states. Failures collapse back into StateIdle.
const (
	StateIdle State = iota
	StateArming
	StateActive
	StateCompleting
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateArming:
		return "arming"
	case StateActive:
		return "active"
	case StateCompleting:
		return "completing"
	default:
		return "idle"
	}
}

// Outcome tells how a session ended.
type Outcome int

// Session outcomes.
const (
	OutcomeCompleted Outcome = iota + 1
	OutcomeForced
	OutcomeFailed
)

// String returns the lower-case outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeForced:
		return "forced"
	case OutcomeFailed:
		return "failed"
	default:
		return "none"
	}
}

// ParseOutcome converts the text form back into an Outcome. Unknown text maps to zero.
func ParseOutcome(s string) Outcome {
	switch s {
	case "completed":
		return OutcomeCompleted
	case "forced":
		return OutcomeForced
	case "failed":
		return OutcomeFailed
	default:
		return 0
	}
}

// Session describes the single live performance.
type Session struct {
	// ID uniquely identifies the session in logs and completion callbacks.
	ID string
	// Source is the input that caused the trigger.
	Source TriggerSource
	// Clip is the audio clip being performed.
	Clip string
	// AudioDuration is computed once while arming and shared by audio and actuators.
	AudioDuration time.Duration
	// Words are the word intervals driving the mouth, possibly empty.
	Words []WordInterval
	// StartedAt is when the session reached the active state.
	StartedAt time.Time
	// ReachedActive is set once playback has started.
	ReachedActive bool
}

// Clone returns a copy of the session to avoid leaking internal references.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	cloned := *s
	cloned.Words = slices.Clone(s.Words)

	return &cloned
}

// ActuatorState is the last commanded state of the outputs.
type ActuatorState struct {
	MouthOpen       bool
	HeadTorsoMoving bool
	Direction       Direction
	EyesOn          bool
}

// Idle reports whether every actuator is in its safe state.
func (a ActuatorState) Idle() bool {
	return !a.MouthOpen && !a.HeadTorsoMoving && !a.EyesOn
}

// Stats accumulates performance history across restarts.
type Stats struct {
	// Performances counts sessions that reached the active state.
	Performances int64
	// Rejected counts triggers that were not accepted.
	Rejected int64
	// LastSource is the source of the most recent performance.
	LastSource TriggerSource
	// LastClip is the clip of the most recent performance.
	LastClip string
	// LastStartedAt is when the most recent performance started.
	LastStartedAt time.Time
	// LastFinishedAt is when the most recent performance ended.
	LastFinishedAt time.Time
	// LastOutcome is how the most recent performance ended.
	LastOutcome Outcome
}

// Status is the externally visible snapshot of the prop.
type Status struct {
	Active            bool
	State             State
	CooldownActive    bool
	CooldownRemaining time.Duration
	Session           *Session
	Actuators         ActuatorState
	Stats             Stats
}

// TriggerRequest asks for one performance.
type TriggerRequest struct {
	// Source is the input that caused the trigger.
	Source TriggerSource
	// Clip overrides the default clip when set.
	Clip string
	// Actor names who asked, for audit logs.
	Actor string
}
