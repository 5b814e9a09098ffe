package prop

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/ghost-host/internal/domain/performance"
)

// Message field names.
const (
	fieldSource            = "source"
	fieldClip              = "clip"
	fieldActor             = "actor"
	fieldAccepted          = "accepted"
	fieldReason            = "reason"
	fieldSessionID         = "session_id"
	fieldStopped           = "stopped"
	fieldCleared           = "cleared"
	fieldActive            = "active"
	fieldState             = "state"
	fieldCooldownActive    = "cooldown_active"
	fieldCooldownRemaining = "cooldown_remaining_ms"
	fieldSession           = "session"
	fieldActuators         = "actuators"
	fieldStats             = "stats"
	fieldID                = "id"
	fieldAudioDuration     = "audio_duration_ms"
	fieldWords             = "words"
	fieldStartedAt         = "started_at"
	fieldMouthOpen         = "mouth_open"
	fieldHeadTorsoMoving   = "head_torso_moving"
	fieldDirection         = "direction"
	fieldEyesOn            = "eyes_on"
	fieldPerformances      = "performances"
	fieldRejected          = "rejected"
	fieldLastSource        = "last_source"
	fieldLastClip          = "last_clip"
	fieldLastStartedAt     = "last_started_at"
	fieldLastFinishedAt    = "last_finished_at"
	fieldLastOutcome       = "last_outcome"
)

// Reason reported when a trigger was dropped by a forced stop while arming.
const reasonAborted = "aborted"

// TriggerReply is the decoded answer to a trigger request.
type TriggerReply struct {
	// Accepted is true when a performance started.
	Accepted bool
	// Reason is the rejection reason when not accepted.
	Reason string
	// SessionID identifies the started performance.
	SessionID string
}

// NewTriggerRequest encodes a trigger request.
func NewTriggerRequest(req domain.TriggerRequest) *structpb.Struct {
	fields := map[string]*structpb.Value{
		fieldSource: structpb.NewStringValue(req.Source.String()),
	}

	if req.Clip != "" {
		fields[fieldClip] = structpb.NewStringValue(req.Clip)
	}

	if req.Actor != "" {
		fields[fieldActor] = structpb.NewStringValue(req.Actor)
	}

	return &structpb.Struct{Fields: fields}
}

// ParseTriggerRequest decodes a trigger request. A missing source means manual.
func ParseTriggerRequest(msg *structpb.Struct) (domain.TriggerRequest, error) {
	fields := msg.GetFields()

	source, err := domain.ParseTriggerSource(fields[fieldSource].GetStringValue())
	if err != nil {
		return domain.TriggerRequest{}, err
	}

	return domain.TriggerRequest{
		Source: source,
		Clip:   fields[fieldClip].GetStringValue(),
		Actor:  fields[fieldActor].GetStringValue(),
	}, nil
}

func toProtoTriggerReply(reply TriggerReply) *structpb.Struct {
	fields := map[string]*structpb.Value{
		fieldAccepted: structpb.NewBoolValue(reply.Accepted),
	}

	if reply.Reason != "" {
		fields[fieldReason] = structpb.NewStringValue(reply.Reason)
	}

	if reply.SessionID != "" {
		fields[fieldSessionID] = structpb.NewStringValue(reply.SessionID)
	}

	return &structpb.Struct{Fields: fields}
}

// ParseTriggerReply decodes the answer to a trigger request.
func ParseTriggerReply(msg *structpb.Struct) TriggerReply {
	fields := msg.GetFields()

	return TriggerReply{
		Accepted:  fields[fieldAccepted].GetBoolValue(),
		Reason:    fields[fieldReason].GetStringValue(),
		SessionID: fields[fieldSessionID].GetStringValue(),
	}
}

func toProtoFlag(name string, value bool) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			name: structpb.NewBoolValue(value),
		},
	}
}

// ParseStopReply reports whether a forced stop ended anything.
func ParseStopReply(msg *structpb.Struct) bool {
	return msg.GetFields()[fieldStopped].GetBoolValue()
}

// ParseEndCooldownReply reports whether a cooldown was cleared.
func ParseEndCooldownReply(msg *structpb.Struct) bool {
	return msg.GetFields()[fieldCleared].GetBoolValue()
}

// ToProtoStatus encodes a status snapshot.
func ToProtoStatus(status domain.Status) *structpb.Struct {
	fields := map[string]*structpb.Value{
		fieldActive:            structpb.NewBoolValue(status.Active),
		fieldState:             structpb.NewStringValue(status.State.String()),
		fieldCooldownActive:    structpb.NewBoolValue(status.CooldownActive),
		fieldCooldownRemaining: millis(status.CooldownRemaining),
		fieldActuators: structpb.NewStructValue(&structpb.Struct{
			Fields: map[string]*structpb.Value{
				fieldMouthOpen:       structpb.NewBoolValue(status.Actuators.MouthOpen),
				fieldHeadTorsoMoving: structpb.NewBoolValue(status.Actuators.HeadTorsoMoving),
				fieldDirection:       structpb.NewStringValue(status.Actuators.Direction.String()),
				fieldEyesOn:          structpb.NewBoolValue(status.Actuators.EyesOn),
			},
		}),
		fieldStats: structpb.NewStructValue(toProtoStats(status.Stats)),
	}

	if status.Session != nil {
		fields[fieldSession] = structpb.NewStructValue(toProtoSession(status.Session))
	}

	return &structpb.Struct{Fields: fields}
}

func toProtoSession(session *domain.Session) *structpb.Struct {
	fields := map[string]*structpb.Value{
		fieldID:            structpb.NewStringValue(session.ID),
		fieldSource:        structpb.NewStringValue(session.Source.String()),
		fieldClip:          structpb.NewStringValue(session.Clip),
		fieldAudioDuration: millis(session.AudioDuration),
		fieldWords:         structpb.NewNumberValue(float64(len(session.Words))),
	}

	if !session.StartedAt.IsZero() {
		fields[fieldStartedAt] = timestamp(session.StartedAt)
	}

	return &structpb.Struct{Fields: fields}
}

func toProtoStats(stats domain.Stats) *structpb.Struct {
	fields := map[string]*structpb.Value{
		fieldPerformances: structpb.NewNumberValue(float64(stats.Performances)),
		fieldRejected:     structpb.NewNumberValue(float64(stats.Rejected)),
		fieldLastClip:     structpb.NewStringValue(stats.LastClip),
		fieldLastOutcome:  structpb.NewStringValue(stats.LastOutcome.String()),
	}

	if stats.LastSource.Valid() {
		fields[fieldLastSource] = structpb.NewStringValue(stats.LastSource.String())
	}

	if !stats.LastStartedAt.IsZero() {
		fields[fieldLastStartedAt] = timestamp(stats.LastStartedAt)
	}

	if !stats.LastFinishedAt.IsZero() {
		fields[fieldLastFinishedAt] = timestamp(stats.LastFinishedAt)
	}

	return &structpb.Struct{Fields: fields}
}

// ParseStatus decodes a status snapshot. Word intervals are not carried over
// the wire, only their count, so the decoded session has a nil Words slice.
func ParseStatus(msg *structpb.Struct) domain.Status {
	fields := msg.GetFields()

	status := domain.Status{
		Active:            fields[fieldActive].GetBoolValue(),
		State:             parseState(fields[fieldState].GetStringValue()),
		CooldownActive:    fields[fieldCooldownActive].GetBoolValue(),
		CooldownRemaining: fromMillis(fields[fieldCooldownRemaining]),
	}

	actuators := fields[fieldActuators].GetStructValue().GetFields()
	status.Actuators.MouthOpen = actuators[fieldMouthOpen].GetBoolValue()
	status.Actuators.HeadTorsoMoving = actuators[fieldHeadTorsoMoving].GetBoolValue()
	status.Actuators.EyesOn = actuators[fieldEyesOn].GetBoolValue()

	if direction, err := domain.ParseDirection(actuators[fieldDirection].GetStringValue()); err == nil {
		status.Actuators.Direction = direction
	}

	if session := fields[fieldSession].GetStructValue(); session != nil {
		status.Session = parseSession(session)
	}

	status.Stats = parseStats(fields[fieldStats].GetStructValue())

	return status
}

func parseSession(msg *structpb.Struct) *domain.Session {
	fields := msg.GetFields()

	session := &domain.Session{
		ID:            fields[fieldID].GetStringValue(),
		Clip:          fields[fieldClip].GetStringValue(),
		AudioDuration: fromMillis(fields[fieldAudioDuration]),
		StartedAt:     parseTimestamp(fields[fieldStartedAt]),
	}

	if source, err := domain.ParseTriggerSource(fields[fieldSource].GetStringValue()); err == nil {
		session.Source = source
	}

	session.ReachedActive = !session.StartedAt.IsZero()

	return session
}

func parseStats(msg *structpb.Struct) domain.Stats {
	fields := msg.GetFields()

	stats := domain.Stats{
		Performances:   int64(fields[fieldPerformances].GetNumberValue()),
		Rejected:       int64(fields[fieldRejected].GetNumberValue()),
		LastClip:       fields[fieldLastClip].GetStringValue(),
		LastOutcome:    domain.ParseOutcome(fields[fieldLastOutcome].GetStringValue()),
		LastStartedAt:  parseTimestamp(fields[fieldLastStartedAt]),
		LastFinishedAt: parseTimestamp(fields[fieldLastFinishedAt]),
	}

	if name := fields[fieldLastSource].GetStringValue(); name != "" {
		if source, err := domain.ParseTriggerSource(name); err == nil {
			stats.LastSource = source
		}
	}

	return stats
}

func parseState(s string) domain.State {
	for _, state := range []domain.State{domain.StateArming, domain.StateActive, domain.StateCompleting} {
		if state.String() == s {
			return state
		}
	}

	return domain.StateIdle
}

func millis(d time.Duration) *structpb.Value {
	return structpb.NewNumberValue(float64(d.Milliseconds()))
}

func fromMillis(v *structpb.Value) time.Duration {
	return time.Duration(v.GetNumberValue()) * time.Millisecond
}

func timestamp(t time.Time) *structpb.Value {
	return structpb.NewStringValue(t.UTC().Format(time.RFC3339Nano))
}

func parseTimestamp(v *structpb.Value) time.Time {
	s := v.GetStringValue()
	if s == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}

	return t
}
