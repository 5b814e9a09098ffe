package performance

import (
	"fmt"
	"time"
)

// CommandKind enumerates the actuator vocabulary.
type CommandKind int

// Actuator command kinds.
const (
	CommandMouthOpen CommandKind = iota + 1
	CommandMouthClose
	CommandHeadTorsoDrive
	CommandHeadTorsoStop
	CommandEyesOn
	CommandEyesOff
)

// ActuatorCommand is the only vocabulary emitted towards the actuator interface.
// Direction is meaningful for CommandHeadTorsoDrive only.
type ActuatorCommand struct {
	Kind      CommandKind
	Direction Direction
}

// MouthOpen returns the command opening the mouth.
func MouthOpen() ActuatorCommand {
	return ActuatorCommand{Kind: CommandMouthOpen}
}

// MouthClose returns the command closing the mouth.
func MouthClose() ActuatorCommand {
	return ActuatorCommand{Kind: CommandMouthClose}
}

// HeadTorsoDrive returns the command driving head and torso in direction d.
func HeadTorsoDrive(d Direction) ActuatorCommand {
	return ActuatorCommand{Kind: CommandHeadTorsoDrive, Direction: d}
}

// HeadTorsoStop returns the command stopping head and torso.
func HeadTorsoStop() ActuatorCommand {
	return ActuatorCommand{Kind: CommandHeadTorsoStop}
}

// EyesOn returns the command lighting the eyes.
func EyesOn() ActuatorCommand {
	return ActuatorCommand{Kind: CommandEyesOn}
}

// EyesOff returns the command switching the eyes off.
func EyesOff() ActuatorCommand {
	return ActuatorCommand{Kind: CommandEyesOff}
}

// IsStop reports whether the command puts an actuator into its safe state.
func (c ActuatorCommand) IsStop() bool {
	return c.Kind == CommandMouthClose || c.Kind == CommandHeadTorsoStop || c.Kind == CommandEyesOff
}

// String renders the command for logs.
func (c ActuatorCommand) String() string {
	switch c.Kind {
	case CommandMouthOpen:
		return "mouth_open"
	case CommandMouthClose:
		return "mouth_close"
	case CommandHeadTorsoDrive:
		return "head_torso_drive_" + c.Direction.String()
	case CommandHeadTorsoStop:
		return "head_torso_stop"
	case CommandEyesOn:
		return "eyes_on"
	case CommandEyesOff:
		return "eyes_off"
	default:
		return fmt.Sprintf("command(%d)", int(c.Kind))
	}
}

// WordInterval is the span of one spoken word, as offsets from clip start.
type WordInterval struct {
	Start time.Duration
	End   time.Duration
}

// Length returns End-Start, never negative.
func (w WordInterval) Length() time.Duration {
	if w.End < w.Start {
		return 0
	}

	return w.End - w.Start
}
