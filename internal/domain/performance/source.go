package performance

import (
	"errors"
	"fmt"
	"strings"
)

// TriggerSource identifies the input that caused a trigger.
type TriggerSource int

// Known trigger sources. The zero value is not a valid source.
const (
	SourceChannelA TriggerSource = iota + 1
	SourceChannelB
	SourceManual
	SourceNetwork
)

// ErrUnknownSource is returned when parsing an unknown trigger source name.
var ErrUnknownSource = errors.New("unknown trigger source")

// String returns the stable text form used in logs, metrics and the API.
func (s TriggerSource) String() string {
	switch s {
	case SourceChannelA:
		return "channel_a"
	case SourceChannelB:
		return "channel_b"
	case SourceManual:
		return "manual"
	case SourceNetwork:
		return "network"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// Valid reports whether s is one of the known sources.
func (s TriggerSource) Valid() bool {
	switch s {
	case SourceChannelA, SourceChannelB, SourceManual, SourceNetwork:
		return true
	default:
		return false
	}
}

// ParseTriggerSource converts the text form back into a TriggerSource.
// An empty string means a manual trigger.
func ParseTriggerSource(s string) (TriggerSource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "channel_a", "a":
		return SourceChannelA, nil
	case "channel_b", "b":
		return SourceChannelB, nil
	case "manual", "":
		return SourceManual, nil
	case "network":
		return SourceNetwork, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
}

// SensorChannels lists the physical inputs in polling order.
func SensorChannels() []TriggerSource {
	return []TriggerSource{SourceChannelA, SourceChannelB}
}

// Direction is the head/torso sweep direction.
type Direction int

// Sweep directions.
const (
	DirectionLeft Direction = iota
	DirectionRight
)

// ErrUnknownDirection is returned when parsing an unknown direction name.
var ErrUnknownDirection = errors.New("unknown direction")

// String returns "left" or "right".
func (d Direction) String() string {
	if d == DirectionRight {
		return "right"
	}

	return "left"
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == DirectionRight {
		return DirectionLeft
	}

	return DirectionRight
}

// ParseDirection converts "left"/"right" into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return DirectionLeft, nil
	case "right":
		return DirectionRight, nil
	default:
		return DirectionLeft, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
}
