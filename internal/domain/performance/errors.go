package performance

import (
	"errors"
	"fmt"
)

// RejectReason tells why a trigger did not start a performance.
type RejectReason int

// Rejection reasons.
const (
	ReasonAlreadyActive RejectReason = iota + 1
	ReasonInCooldown
	ReasonDurationUnknown
)

// String returns the stable text form used in logs, metrics and the API.
func (r RejectReason) String() string {
	switch r {
	case ReasonAlreadyActive:
		return "already_active"
	case ReasonInCooldown:
		return "in_cooldown"
	case ReasonDurationUnknown:
		return "duration_unknown"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// RejectedError is returned by a trigger that was not accepted.
type RejectedError struct {
	Reason RejectReason
}

// Error implements error.
func (e *RejectedError) Error() string {
	return "trigger rejected: " + e.Reason.String()
}

// Is matches any RejectedError with the same reason.
func (e *RejectedError) Is(target error) bool {
	var other *RejectedError
	if !errors.As(target, &other) {
		return false
	}

	return other.Reason == e.Reason
}

var (
	// ErrAlreadyActive is returned while another performance is running.
	ErrAlreadyActive error = &RejectedError{Reason: ReasonAlreadyActive}
	// ErrInCooldown is returned while the cooldown gate is closed.
	ErrInCooldown error = &RejectedError{Reason: ReasonInCooldown}
	// ErrDurationUnknown is returned when the clip length cannot be determined.
	ErrDurationUnknown error = &RejectedError{Reason: ReasonDurationUnknown}
	// ErrAborted is returned when the attempt was force-stopped while arming.
	ErrAborted = errors.New("performance aborted while arming")
)

// ReasonOf extracts the rejection reason from err.
func ReasonOf(err error) (RejectReason, bool) {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Reason, true
	}

	return 0, false
}
