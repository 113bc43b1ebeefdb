package services

import "errors"

var (
	// ErrNotParticipant is returned when a user comments on an event
	// without having answered it.
	ErrNotParticipant = errors.New("user has not answered the event")
	// ErrPermissionDenied is returned when a non-administrator calls an
	// administrator command.
	ErrPermissionDenied = errors.New("permission denied")
)

// ValidationError reports malformed user input together with the expected format.
type ValidationError struct {
	Reason string
	Usage  string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + e.Reason
}
