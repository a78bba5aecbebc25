package services

import "errors"

// Error kinds. Controllers map them to HTTP status codes with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidDoctor     = errors.New("invalid doctor")
	ErrSlotConflict      = errors.New("slot conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDuplicateEmail    = errors.New("duplicate email")
	ErrNotFound          = errors.New("not found")
	ErrAccessDenied      = errors.New("access denied")
	ErrUnauthenticated   = errors.New("unauthenticated")
)

// Error pairs a kind with the message shown to the client.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func fail(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Message returns the client-facing message carried by err, or "" when err
// is not a service error.
func Message(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return ""
}
