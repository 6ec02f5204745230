package errors

import (
	stderrors "errors"
	"fmt"
)

// Protocol errors. Their text is what the collaborator UI displays,
// so it is sent as-is in the "message" field of a failed response.
var (
	ErrUsernameTaken      = fmt.Errorf("Username already exists")
	ErrUsernameNotFound   = fmt.Errorf("Username not exists")
	ErrPeerDisconnected   = fmt.Errorf("User already Disconnected")
	ErrSelfRequest        = fmt.Errorf("You cannot add yourself")
	ErrInvalidStatus      = fmt.Errorf("Status must be accepted or declined")
	ErrConnectionNotFound = fmt.Errorf("Connection not found")
	ErrMalformedRequest   = fmt.Errorf("Malformed request")
	ErrAlreadyLoggedIn    = fmt.Errorf("Already logged in")
)

// Username validation errors, wrapped by ErrInvalidUsername.
var (
	ErrInvalidUsername    = fmt.Errorf("invalid username")
	ErrUsernameEmpty      = fmt.Errorf("Username is required.")
	ErrUsernameTooShort   = fmt.Errorf("Username must be at least 3 characters.")
	ErrUsernameWhitespace = fmt.Errorf("Username cannot contain spaces.")
)

// Runtime errors.
var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrEngineUnavailable = fmt.Errorf("relay engine unavailable")
	ErrSinkFull          = fmt.Errorf("connection sink full")
	ErrSinkClosed        = fmt.Errorf("connection sink closed")
	ErrEmptyWords        = fmt.Errorf("no censored words have been found")
)

// Client errors.
var (
	ErrRequestRejected = fmt.Errorf("request rejected")
	ErrNotConnected    = fmt.Errorf("not connected")
	ErrUnexpectedFrame = fmt.Errorf("unexpected frame")
)

const internalMessage = "Internal error"

// wireErrors are the errors whose text can be shown to a client.
// Order matters: detailed validation errors come before ErrInvalidUsername.
var wireErrors = []error{
	ErrUsernameTaken,
	ErrUsernameNotFound,
	ErrPeerDisconnected,
	ErrSelfRequest,
	ErrInvalidStatus,
	ErrConnectionNotFound,
	ErrMalformedRequest,
	ErrAlreadyLoggedIn,
	ErrUsernameEmpty,
	ErrUsernameTooShort,
	ErrUsernameWhitespace,
	ErrInvalidUsername,
}

// InvalidUsername wraps a detailed validation error so that both
// errors.Is(err, ErrInvalidUsername) and errors.Is(err, detail) hold.
func InvalidUsername(detail error) error {
	return fmt.Errorf("%w: %w", ErrInvalidUsername, detail)
}

// Is is errors.Is, so that importers of this package need no second errors import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// ToMessage maps an error to the text returned in a {success, message} response.
func ToMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, known := range wireErrors {
		if stderrors.Is(err, known) {
			return known.Error()
		}
	}
	return internalMessage
}

// IsProtocolError reports whether err is an expected, client-facing failure.
func IsProtocolError(err error) bool {
	return ToMessage(err) != internalMessage
}
