// Package auth implements the credential and session core of the service:
// password hashing, signed session tokens, the password-reset lifecycle and
// the flows that compose them (signup, login, forgot/reset/update password).
package auth

import "net/http"

// Error is a domain error carrying the HTTP status it should surface with.
// Handlers translate these into the JSON error envelope unchanged; anything
// that is not an *Error is reported as an opaque 500 so internal details
// never leak to clients.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// NewError builds a domain error with an explicit status and message.
func NewError(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Unauthenticated returns a 401 with a case-specific message. The session
// middleware uses different messages for missing token, stale token and
// deleted account, all sharing the same status.
func Unauthenticated(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: message}
}

// Sentinel domain errors. Login and update-password deliberately share
// ErrInvalidCredentials so callers cannot tell an unknown email from a wrong
// password, and reset-token failures never distinguish "not found" from
// "expired".
var (
	ErrInvalidCredentials = &Error{Status: http.StatusUnauthorized, Message: "invalid email or password"}
	ErrForbidden          = &Error{Status: http.StatusForbidden, Message: "you do not have permission to perform this action"}
	ErrEmailNotFound      = &Error{Status: http.StatusNotFound, Message: "there is no user with that email address"}
	ErrResetToken         = &Error{Status: http.StatusBadRequest, Message: "token is invalid or has expired"}
	ErrDeliveryFailed     = &Error{Status: http.StatusInternalServerError, Message: "there was an error sending the email, try again later"}
	ErrEmailExists        = &Error{Status: http.StatusConflict, Message: "email already exists"}
)
