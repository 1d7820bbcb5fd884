package errors

import (
	"errors"
	"fmt"
)

// Common error types for the dashboard
var (
	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired")
	ErrInvalidSession   = errors.New("invalid session")
	ErrLoginInProgress  = errors.New("login already in progress")

	// Token errors
	ErrInvalidToken   = errors.New("invalid token")
	ErrMissingExpiry  = errors.New("token has no expiry")
	ErrTokenExpired   = errors.New("token expired")
	ErrCorruptedState = errors.New("persisted state is corrupted")

	// Upstream API errors
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrBadRequest    = errors.New("bad request")
	ErrConflict      = errors.New("resource conflict")
	ErrUnprocessable = errors.New("unprocessable entity")
	ErrRateLimited   = errors.New("rate limited")
	ErrServerError   = errors.New("server error")
	ErrTransport     = errors.New("transport error")
	ErrEnvelope      = errors.New("envelope error")
	ErrRedirectLoop  = errors.New("redirect not corrected")
	ErrEmptyPayload  = errors.New("response has no data")

	// Input errors
	ErrInvalidInput = errors.New("invalid input")

	// General errors
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
