package api

import (
	"fmt"
	"strings"

	apperrors "github.com/jrsteele09/vistara-dashboard/internal/errors"
	"github.com/jrsteele09/vistara-dashboard/users"
)

// ValidationError is a client-side input failure; the backend is not contacted.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Is implements errors.Is() for comparing with ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == apperrors.ErrInvalidInput
}

// Unwrap returns ErrInvalidInput for error chain.
func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

func validEmail(field, value string) error {
	if err := required(field, value); err != nil {
		return err
	}
	if err := users.ValidateEmail(value); err != nil {
		return &ValidationError{Field: field, Message: "must be a valid email address"}
	}
	return nil
}

func validPassword(field, value string) error {
	if err := users.ValidatePasswordStrength(value); err != nil {
		return &ValidationError{Field: field, Message: err.Error()}
	}
	return nil
}

func validRole(field string, role users.Role) error {
	if !role.Valid() {
		return &ValidationError{Field: field, Message: "must be admin or client"}
	}
	return nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
