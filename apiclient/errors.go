package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/vistara-dashboard/internal/errors"
)

// Kind classifies an APIError.
type Kind int

const (
	// KindTransport covers network failures and non-2xx responses.
	KindTransport Kind = iota
	// KindEnvelope is a well-formed response whose envelope reports failure.
	KindEnvelope
	// KindUnauthorized is a 401, or a request that could not obtain a token.
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindEnvelope:
		return "envelope"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "transport"
	}
}

// APIError is the normalised failure of an upstream call.
type APIError struct {
	Kind       Kind
	StatusCode int    // 0 for network failures
	Message    string // server message, surfaced verbatim
	Code       string
	Details    []byte // raw JSON details, if any
	RequestID  string
	Err        error // underlying cause, if any
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("vistara api %s error (status %d, code %s): %s", e.Kind, e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("vistara api %s error (status %d): %s", e.Kind, e.StatusCode, msg)
}

// Is maps the error onto the sentinels of internal/errors.
func (e *APIError) Is(target error) bool {
	switch e.Kind {
	case KindUnauthorized:
		return target == apperrors.ErrUnauthorized
	case KindEnvelope:
		return target == apperrors.ErrEnvelope
	}
	switch e.StatusCode {
	case 0:
		return target == apperrors.ErrTransport
	case http.StatusBadRequest:
		return target == apperrors.ErrBadRequest
	case http.StatusUnauthorized:
		return target == apperrors.ErrUnauthorized
	case http.StatusForbidden:
		return target == apperrors.ErrForbidden
	case http.StatusNotFound:
		return target == apperrors.ErrNotFound
	case http.StatusConflict:
		return target == apperrors.ErrConflict
	case http.StatusUnprocessableEntity:
		return target == apperrors.ErrUnprocessable
	case http.StatusTooManyRequests:
		return target == apperrors.ErrRateLimited
	}
	if e.StatusCode >= 500 && e.StatusCode < 600 {
		return target == apperrors.ErrServerError
	}
	return target == apperrors.ErrTransport
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether retrying err could succeed: network failures,
// rate limiting and 5xx responses. Cancellation, 401, envelope and other 4xx
// errors are final.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Kind != KindTransport || errors.Is(apiErr.Err, apperrors.ErrRedirectLoop) {
		return false
	}
	switch {
	case apiErr.StatusCode == 0:
		return true
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return true
	case apiErr.StatusCode >= 500:
		return true
	}
	return false
}

// Message returns the user-facing message of err: the server's message for
// API errors, the error text otherwise.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func newAPIErrorFromResponse(statusCode int, body []byte, requestID string) *APIError {
	apiErr := &APIError{
		Kind:       KindTransport,
		StatusCode: statusCode,
		RequestID:  requestID,
	}
	if statusCode == http.StatusUnauthorized {
		apiErr.Kind = KindUnauthorized
	}

	if env, err := decodeEnvelope(body); err == nil && env.Shape != ShapeBare {
		apiErr.Message = env.Message
		apiErr.Code = env.Code
		apiErr.Details = env.Details
		if env.RequestID != "" {
			apiErr.RequestID = env.RequestID
		}
	} else if msg := detailMessage(body); msg != "" {
		apiErr.Message = msg
	}

	if apiErr.Message == "" {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		apiErr.Message = preview
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(statusCode)
	}
	return apiErr
}
