package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error codes. The prefix decides the HTTP status (see HTTPStatus).
const (
	// Validation (400)
	ErrCodeValidationMissingField          ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidInput          ErrorCode = "validation_invalid_input"
	ErrCodeValidationInvalidJSON           ErrorCode = "validation_invalid_json"
	ErrCodeValidationInvalidObligationType ErrorCode = "validation_invalid_obligation_type"
	ErrCodeValidationInvalidDateFormat     ErrorCode = "validation_invalid_date_format"
	ErrCodeValidationMissingToken          ErrorCode = "validation_missing_token"
	ErrCodeValidationInvalidFormat         ErrorCode = "validation_invalid_report_format"

	// Not Found (404)
	ErrCodeNotFoundMachine ErrorCode = "not_found_machine"
	ErrCodeNotFoundRoute   ErrorCode = "not_found_route"

	// Internal (500)
	ErrCodeInternalDB         ErrorCode = "internal_database_error"
	ErrCodeInternalStore      ErrorCode = "internal_store_error"
	ErrCodeInternalReport     ErrorCode = "internal_report_generation_failed"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"

	// Upstream (502)
	ErrCodeUpstreamPushProvider  ErrorCode = "upstream_push_provider_unavailable"
	ErrCodeUpstreamEmailProvider ErrorCode = "upstream_email_provider_unavailable"
	ErrCodeUpstreamStorage       ErrorCode = "upstream_storage_unavailable"
	ErrCodeUpstreamUnavailable   ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited   ErrorCode = "upstream_rate_limited"

	// Delivery refusals
	ErrCodeEmailBlocked      ErrorCode = "email_blocked"
	ErrCodePushTokenRejected ErrorCode = "push_token_rejected"
)

// HTTPStatus maps an ErrorCode to its HTTP status code.
// Unrecognized codes map to 500.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case s == string(ErrCodePushTokenRejected):
		return http.StatusBadRequest
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound
	case s == string(ErrCodeEmailBlocked):
		return http.StatusForbidden
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the error type shared by every layer. Handlers translate it
// into the API error envelope; anything else becomes a 500.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with details merged in.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError carrying structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

// IsCode reports whether the first AppError in err's chain has the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
