package payu

import (
	"errors"
	"fmt"
)

// Error represents a PayU API interaction failure with a stable,
// machine-readable code. Tool handlers surface these codes verbatim
// to the MCP client.
type Error struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeConfig     = "config_error"
	ErrCodeValidation = "validation_error"
	ErrCodeAuth       = "auth_error"
	ErrCodeUpstream   = "upstream_error"
	ErrCodeNetwork    = "network_error"
)

// NewError creates a new PayU error
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewValidationError marks caller-supplied input as malformed. These are
// reported back as tool-result errors, never retried.
func NewValidationError(message string) *Error {
	return &Error{Code: ErrCodeValidation, Message: message}
}

// NewAuthError marks a rejected credential or token.
func NewAuthError(message string) *Error {
	return &Error{Code: ErrCodeAuth, Message: message}
}

// NewUpstreamError wraps a non-2xx response, keeping the raw status and
// body for diagnosis.
func NewUpstreamError(status int, body string) *Error {
	return &Error{
		Code:       ErrCodeUpstream,
		Message:    fmt.Sprintf("unexpected response from PayU API (status %d)", status),
		StatusCode: status,
		Details:    map[string]interface{}{"body": body},
	}
}

// NewNetworkError marks a transport failure after retries were exhausted.
func NewNetworkError(err error) *Error {
	return &Error{
		Code:    ErrCodeNetwork,
		Message: fmt.Sprintf("PayU API unreachable: %v", err),
	}
}

// AsError extracts an *Error from err, wrapping unknown errors as
// network failures so no untyped error escapes the package boundary.
func AsError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewNetworkError(err)
}

// CodeOf returns the stable code carried by err, or network_error for
// untyped errors.
func CodeOf(err error) string {
	return AsError(err).Code
}
