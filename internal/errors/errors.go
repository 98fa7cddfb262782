// Package errors provides structured error handling with context propagation
// and fatality classification for the monitor loop.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error for logging and escalation policy.
type ErrorType string

const (
	// TypeConfiguration indicates invalid or missing configuration (fatal, startup-only)
	TypeConfiguration ErrorType = "configuration"
	// TypeAuthentication indicates rejected credentials or token acquisition failure
	TypeAuthentication ErrorType = "authentication"
	// TypeTransient indicates a recoverable fetch failure (network, 5xx, timeout)
	TypeTransient ErrorType = "transient"
	// TypeNotification indicates a notification delivery failure (never escalated)
	TypeNotification ErrorType = "notification"
)

// Error represents a structured error with type, message, and context.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Fatal reports whether this error must terminate the process on its own.
// Configuration errors are always fatal. Authentication errors are fatal
// only during initial token acquisition, so they report false here and
// are escalated explicitly by the monitor when retries are exhausted.
func (e *Error) Fatal() bool {
	return e.Type == TypeConfiguration
}

// ConfigurationError creates a fatal startup configuration error.
func ConfigurationError(message string) *Error {
	return &Error{
		Type:    TypeConfiguration,
		Message: message,
		Context: make(map[string]any),
	}
}

// AuthenticationError creates an authentication error.
func AuthenticationError(message string, cause error) *Error {
	return &Error{
		Type:    TypeAuthentication,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// TransientError creates a recoverable fetch error.
func TransientError(message string, cause error) *Error {
	return &Error{
		Type:    TypeTransient,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// NotificationError creates a notification delivery error.
func NotificationError(message string, cause error) *Error {
	return &Error{
		Type:    TypeNotification,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// WithContext adds context fields to the error (chainable).
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// IsType reports whether err is a structured Error of the given type.
func IsType(err error, t ErrorType) bool {
	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr.Type == t
	}
	return false
}

// AsStructuredError converts any error into a structured Error.
// If err is already an *Error, returns it unchanged.
// Otherwise wraps it as a transient error.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	return TransientError("unexpected error", err)
}
