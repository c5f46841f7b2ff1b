package core

import "fmt"

// Result is the uniform gateway return shape. Exactly one of Response or
// Error is meaningful, selected by OK.
type Result[T any] struct {
	OK       bool   `json:"ok"`
	Response T      `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Success wraps a successful response
func Success[T any](response T) Result[T] {
	return Result[T]{OK: true, Response: response}
}

// Failure wraps an error. A nil error still yields a failed result.
func Failure[T any](err error) Result[T] {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	if len(msg) > MaxErrorMessageLength {
		msg = msg[:MaxErrorMessageLength-3] + "..."
	}
	return Result[T]{OK: false, Error: msg}
}

// Failuref formats an error message into a failed result
func Failuref[T any](format string, args ...any) Result[T] {
	return Failure[T](fmt.Errorf(format, args...))
}

// Err returns the failure as an error, or nil for a successful result
func (r Result[T]) Err() error {
	if r.OK {
		return nil
	}
	return fmt.Errorf("%s", r.Error)
}
