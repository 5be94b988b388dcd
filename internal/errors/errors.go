package errors

import "fmt"

// ErrorCode represents a MindfulTab error code.
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"  // 400
	ErrNotFound        ErrorCode = "NOT_FOUND"        // 404
	ErrHostUnavailable ErrorCode = "HOST_UNAVAILABLE" // 502 (browser-side API failed)
	ErrInternal        ErrorCode = "INTERNAL"         // 500
)

// MindfulError represents a structured error with code, status, and details.
type MindfulError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *MindfulError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *MindfulError {
	return &MindfulError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewDomainRequired creates the validation error returned when a message
// addresses a domain but the domain is blank after normalization.
func NewDomainRequired() *MindfulError {
	return &MindfulError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: "Domain is required",
	}
}

// NewNotFound creates a 404 error for a missing stored value.
func NewNotFound(key string) *MindfulError {
	return &MindfulError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", key),
		Details: map[string]any{"key": key},
	}
}

// NewHostUnavailable creates a 502 error for a failed extension-host API call.
// Callers decide per-call whether the failure is ignorable.
func NewHostUnavailable(op string, err error) *MindfulError {
	msg := op
	if err != nil {
		msg = fmt.Sprintf("%s: %v", op, err)
	}
	return &MindfulError{
		Code:    ErrHostUnavailable,
		Status:  502,
		Message: msg,
		Details: map[string]any{"op": op},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *MindfulError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &MindfulError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a MindfulError with the given code.
func Is(err error, code ErrorCode) bool {
	if mErr, ok := err.(*MindfulError); ok {
		return mErr.Code == code
	}
	return false
}
