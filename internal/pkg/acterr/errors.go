package acterr

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

const (
	CodeNotFound       = "NOT_FOUND"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeConflict       = "CONFLICT"
	CodeSessionBusy    = "SESSION_BUSY"
	CodeInternalError  = "INTERNAL_ERROR"
)

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = New(fiber.StatusNotFound, CodeNotFound, "resource not found with given parameters")

	// ErrInvalidReq is returned when a request is invalid.
	ErrInvalidReq = New(fiber.StatusBadRequest, CodeInvalidRequest, "invalid request: some or all request parameters are invalid")

	// ErrUnauthorized is returned when the credential is missing, malformed or expired.
	ErrUnauthorized = New(fiber.StatusUnauthorized, CodeUnauthorized, "authentication required")

	// ErrForbidden is returned when the caller is authenticated but lacks the role or ownership required.
	ErrForbidden = New(fiber.StatusForbidden, CodeForbidden, "you do not have permission to perform this action")

	// ErrConflict is returned when the request collides with the current state of a resource.
	ErrConflict = New(fiber.StatusConflict, CodeConflict, "request conflicts with the current state of the resource")

	// ErrSessionBusy is returned when another start or stop for the same user holds the session lock.
	ErrSessionBusy = New(fiber.StatusConflict, CodeSessionBusy, "another session change for this user is in progress, please retry")

	// ErrInternalError is returned when an internal error occurs.
	ErrInternalError = New(fiber.StatusInternalServerError, CodeInternalError, "internal server error occurred")
)

type Extras map[string]interface{}

type ActiError struct {
	StatusCode int
	ErrorCode  string
	Message    string
	Extras     *Extras
}

func New(statusCode int, errorCode string, message string) *ActiError {
	return &ActiError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

func (e ActiError) Msg(format string, parts ...interface{}) *ActiError {
	e.Message = fmt.Sprintf(format, parts...)
	return &e
}

// Status returns a copy of e responding with the given status code.
func (e ActiError) Status(statusCode int) *ActiError {
	e.StatusCode = statusCode
	return &e
}

func (e ActiError) WithExtras(extras Extras) *ActiError {
	e.Extras = &extras
	return &e
}

// NewInvalidViolations wraps field-level violations into an ErrInvalidReq copy. The
// violations are exposed to the client under the `errors` key.
func NewInvalidViolations(violations interface{}) *ActiError {
	// copy ErrInvalidReq as e
	e := *ErrInvalidReq
	e.Extras = &Extras{
		"errors": violations,
	}
	return &e
}

// Is reports whether target carries the same error code, so that copies produced by
// Msg or WithExtras still match their sentinel with errors.Is.
func (e *ActiError) Is(target error) bool {
	t, ok := target.(*ActiError)
	if !ok {
		return false
	}
	return e.ErrorCode == t.ErrorCode
}

func (e *ActiError) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.Message)
}
