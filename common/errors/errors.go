package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorCode represents application-specific error codes
type ErrorCode string

const (
	// Authentication errors (1xxx)
	ErrCodeUnauthorized       ErrorCode = "E1001"
	ErrCodeInvalidCredentials ErrorCode = "E1002"
	ErrCodeTokenExpired       ErrorCode = "E1003"
	ErrCodeInvalidToken       ErrorCode = "E1004"
	ErrCodeAccessDenied       ErrorCode = "E1005"

	// Validation errors (2xxx)
	ErrCodeValidation    ErrorCode = "E2001"
	ErrCodeInvalidInput  ErrorCode = "E2002"
	ErrCodeMissingField  ErrorCode = "E2003"
	ErrCodeInvalidEmail  ErrorCode = "E2005"
	ErrCodeInvalidPhone  ErrorCode = "E2006"

	// Resource errors (3xxx)
	ErrCodeNotFound      ErrorCode = "E3001"
	ErrCodeAlreadyExists ErrorCode = "E3002"
	ErrCodeConflict      ErrorCode = "E3003"

	// External service errors (5xxx)
	ErrCodeEmailError ErrorCode = "E5003"

	// Internal errors (9xxx)
	ErrCodeInternal ErrorCode = "E9001"
	ErrCodeDatabase ErrorCode = "E9002"
)

// AppError represents an application error with context
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Cause      error                  `json:"-"`
	Stack      string                 `json:"-"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails adds additional details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithField adds a field to the error
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// ToJSON converts error to the response body format
func (e *AppError) ToJSON() map[string]interface{} {
	result := map[string]interface{}{
		"status":  "error",
		"code":    e.Code,
		"message": e.Message,
	}
	if e.Details != "" {
		result["details"] = e.Details
	}
	if len(e.Fields) > 0 {
		result["fields"] = e.Fields
	}
	return result
}

// Is reports whether target carries the same code, so errors.Is(err, NotFound("x")) matches any not-found.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ============================================================
// Error constructors
// ============================================================

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: getHTTPStatus(code),
		Stack:      captureStack(2),
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: getHTTPStatus(code),
		Cause:      err,
		Stack:      captureStack(2),
	}
}

// ============================================================
// Predefined error constructors
// ============================================================

// Authentication errors
func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func InvalidCredentials() *AppError {
	return New(ErrCodeInvalidCredentials, "Invalid email or password")
}

func TokenExpired() *AppError {
	return New(ErrCodeTokenExpired, "Session has expired")
}

func InvalidToken() *AppError {
	return New(ErrCodeInvalidToken, "Invalid token")
}

func AccessDenied() *AppError {
	return New(ErrCodeAccessDenied, "Access denied")
}

// Validation errors
func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field, message string) *AppError {
	return New(ErrCodeInvalidInput, message).WithField("field", field)
}

func MissingField(field string) *AppError {
	return New(ErrCodeMissingField, fmt.Sprintf("%s is required", field)).WithField("field", field)
}

func InvalidEmail() *AppError {
	return New(ErrCodeInvalidEmail, "Invalid email address")
}

func InvalidPhone() *AppError {
	return New(ErrCodeInvalidPhone, "Invalid phone number")
}

// Resource errors
func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func AlreadyExists(resource string) *AppError {
	return New(ErrCodeAlreadyExists, fmt.Sprintf("%s already exists", resource))
}

func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message)
}

// External service errors
func EmailError(message string) *AppError {
	return New(ErrCodeEmailError, message)
}

// Internal errors
func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// DatabaseError is the store failure kind: connection loss, constraint violations that are not conflicts, timeouts.
func DatabaseError(err error) *AppError {
	return Wrap(err, ErrCodeDatabase, "Database error")
}

// ============================================================
// Helper functions
// ============================================================

func getHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeUnauthorized, ErrCodeInvalidCredentials, ErrCodeTokenExpired, ErrCodeInvalidToken:
		return http.StatusUnauthorized
	case ErrCodeAccessDenied:
		return http.StatusForbidden
	case ErrCodeValidation, ErrCodeInvalidInput, ErrCodeMissingField,
		ErrCodeInvalidEmail, ErrCodeInvalidPhone:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeAlreadyExists, ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeEmailError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func captureStack(skip int) string {
	var pcs [32]uintptr
	n := runtime.Callers(skip+1, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var sb strings.Builder
	for {
		frame, more := frames.Next()
		if strings.Contains(frame.File, "runtime/") {
			if !more {
				break
			}
			continue
		}
		sb.WriteString(fmt.Sprintf("%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return sb.String()
}

// AsAppError unwraps err until an AppError is found
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError with the given code
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsNotFound reports whether err is a not-found AppError
func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeNotFound)
}

// ToAppError converts any error to AppError
func ToAppError(err error) *AppError {
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Wrap(err, ErrCodeInternal, "Internal server error")
}
