package errors

import (
	"errors"
	"fmt"
)

const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeGenFormat    = "GENERATION_FORMAT_ERROR"
	ErrCodeLLMAPI       = "LLM_API_ERROR"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnavailable  = "CAPABILITY_UNAVAILABLE"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeStorage      = "STORAGE_ERROR"
	ErrCodeUsageLimit   = "USAGE_LIMIT_REACHED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
)

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func Newf(code, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is reports whether err carries the given code, unwrapping as needed.
func Is(err error, code string) bool {
	return Code(err) == code
}

// Code extracts the application error code, or ErrCodeInternal for
// errors that did not originate from this package.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// Message extracts the application error message, or "" for foreign
// errors. Raw causes stay internal; they are never surfaced to users.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ""
}
