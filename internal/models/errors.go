package models

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an AppError.
type ErrorCode string

const (
	CodeInvalidInput       ErrorCode = "INVALID_INPUT"
	CodeDuplicateUser      ErrorCode = "DUPLICATE_USER"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeUnauthenticated    ErrorCode = "UNAUTHENTICATED"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeEmptyContent       ErrorCode = "EMPTY_CONTENT"
	CodeIO                 ErrorCode = "IO_ERROR"
)

// AppError is a recoverable, user-facing error. Commands that return one
// leave the application state unchanged.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same code, so callers
// can match with errors.Is(err, models.ErrNotFound).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrInvalidInput       = &AppError{Code: CodeInvalidInput, Message: "invalid input"}
	ErrDuplicateUser      = &AppError{Code: CodeDuplicateUser, Message: "duplicate user"}
	ErrInvalidCredentials = &AppError{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrUnauthenticated    = &AppError{Code: CodeUnauthenticated, Message: "not logged in"}
	ErrNotFound           = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrForbidden          = &AppError{Code: CodeForbidden, Message: "forbidden"}
	ErrEmptyContent       = &AppError{Code: CodeEmptyContent, Message: "empty content"}
	ErrIO                 = &AppError{Code: CodeIO, Message: "i/o error"}
)

// Predefined error constructors
func NewInvalidInputError(message string) *AppError {
	return &AppError{Code: CodeInvalidInput, Message: message}
}

func NewDuplicateUserError(username string) *AppError {
	return &AppError{
		Code:    CodeDuplicateUser,
		Message: fmt.Sprintf("username '%s' already taken", username),
	}
}

func NewInvalidCredentialsError() *AppError {
	return &AppError{Code: CodeInvalidCredentials, Message: "invalid credentials"}
}

func NewUnauthenticatedError(message string) *AppError {
	return &AppError{Code: CodeUnauthenticated, Message: message}
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message}
}

func NewEmptyContentError() *AppError {
	return &AppError{Code: CodeEmptyContent, Message: "write something or attach an image"}
}

func NewIOError(message string, err error) *AppError {
	return &AppError{Code: CodeIO, Message: message, Err: err}
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
