package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Code is the closed set of failure categories the API exposes.
type Code string

const (
	Unauthenticated  Code = "UNAUTHENTICATED"
	PermissionDenied Code = "PERMISSION_DENIED"
	InvalidArgument  Code = "INVALID_ARGUMENT"
	NotFound         Code = "NOT_FOUND"
	AlreadyExists    Code = "ALREADY_EXISTS"
	Busy             Code = "BUSY"
	Internal         Code = "INTERNAL"
)

// Error carries a taxonomy code plus optional structured details.
type Error struct {
	Code    Code
	Message string
	Details any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func WithDetails(code Code, message string, details any) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// HTTPStatus maps a taxonomy code to its Fiber status code.
func HTTPStatus(code Code) int {
	switch code {
	case Unauthenticated:
		return fiber.StatusUnauthorized
	case PermissionDenied:
		return fiber.StatusForbidden
	case InvalidArgument:
		return fiber.StatusBadRequest
	case NotFound:
		return fiber.StatusNotFound
	case AlreadyExists, Busy:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
