package apperrors

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

var (
	// ErrUnauthorized is returned when a request carries no valid session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the session lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when a referenced user or record is absent.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an operation would break a domain rule.
	ErrConflict = errors.New("conflict")
	// ErrUpstream is returned when the billing processor fails.
	ErrUpstream = errors.New("upstream failure")
	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
)

// Error attaches a caller-facing message and an optional cause to a kind.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind error, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Unauthorized(message string) *Error { return New(ErrUnauthorized, message) }
func Forbidden(message string) *Error    { return New(ErrForbidden, message) }
func NotFound(message string) *Error     { return New(ErrNotFound, message) }
func Conflict(message string) *Error     { return New(ErrConflict, message) }
func InvalidInput(message string) *Error { return New(ErrInvalidInput, message) }
func Upstream(message string, err error) *Error {
	return Wrap(ErrUpstream, message, err)
}

// StatusCode maps an error to the HTTP status it should be rendered with.
func StatusCode(err error) int {
	var fe *fiber.Error
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrUpstream):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// Code returns the machine readable error code used in JSON responses.
func Code(err error) string {
	switch StatusCode(err) {
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusForbidden:
		return "forbidden"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusConflict:
		return "conflict"
	case fiber.StatusBadRequest:
		return "invalid_input"
	case fiber.StatusBadGateway:
		return "upstream_failure"
	case fiber.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "internal_server_error"
	}
}

// Message returns the caller-facing message. Internal errors are not leaked.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	if StatusCode(err) == fiber.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}

// ErrorHandler renders every error returned by a handler as JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := StatusCode(err)
	if status >= fiber.StatusInternalServerError {
		fiberlog.Errorf("%s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error":   Code(err),
		"message": Message(err),
	})
}
