package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// ErrorKind classifies domain failures so callers can branch on the
// category rather than on message text or HTTP status.
type ErrorKind string

const (
	KindValidation          ErrorKind = "VALIDATION_FAILED"
	KindNotFound            ErrorKind = "NOT_FOUND"
	KindAuthorization       ErrorKind = "FORBIDDEN"
	KindUnauthorized        ErrorKind = "UNAUTHORIZED"
	KindTransition          ErrorKind = "INVALID_TRANSITION"
	KindConflict            ErrorKind = "CONFLICT"
	KindDetectorUnavailable ErrorKind = "DETECTOR_UNAVAILABLE"
	KindInternal            ErrorKind = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Kind       ErrorKind
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(kind ErrorKind, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Kind: kind, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(KindValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Kind:       KindNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(KindUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(KindAuthorization, message, http.StatusForbidden, nil)
}

// NewTransitionError reports an edge absent from the workflow graph.
func NewTransitionError(message string, details map[string]any) error {
	return NewDomainError(KindTransition, message, http.StatusUnprocessableEntity, details)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(KindConflict, message, http.StatusConflict, details)
}

// NewDetectorUnavailable wraps a duplicate-detector failure. Callers log it
// and degrade to a no-duplicates result; it is never surfaced as blocking.
func NewDetectorUnavailable(err error) error {
	return &DomainError{
		Kind:       KindDetectorUnavailable,
		Message:    "duplicate detector unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Kind:       KindInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsKind reports whether err is a DomainError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Kind == kind
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Kind:       KindInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
