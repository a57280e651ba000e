package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// DomainError standardizes application errors.
type DomainError struct {
	Kind       Kind
	Code       string
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
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewKindError builds a DomainError whose code and status derive from kind.
func NewKindError(kind Kind, message string, details map[string]any, err error) *DomainError {
	return &DomainError{
		Kind:       kind,
		Code:       kind.ExternalCode(),
		Message:    message,
		HTTPStatus: kind.HTTPStatus(),
		Details:    details,
		Err:        err,
	}
}

func NewValidationError(message string, details map[string]any) error {
	return NewKindError(KindValidation, message, details, nil)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return NewKindError(KindNotFound, fmt.Sprintf("%s not found", resource), details, nil)
}

func NewUnauthorized(message string) error {
	return NewKindError(KindNoCredentials, message, nil, nil)
}

func NewForbidden(message string) error {
	return NewKindError(KindForbidden, message, nil, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewKindError(KindConflict, message, details, nil)
}

func NewInternalError(err error) error {
	return NewKindError(KindInternal, "internal server error", nil, err)
}

// KindOf reports the kind carried by err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var domainErr *DomainError
	if errors.As(err, &domainErr) && domainErr.Kind != "" {
		return domainErr.Kind
	}
	return KindInternal
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
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fromStatus(fiberErr.Code, fiberErr.Message)
	}
	return NewKindError(KindInternal, "internal server error", nil, err)
}

func MapError(err error) error {
	return ToDomainError(err)
}

func fromStatus(status int, message string) *DomainError {
	switch status {
	case http.StatusBadRequest:
		return NewKindError(KindValidation, message, nil, nil)
	case http.StatusUnauthorized:
		return NewKindError(KindNoCredentials, message, nil, nil)
	case http.StatusForbidden:
		return NewKindError(KindForbidden, message, nil, nil)
	case http.StatusNotFound:
		return NewKindError(KindNotFound, message, nil, nil)
	case http.StatusConflict:
		return NewKindError(KindConflict, message, nil, nil)
	case http.StatusRequestEntityTooLarge:
		return NewKindError(KindFileTooLarge, message, nil, nil)
	case http.StatusTooManyRequests:
		return NewKindError(KindRateLimited, message, nil, nil)
	}
	if status >= http.StatusInternalServerError {
		return NewKindError(KindInternal, "internal server error", nil, errors.New(message))
	}
	return &DomainError{Kind: KindValidation, Code: "REQUEST_FAILED", Message: message, HTTPStatus: status}
}
