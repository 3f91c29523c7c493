package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Kind tags a DomainError so transports can map it without sniffing concrete types.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to its response status. Uniqueness violations are
// reported as bad requests.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// DomainError standardizes application errors.
type DomainError struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]any
	Err     error
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

// HTTPStatus returns the response status for the error.
func (e *DomainError) HTTPStatus() int {
	return e.Kind.HTTPStatus()
}

// NewDomainError constructs a DomainError.
func NewDomainError(kind Kind, code, message string, details map[string]any) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(KindValidation, "Request Validation error", message, details)
}

func NewNotFound(resource string, details map[string]any) error {
	return NewDomainError(KindNotFound, "Record Not Found", fmt.Sprintf("%s not found", resource), details)
}

func NewUnauthorized(message string) error {
	return NewDomainError(KindUnauthorized, "Unauthorized", message, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(KindForbidden, "Forbidden", message, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(KindConflict, "Unique Constraint Violation", message, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Kind:    KindInternal,
		Code:    "Internal Server Error",
		Message: "internal server error",
		Err:     err,
	}
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Kind == kind
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

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make(map[string]any, len(validationErrs))
		for _, fe := range validationErrs {
			details[fe.Field()] = fe.Tag()
		}
		return NewValidationError("request body failed validation", details).(*DomainError)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fromFiberError(fiberErr)
	}

	return NewInternalError(err).(*DomainError)
}

func fromFiberError(fe *fiber.Error) *DomainError {
	switch fe.Code {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		return NewValidationError(fe.Message, nil).(*DomainError)
	case http.StatusUnauthorized:
		return NewUnauthorized(fe.Message).(*DomainError)
	case http.StatusForbidden:
		return NewForbidden(fe.Message).(*DomainError)
	case http.StatusNotFound:
		return NewDomainError(KindNotFound, "Not Found", fe.Message, nil)
	case http.StatusConflict:
		return NewConflict(fe.Message, nil).(*DomainError)
	}
	if fe.Code >= 400 && fe.Code < 500 {
		return NewValidationError(fe.Message, nil).(*DomainError)
	}
	return NewInternalError(fe).(*DomainError)
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
