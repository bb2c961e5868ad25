package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrValidation is returned when input is malformed or violates a field constraint.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateEmail is returned when an account with the email already exists.
	ErrDuplicateEmail = errors.New("user with this email already exists")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	// Unknown email and wrong password share this error on purpose.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrWrongCurrentPassword is returned by password change when the current password does not match.
	ErrWrongCurrentPassword = fmt.Errorf("current password is incorrect: %w", ErrInvalidCredentials)
	// ErrAccountDeactivated is returned when the account has been deactivated.
	ErrAccountDeactivated = errors.New("account has been deactivated")
	// ErrUnauthenticated is returned when a request carries no valid auth token.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrMissingToken is returned when a request carries no auth token at all.
	ErrMissingToken = fmt.Errorf("no token provided: %w", ErrUnauthenticated)
	// ErrNotFound is returned when a user is not found.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidOrExpiredToken is returned when a reset or verification token is unknown, used or expired.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	// ErrAlreadyVerified is returned when the email address is already verified.
	ErrAlreadyVerified = errors.New("email is already verified")
)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries the field errors of a rejected input.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, ", ")
}

// Is reports ValidationError as ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    any          `json:"user,omitempty"`
	Token   string       `json:"token,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Fields     []FieldError
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToEnvelope converts an HTTPError to a failed response envelope.
func (e *HTTPError) ToEnvelope() Envelope {
	return Envelope{
		Success: false,
		Message: e.Message,
		Errors:  e.Fields,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Unknown errors become a
// 500; their text is only exposed when exposeInternal is set.
func MapErrorToHTTP(err error, exposeInternal bool) *HTTPError {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httpErr := NewHTTPError(http.StatusBadRequest, "Validation failed", "VALIDATION_ERROR")
		httpErr.Fields = verr.Fields
		return httpErr
	case errors.Is(err, ErrValidation):
		return NewHTTPError(http.StatusBadRequest, "Validation failed", "VALIDATION_ERROR")
	case errors.Is(err, ErrDuplicateEmail):
		return NewHTTPError(http.StatusBadRequest, "User with this email already exists", "DUPLICATE_EMAIL")
	case errors.Is(err, ErrWrongCurrentPassword):
		return NewHTTPError(http.StatusBadRequest, "Current password is incorrect", "INVALID_CREDENTIALS")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, "Invalid email or password", "INVALID_CREDENTIALS")
	case errors.Is(err, ErrAccountDeactivated):
		return NewHTTPError(http.StatusForbidden, "Account has been deactivated. Please contact support.", "ACCOUNT_DEACTIVATED")
	case errors.Is(err, ErrMissingToken):
		return NewHTTPError(http.StatusUnauthorized, "No token provided", "UNAUTHENTICATED")
	case errors.Is(err, ErrUnauthenticated):
		return NewHTTPError(http.StatusUnauthorized, "Invalid or expired token", "UNAUTHENTICATED")
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, "User not found", "NOT_FOUND")
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return NewHTTPError(http.StatusBadRequest, "Invalid or expired token", "INVALID_OR_EXPIRED_TOKEN")
	case errors.Is(err, ErrAlreadyVerified):
		return NewHTTPError(http.StatusBadRequest, "Email is already verified", "ALREADY_VERIFIED")
	default:
		msg := "internal server error"
		if exposeInternal && err != nil {
			msg = err.Error()
		}
		return NewHTTPError(http.StatusInternalServerError, msg, "INTERNAL_ERROR")
	}
}

// Code returns the machine readable code for err, "OK" for nil.
func Code(err error) string {
	if err == nil {
		return "OK"
	}
	return MapErrorToHTTP(err, false).Code
}
