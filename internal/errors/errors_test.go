package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"duplicate email", ErrDuplicateEmail, http.StatusBadRequest, "DUPLICATE_EMAIL", "User with this email already exists"},
		{"invalid credentials", ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"},
		{"wrong current password", ErrWrongCurrentPassword, http.StatusBadRequest, "INVALID_CREDENTIALS", "Current password is incorrect"},
		{"deactivated", ErrAccountDeactivated, http.StatusForbidden, "ACCOUNT_DEACTIVATED", "Account has been deactivated. Please contact support."},
		{"missing token", ErrMissingToken, http.StatusUnauthorized, "UNAUTHENTICATED", "No token provided"},
		{"unauthenticated", ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED", "Invalid or expired token"},
		{"not found", ErrNotFound, http.StatusNotFound, "NOT_FOUND", "User not found"},
		{"invalid token", ErrInvalidOrExpiredToken, http.StatusBadRequest, "INVALID_OR_EXPIRED_TOKEN", "Invalid or expired token"},
		{"already verified", ErrAlreadyVerified, http.StatusBadRequest, "ALREADY_VERIFIED", "Email is already verified"},
		{"wrapped", fmt.Errorf("register: %w", ErrDuplicateEmail), http.StatusBadRequest, "DUPLICATE_EMAIL", "User with this email already exists"},
		{"internal", errors.New("connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err, false)
			assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			assert.Equal(t, tt.wantCode, httpErr.Code)
			assert.Equal(t, tt.wantMsg, httpErr.Message)
		})
	}
}

func TestMapErrorToHTTP_ExposeInternal(t *testing.T) {
	httpErr := MapErrorToHTTP(errors.New("connection refused"), true)
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
	assert.Equal(t, "connection refused", httpErr.Message)
}

func TestValidationError(t *testing.T) {
	err := fmt.Errorf("save user: %w", &ValidationError{Fields: []FieldError{
		{Field: "firstName", Message: "First name is required"},
		{Field: "location", Message: "Location cannot exceed 100 characters"},
	}})

	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "First name is required, Location cannot exceed 100 characters")

	httpErr := MapErrorToHTTP(err, false)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Len(t, httpErr.ToEnvelope().Errors, 2)
	assert.False(t, httpErr.ToEnvelope().Success)
}

func TestCode(t *testing.T) {
	assert.Equal(t, "OK", Code(nil))
	assert.Equal(t, "NOT_FOUND", Code(ErrNotFound))
}
