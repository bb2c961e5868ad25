package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	apperrors "jobtrack/internal/errors"
	"jobtrack/internal/gate"
	"jobtrack/internal/model"
	"jobtrack/internal/service"
)

// CookieConfig controls the auth cookie.
type CookieConfig struct {
	MaxAge time.Duration
	Secure bool
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
	cookie      CookieConfig
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	FirstName      string                `json:"firstName" validate:"required,max=50"`
	LastName       string                `json:"lastName" validate:"required,max=50"`
	Email          string                `json:"email" validate:"required,email,max=255"`
	Password       string                `json:"password" validate:"required,password"`
	CurrentTitle   string                `json:"currentTitle" validate:"max=100"`
	TargetSalary   *decimal.Decimal      `json:"targetSalary" swaggertype:"number" validate:"omitempty,gte=0"`
	Location       string                `json:"location" validate:"max=100"`
	JobPreferences *model.JobPreferences `json:"jobPreferences"`
	EmploymentType string                `json:"employmentType" validate:"omitempty,oneof=Full-time Part-time Contract Internship 'No preference'"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest represents a partial profile update. Fields that are
// not listed here, such as email or password, are ignored.
type UpdateProfileRequest struct {
	FirstName      *string               `json:"firstName" validate:"omitempty,max=50"`
	LastName       *string               `json:"lastName" validate:"omitempty,max=50"`
	CurrentTitle   *string               `json:"currentTitle" validate:"omitempty,max=100"`
	TargetSalary   *decimal.Decimal      `json:"targetSalary" swaggertype:"number" validate:"omitempty,gte=0"`
	Location       *string               `json:"location" validate:"omitempty,max=100"`
	JobPreferences *model.JobPreferences `json:"jobPreferences"`
	EmploymentType *string               `json:"employmentType" validate:"omitempty,oneof=Full-time Part-time Contract Internship 'No preference'"`
}

// ChangePasswordRequest represents a password change request.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,password"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

// RequestPasswordResetRequest represents a password reset request.
type RequestPasswordResetRequest struct {
	Email string `json:"email" validate:"required"`
}

// ResetPasswordRequest represents a password reset with a token.
type ResetPasswordRequest struct {
	ResetPasswordToken string `json:"resetPasswordToken" validate:"required"`
	NewPassword        string `json:"newPassword" validate:"required,password"`
	ConfirmPassword    string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

// VerifyEmailRequest represents an email verification request.
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} errors.Envelope
// @Failure 400 {object} errors.Envelope
// @Failure 500 {object} errors.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.authService.Register(c.Request().Context(), service.RegisterInput{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Password:       req.Password,
		CurrentTitle:   req.CurrentTitle,
		TargetSalary:   req.TargetSalary,
		Location:       req.Location,
		JobPreferences: req.JobPreferences,
		EmploymentType: req.EmploymentType,
	})
	if err != nil {
		return err
	}

	h.setTokenCookie(c, result.Token)
	return c.JSON(http.StatusCreated, apperrors.Envelope{
		Success: true,
		Message: "User registered successfully",
		User:    result.User,
		Token:   result.Token,
	})
}

// Login godoc
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} errors.Envelope
// @Failure 400 {object} errors.Envelope
// @Failure 401 {object} errors.Envelope
// @Failure 403 {object} errors.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setTokenCookie(c, result.Token)
	return c.JSON(http.StatusOK, apperrors.Envelope{
		Success: true,
		Message: "Login successful",
		User:    result.User,
		Token:   result.Token,
	})
}

// Logout godoc
// @Summary Logout user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} errors.Envelope
// @Failure 401 {object} errors.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	h.clearTokenCookie(c)
	return c.JSON(http.StatusOK, apperrors.Envelope{
		Success: true,
		Message: "Logged out successfully",
	})
}

// Me godoc
// @Summary Get the current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} errors.Envelope
// @Failure 401 {object} errors.Envelope
// @Failure 403 {object} errors.Envelope
// @Failure 404 {object} errors.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	id, ok := gate.Identity(c)
	if !ok {
		return apperrors.ErrUnauthenticated
	}

	profile, err := h.authService.GetProfile(c.Request().Context(), id.UserID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, apperrors.Envelope{
		Success: true,
		Message: "User profile retrieved successfully",
		User:    profile,
	})
}

// UpdateProfile godoc
// @Summary Update the current user's profile
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} errors.Envelope
// @Failure 400 {object} errors.Envelope
// @Failure 401 {object} errors.Envelope
// @Router /auth/profile [put]
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	id, ok := gate.Identity(c)
	if !ok {
		return apperrors.ErrUnauthenticated
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	profile, err := h.authService.UpdateProfile(c.Request().Context(), id.UserID, service.ProfileUpdate{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		CurrentTitle:   req.CurrentTitle,
		TargetSalary:   req.TargetSalary,
		Location:       req.Location,
		JobPreferences: req.JobPreferences,
		EmploymentType: req.EmploymentType,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, apperrors.Envelope{
		Success: true,
		Message: "Profile updated successfully",
		User:    profile,
	})
}

// ChangePassword godoc
// @Summary Change the current user's password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Passwords"
// @Success 200 {object} errors.Envelope
// @Failure 400 {object} errors.Envelope
// @Failure 401 {object} errors.Envelope
// @Router /auth/change-password [put]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	id, ok := gate.Identity(c)
	if !ok {
		return apperrors.ErrUnauthenticated
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.authService.ChangePassword(c.Request().Context(), id.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, apperrors.Envelope{
		Success: true,
		Message: "Password changed successfully",
	})
}

// RequestPasswordReset godoc
// @Summary Request a password reset link
// @Description Always answers with the same message whether or not the account exists.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RequestPasswordResetRequest true "Email"
// @Success 200 {object} errors.Envelope
// @Failure 400 {object} errors.Envelope
// @Router /auth/request-password-reset [post]
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req RequestPasswordResetRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.authService.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, apperrors.Envelope{
		Success: true,
		Message: "If an account with that email exists, a password reset link has been sent.",
	})
}

// ResetPassword godoc
// @Summary Reset a password with a reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Token and new password"
// @Success 200 {object} errors.Envelope
// @Failure 400 {object} errors.Envelope
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.authService.ResetPassword(c.Request().Context(), req.ResetPasswordToken, req.NewPassword); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, apperrors.Envelope{
		Success: true,
		Message: "Password reset successfully",
	})
}

// SendVerificationEmail godoc
// @Summary Send an email verification link to the current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} errors.Envelope
// @Failure 400 {object} errors.Envelope
// @Failure 401 {object} errors.Envelope
// @Failure 404 {object} errors.Envelope
// @Router /auth/send-verification-email [post]
func (h *AuthHandler) SendVerificationEmail(c echo.Context) error {
	id, ok := gate.Identity(c)
	if !ok {
		return apperrors.ErrUnauthenticated
	}

	if err := h.authService.SendVerificationEmail(c.Request().Context(), id.UserID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, apperrors.Envelope{
		Success: true,
		Message: "Verification email sent",
	})
}

// VerifyEmail godoc
// @Summary Verify an email address with a verification token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body VerifyEmailRequest true "Token"
// @Success 200 {object} errors.Envelope
// @Failure 400 {object} errors.Envelope
// @Router /auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req VerifyEmailRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.authService.VerifyEmail(c.Request().Context(), req.Token); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, apperrors.Envelope{
		Success: true,
		Message: "Email verified successfully",
	})
}

// Refresh godoc
// @Summary Issue a fresh auth token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} errors.Envelope
// @Failure 401 {object} errors.Envelope
// @Failure 403 {object} errors.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	id, ok := gate.Identity(c)
	if !ok {
		return apperrors.ErrUnauthenticated
	}

	result, err := h.authService.RefreshAuthToken(c.Request().Context(), id.UserID)
	if err != nil {
		return err
	}

	h.setTokenCookie(c, result.Token)
	return c.JSON(http.StatusOK, apperrors.Envelope{
		Success: true,
		Message: "Token refreshed successfully",
		User:    result.User,
		Token:   result.Token,
	})
}

// Validate godoc
// @Summary Check the auth token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} errors.Envelope
// @Failure 401 {object} errors.Envelope
// @Router /auth/validate [get]
func (h *AuthHandler) Validate(c echo.Context) error {
	id, ok := gate.Identity(c)
	if !ok {
		return apperrors.ErrUnauthenticated
	}

	return c.JSON(http.StatusOK, apperrors.Envelope{
		Success: true,
		Message: "Token is valid",
		User:    id,
	})
}

func (h *AuthHandler) setTokenCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     gate.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
		Expires:  time.Now().Add(h.cookie.MaxAge),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearTokenCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     gate.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func invalidBody() error {
	return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
}
