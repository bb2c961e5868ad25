package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"jobtrack/internal/auth"
	"jobtrack/internal/cache"
	apperrors "jobtrack/internal/errors"
	"jobtrack/internal/logging"
	"jobtrack/internal/metrics"
	"jobtrack/internal/model"
	"jobtrack/internal/notify"
	"jobtrack/internal/repository"
	"jobtrack/internal/validation"
)

const (
	// DefaultProfileCacheTTL is how long a profile stays in the cache.
	DefaultProfileCacheTTL = 5 * time.Minute
	// DefaultNotifyTimeout bounds a single background notification.
	DefaultNotifyTimeout = 30 * time.Second

	profileKeyPrefix = "profile:"
)

// AuthService handles account and session operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.PublicUser, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*model.PublicUser, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	SendVerificationEmail(ctx context.Context, userID uuid.UUID) error
	VerifyEmail(ctx context.Context, token string) error
	RefreshAuthToken(ctx context.Context, userID uuid.UUID) (*AuthResult, error)
	// Wait blocks until every dispatched notification has finished.
	Wait()
}

// RegisterInput is the data needed to create an account. The profile fields
// are optional.
type RegisterInput struct {
	FirstName      string
	LastName       string
	Email          string
	Password       string
	CurrentTitle   string
	TargetSalary   *decimal.Decimal
	Location       string
	JobPreferences *model.JobPreferences
	EmploymentType string
}

// ProfileUpdate is a partial profile update. Nil fields are left unchanged.
// Credentials and account status cannot be changed through it.
type ProfileUpdate struct {
	FirstName      *string
	LastName       *string
	CurrentTitle   *string
	TargetSalary   *decimal.Decimal
	Location       *string
	JobPreferences *model.JobPreferences
	EmploymentType *string
}

// AuthResult is returned by operations that issue an auth token.
type AuthResult struct {
	User  *model.PublicUser
	Token string
}

// Config holds tunables of the auth service.
type Config struct {
	ResetTokenExpiry        time.Duration
	VerificationTokenExpiry time.Duration
	ProfileCacheTTL         time.Duration
	NotifyTimeout           time.Duration
}

// Deps are the collaborators of the auth service. Cache and Metrics may be nil.
type Deps struct {
	Users    repository.UserRepository
	Hasher   auth.Hasher
	Tokens   *auth.JWTService
	Notifier notify.Notifier
	Cache    *cache.Client
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

type authService struct {
	users    repository.UserRepository
	hasher   auth.Hasher
	tokens   *auth.JWTService
	notifier notify.Notifier
	cache    *cache.Client
	metrics  *metrics.Metrics
	logger   *slog.Logger
	cfg      Config
	wg       sync.WaitGroup

	// comparisonHash is verified against when no user was found.
	comparisonHash string

	// now is used to get the current time.
	now func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(deps Deps, cfg Config) (AuthService, error) {
	if deps.Users == nil || deps.Hasher == nil || deps.Tokens == nil || deps.Notifier == nil {
		return nil, errors.New("auth service: users, hasher, tokens and notifier are required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if cfg.ResetTokenExpiry <= 0 {
		cfg.ResetTokenExpiry = auth.DefaultResetTokenExpiry
	}
	if cfg.VerificationTokenExpiry <= 0 {
		cfg.VerificationTokenExpiry = auth.DefaultVerificationTokenExpiry
	}
	if cfg.ProfileCacheTTL <= 0 {
		cfg.ProfileCacheTTL = DefaultProfileCacheTTL
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}

	seed := make([]byte, 16)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	comparisonHash, err := deps.Hasher.Hash(hex.EncodeToString(seed))
	if err != nil {
		return nil, err
	}

	return &authService{
		users:          deps.Users,
		hasher:         deps.Hasher,
		tokens:         deps.Tokens,
		notifier:       deps.Notifier,
		cache:          deps.Cache,
		metrics:        deps.Metrics,
		logger:         deps.Logger,
		cfg:            cfg,
		comparisonHash: comparisonHash,
		now:            func() time.Time { return time.Now().UTC() },
	}, nil
}

// Register creates a new account and issues an auth token for it.
func (s *authService) Register(ctx context.Context, in RegisterInput) (result *AuthResult, err error) {
	defer func() { s.metrics.Observe("register", apperrors.Code(err)) }()

	if !validation.CheckPassword(in.Password) {
		return nil, apperrors.NewValidationError("password", validation.PasswordPolicyMessage)
	}

	email := model.NormalizeEmail(in.Email)
	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, apperrors.ErrDuplicateEmail
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, oops.Code("USER_LOOKUP_FAILED").Wrapf(err, "check user existence")
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
	}

	now := s.now()
	user := &model.User{
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          email,
		PasswordHash:   passwordHash,
		CurrentTitle:   in.CurrentTitle,
		TargetSalary:   in.TargetSalary,
		Location:       in.Location,
		EmploymentType: in.EmploymentType,
		IsActive:       true,
		LastLogin:      now,
	}
	if in.JobPreferences != nil {
		user.JobPreferences = *in.JobPreferences
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrValidation) || errors.Is(err, apperrors.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, oops.Code("USER_CREATE_FAILED").Wrapf(err, "create user")
	}

	return s.issue(user)
}

// Login verifies credentials and issues an auth token.
func (s *authService) Login(ctx context.Context, email, password string) (result *AuthResult, err error) {
	defer func() { s.metrics.Observe("login", apperrors.Code(err)) }()

	user, err := s.users.FindByEmail(ctx, model.NormalizeEmail(email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Spend the same time as a real comparison.
		s.hasher.Verify(password, s.comparisonHash)
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, oops.Code("USER_LOOKUP_FAILED").Wrapf(err, "find user by email")
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDeactivated
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, oops.Code("USER_UPDATE_FAILED").With("user_id", user.ID).Wrapf(err, "record last login")
	}
	user.LastLogin = now
	s.invalidateProfile(ctx, user.ID)

	return s.issue(user)
}

// GetProfile returns the public profile of an active user.
func (s *authService) GetProfile(ctx context.Context, userID uuid.UUID) (profile *model.PublicUser, err error) {
	var cached model.PublicUser
	if s.cache.GetJSON(ctx, profileKey(userID), &cached) {
		// The account status may have changed since the profile was cached.
		active, err := s.users.IsActive(ctx, userID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			s.invalidateProfile(ctx, userID)
			return nil, apperrors.ErrNotFound
		case err != nil:
			return nil, oops.Code("USER_LOOKUP_FAILED").With("user_id", userID).Wrapf(err, "check account status")
		case !active:
			s.invalidateProfile(ctx, userID)
			return nil, apperrors.ErrAccountDeactivated
		}
		return &cached, nil
	}

	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile = user.Public()
	_ = s.cache.SetJSON(ctx, profileKey(userID), profile, s.cfg.ProfileCacheTTL)
	return profile, nil
}

// UpdateProfile applies a partial update to the profile of a user.
func (s *authService) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (profile *model.PublicUser, err error) {
	defer func() { s.metrics.Observe("update_profile", apperrors.Code(err)) }()

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.FirstName != nil {
		user.FirstName = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		user.LastName = strings.TrimSpace(*update.LastName)
	}
	if update.CurrentTitle != nil {
		user.CurrentTitle = strings.TrimSpace(*update.CurrentTitle)
	}
	if update.TargetSalary != nil {
		salary := *update.TargetSalary
		user.TargetSalary = &salary
	}
	if update.Location != nil {
		user.Location = strings.TrimSpace(*update.Location)
	}
	if update.JobPreferences != nil {
		user.JobPreferences = *update.JobPreferences
	}
	if update.EmploymentType != nil {
		user.EmploymentType = *update.EmploymentType
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			return nil, err
		}
		return nil, oops.Code("USER_UPDATE_FAILED").With("user_id", userID).Wrapf(err, "update profile")
	}
	s.invalidateProfile(ctx, userID)

	return user.Public(), nil
}

// ChangePassword replaces the password after checking the current one.
func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) (err error) {
	defer func() { s.metrics.Observe("change_password", apperrors.Code(err)) }()

	if !validation.CheckPassword(newPassword) {
		return apperrors.NewValidationError("newPassword", validation.PasswordPolicyMessage)
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return apperrors.ErrWrongCurrentPassword
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
	}
	if err := s.users.SetPassword(ctx, userID, passwordHash); err != nil {
		return oops.Code("USER_UPDATE_FAILED").With("user_id", userID).Wrapf(err, "set password")
	}
	return nil
}

// RequestPasswordReset issues a reset token for an active account and sends
// it in the background. It returns nil whether or not the email is known.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) (err error) {
	defer func() { s.metrics.Observe("request_password_reset", apperrors.Code(err)) }()

	user, err := s.users.FindByEmail(ctx, model.NormalizeEmail(email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return oops.Code("USER_LOOKUP_FAILED").Wrapf(err, "find user by email")
	}
	if !user.IsActive {
		return nil
	}

	tok, err := auth.IssueSingleUseToken(s.now(), s.cfg.ResetTokenExpiry)
	if err != nil {
		return oops.Code("TOKEN_ISSUE_FAILED").Wrap(err)
	}
	if err := s.users.SetResetToken(ctx, user.ID, tok.Hash, tok.ExpiresAt); err != nil {
		return oops.Code("USER_UPDATE_FAILED").With("user_id", user.ID).Wrapf(err, "store reset token")
	}

	s.dispatch(user.Email, tok.Token, notify.PurposePasswordReset)
	return nil
}

// ResetPassword sets a new password using a reset token. The token works once.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	defer func() { s.metrics.Observe("reset_password", apperrors.Code(err)) }()

	if !validation.CheckPassword(newPassword) {
		return apperrors.NewValidationError("newPassword", validation.PasswordPolicyMessage)
	}

	now := s.now()
	tokenHash := auth.HashSingleUseToken(token)
	user, err := s.users.FindByValidResetToken(ctx, tokenHash, now)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrInvalidOrExpiredToken
	}
	if err != nil {
		return oops.Code("USER_LOOKUP_FAILED").Wrapf(err, "find user by reset token")
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
	}

	err = s.users.ConsumeResetToken(ctx, user.ID, tokenHash, passwordHash, now)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Consumed by a concurrent request.
		return apperrors.ErrInvalidOrExpiredToken
	}
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").With("user_id", user.ID).Wrapf(err, "consume reset token")
	}
	s.invalidateProfile(ctx, user.ID)
	return nil
}

// SendVerificationEmail issues a verification token and sends it in the background.
func (s *authService) SendVerificationEmail(ctx context.Context, userID uuid.UUID) (err error) {
	defer func() { s.metrics.Observe("send_verification_email", apperrors.Code(err)) }()

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsEmailVerified {
		return apperrors.ErrAlreadyVerified
	}

	tok, err := auth.IssueSingleUseToken(s.now(), s.cfg.VerificationTokenExpiry)
	if err != nil {
		return oops.Code("TOKEN_ISSUE_FAILED").Wrap(err)
	}
	if err := s.users.SetVerificationToken(ctx, user.ID, tok.Hash, tok.ExpiresAt); err != nil {
		return oops.Code("USER_UPDATE_FAILED").With("user_id", user.ID).Wrapf(err, "store verification token")
	}

	s.dispatch(user.Email, tok.Token, notify.PurposeEmailVerification)
	return nil
}

// VerifyEmail marks the email of the token holder as verified. The token works once.
func (s *authService) VerifyEmail(ctx context.Context, token string) (err error) {
	defer func() { s.metrics.Observe("verify_email", apperrors.Code(err)) }()

	now := s.now()
	tokenHash := auth.HashSingleUseToken(token)
	user, err := s.users.FindByValidVerificationToken(ctx, tokenHash, now)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrInvalidOrExpiredToken
	}
	if err != nil {
		return oops.Code("USER_LOOKUP_FAILED").Wrapf(err, "find user by verification token")
	}

	err = s.users.ConsumeVerificationToken(ctx, user.ID, tokenHash, now)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrInvalidOrExpiredToken
	}
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").With("user_id", user.ID).Wrapf(err, "consume verification token")
	}
	s.invalidateProfile(ctx, user.ID)
	return nil
}

// RefreshAuthToken issues a fresh auth token for an active user.
func (s *authService) RefreshAuthToken(ctx context.Context, userID uuid.UUID) (result *AuthResult, err error) {
	defer func() { s.metrics.Observe("refresh", apperrors.Code(err)) }()

	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *authService) Wait() {
	s.wg.Wait()
}

func (s *authService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.IssueAuthToken(user.ID, user.Email)
	if err != nil {
		return nil, oops.Code("TOKEN_ISSUE_FAILED").With("user_id", user.ID).Wrap(err)
	}
	return &AuthResult{User: user.Public(), Token: token}, nil
}

func (s *authService) findUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, oops.Code("USER_LOOKUP_FAILED").With("user_id", userID).Wrapf(err, "find user")
	}
	return user, nil
}

func (s *authService) activeUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDeactivated
	}
	return user, nil
}

func (s *authService) invalidateProfile(ctx context.Context, userID uuid.UUID) {
	_ = s.cache.Delete(ctx, profileKey(userID))
}

// dispatch sends a token on a background goroutine so the response does not
// wait for the notifier.
func (s *authService) dispatch(recipient, token string, purpose notify.Purpose) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.NotifyTimeout)
		defer cancel()

		if err := s.notifier.Send(ctx, recipient, token, purpose); err != nil {
			logging.LogError(s.logger, "send notification failed", err, "purpose", string(purpose))
		}
	}()
}

func profileKey(userID uuid.UUID) string {
	return profileKeyPrefix + userID.String()
}
