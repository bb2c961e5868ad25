package repository

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "jobtrack/internal/errors"
	"jobtrack/internal/model"
	"jobtrack/internal/validation"
)

// UserRepository defines persistence operations.
//
// Lookups that match nothing, including unknown or expired tokens, return
// gorm.ErrRecordNotFound.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	UpdateProfile(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	IsActive(ctx context.Context, id uuid.UUID) (bool, error)
	FindByValidResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error)
	FindByValidVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error
	SetVerificationToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, id uuid.UUID, tokenHash, passwordHash string, now time.Time) error
	ConsumeVerificationToken(ctx context.Context, id uuid.UUID, tokenHash string, now time.Time) error
}

type userRepository struct {
	db       *gorm.DB
	validate *validator.Validate
}

// NewUserRepository builds a GORM-backed repository. The DB should be opened
// with TranslateError so duplicate emails can be detected.
func NewUserRepository(db *gorm.DB, validate *validator.Validate) UserRepository {
	if validate == nil {
		validate = validation.New()
	}
	return &userRepository{db: db, validate: validate}
}

func (r *userRepository) check(user *model.User) error {
	user.Normalize()
	return validation.Translate(r.validate.Struct(user))
}

// Create validates and inserts a new user.
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.check(user); err != nil {
		return err
	}
	return mapWriteErr(r.db.WithContext(ctx).Create(user).Error)
}

// profileColumns are the columns written by UpdateProfile. Credentials,
// tokens and account status have their own conditional writes.
var profileColumns = []string{
	"first_name",
	"last_name",
	"current_title",
	"target_salary",
	"location",
	"job_pref_work_type",
	"employment_type",
	"updated_at",
}

// UpdateProfile validates user and writes only its profile columns, so a
// password or token change committed since user was read is kept.
func (r *userRepository) UpdateProfile(ctx context.Context, user *model.User) error {
	if err := r.check(user); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Model(user).Select(profileColumns).Updates(user).Error
	return mapWriteErr(err)
}

// FindByID finds a user by ID.
func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by normalized email.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", model.NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// IsActive reads only the account status of a user.
func (r *userRepository) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Select("is_active").Where("id = ?", id).Take(&user).Error; err != nil {
		return false, err
	}
	return user.IsActive, nil
}

// FindByValidResetToken finds the user holding an unexpired reset token.
func (r *userRepository) FindByValidResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("reset_password_token = ? AND reset_password_expire > ?", tokenHash, now).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByValidVerificationToken finds the user holding an unexpired verification token.
func (r *userRepository) FindByValidVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("email_verification_token = ? AND email_verification_expire > ?", tokenHash, now).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// TouchLastLogin records a successful login.
func (r *userRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return updateColumns(r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id),
		map[string]interface{}{"last_login": at})
}

// SetPassword replaces the password hash.
func (r *userRepository) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return updateColumns(r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id),
		map[string]interface{}{"password_hash": passwordHash})
}

// SetResetToken stores a reset token, replacing any earlier one.
func (r *userRepository) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	return updateColumns(r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id),
		map[string]interface{}{
			"reset_password_token":  tokenHash,
			"reset_password_expire": expiresAt,
		})
}

// SetVerificationToken stores a verification token, replacing any earlier one.
func (r *userRepository) SetVerificationToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	return updateColumns(r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id),
		map[string]interface{}{
			"email_verification_token":  tokenHash,
			"email_verification_expire": expiresAt,
		})
}

// ConsumeResetToken sets the new password and clears the reset token, but
// only while the token is still stored and unexpired. A second consume with
// the same token returns gorm.ErrRecordNotFound.
func (r *userRepository) ConsumeResetToken(ctx context.Context, id uuid.UUID, tokenHash, passwordHash string, now time.Time) error {
	q := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND reset_password_token = ? AND reset_password_expire > ?", id, tokenHash, now)
	return updateColumns(q, map[string]interface{}{
		"password_hash":         passwordHash,
		"reset_password_token":  nil,
		"reset_password_expire": nil,
	})
}

// ConsumeVerificationToken marks the email verified and clears the token,
// under the same single-use rule as ConsumeResetToken.
func (r *userRepository) ConsumeVerificationToken(ctx context.Context, id uuid.UUID, tokenHash string, now time.Time) error {
	q := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND email_verification_token = ? AND email_verification_expire > ?", id, tokenHash, now)
	return updateColumns(q, map[string]interface{}{
		"is_email_verified":         true,
		"email_verification_token":  nil,
		"email_verification_expire": nil,
	})
}

func updateColumns(q *gorm.DB, values map[string]interface{}) error {
	res := q.Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func mapWriteErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.ErrDuplicateEmail
	}
	return err
}
