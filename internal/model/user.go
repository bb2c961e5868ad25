package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// targetSalary is a JSON number on the wire.
	decimal.MarshalJSONWithoutQuotes = true
}

// Work types accepted in JobPreferences.
const (
	WorkTypeRemote       = "Remote"
	WorkTypeOnsite       = "Onsite"
	WorkTypeHybrid       = "Hybrid"
	WorkTypeNoPreference = "No preference"
)

// Employment types accepted on a User.
const (
	EmploymentFullTime     = "Full-time"
	EmploymentPartTime     = "Part-time"
	EmploymentContract     = "Contract"
	EmploymentInternship   = "Internship"
	EmploymentNoPreference = "No preference"
)

// JobPreferences holds the job search preferences of a user.
type JobPreferences struct {
	WorkType string `json:"workType" gorm:"size:20;not null" validate:"omitempty,oneof=Remote Onsite Hybrid 'No preference'"`
}

// User represents a registered account of the job tracker.
type User struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	FirstName string    `gorm:"size:50;not null" validate:"required,max=50"`
	LastName  string    `gorm:"size:50;not null" validate:"required,max=50"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" validate:"required,email,max=255"`
	// Never expose in JSON.
	PasswordHash string `gorm:"size:255;not null" validate:"required"`

	CurrentTitle   string           `gorm:"size:100" validate:"max=100"`
	TargetSalary   *decimal.Decimal `gorm:"type:decimal(12,2)" validate:"omitempty,gte=0"`
	Location       string           `gorm:"size:100" validate:"max=100"`
	JobPreferences JobPreferences   `gorm:"embedded;embeddedPrefix:job_pref_"`
	EmploymentType string           `gorm:"size:20;not null" validate:"oneof=Full-time Part-time Contract Internship 'No preference'"`

	IsEmailVerified bool `gorm:"not null;default:false"`
	// Token columns hold SHA-256 digests, never the tokens themselves.
	EmailVerificationToken  *string `gorm:"size:64;index"`
	EmailVerificationExpire *time.Time
	ResetPasswordToken      *string `gorm:"size:64;index"`
	ResetPasswordExpire     *time.Time

	IsActive  bool `gorm:"not null;default:true;index"`
	LastLogin time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Normalize trims string fields, lowercases the email and fills defaults.
func (u *User) Normalize() {
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)
	u.Email = NormalizeEmail(u.Email)
	u.CurrentTitle = strings.TrimSpace(u.CurrentTitle)
	u.Location = strings.TrimSpace(u.Location)
	if u.JobPreferences.WorkType == "" {
		u.JobPreferences.WorkType = WorkTypeNoPreference
	}
	if u.EmploymentType == "" {
		u.EmploymentType = EmploymentFullTime
	}
}

// FullName returns the first and last name separated by a space.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PublicUser is the external representation of a User. It never carries the
// password hash or any token material.
type PublicUser struct {
	ID              uuid.UUID        `json:"id"`
	FirstName       string           `json:"firstName"`
	LastName        string           `json:"lastName"`
	FullName        string           `json:"fullName"`
	Email           string           `json:"email"`
	CurrentTitle    string           `json:"currentTitle,omitempty"`
	TargetSalary    *decimal.Decimal `json:"targetSalary,omitempty"`
	Location        string           `json:"location,omitempty"`
	JobPreferences  JobPreferences   `json:"jobPreferences"`
	EmploymentType  string           `json:"employmentType"`
	IsEmailVerified bool             `json:"isEmailVerified"`
	IsActive        bool             `json:"isActive"`
	LastLogin       time.Time        `json:"lastLogin"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// Public projects the user onto its external representation.
func (u *User) Public() *PublicUser {
	p := &PublicUser{
		ID:              u.ID,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		FullName:        u.FullName(),
		Email:           u.Email,
		CurrentTitle:    u.CurrentTitle,
		Location:        u.Location,
		JobPreferences:  u.JobPreferences,
		EmploymentType:  u.EmploymentType,
		IsEmailVerified: u.IsEmailVerified,
		IsActive:        u.IsActive,
		LastLogin:       u.LastLogin,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
	if u.TargetSalary != nil {
		salary := *u.TargetSalary
		p.TargetSalary = &salary
	}
	return p
}
