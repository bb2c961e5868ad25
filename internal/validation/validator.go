// Package validation configures the struct validator shared by the HTTP layer
// and the credential store, and turns its failures into field errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	apperrors "jobtrack/internal/errors"
)

const (
	// MinPasswordLength is the minimum number of characters of a password.
	MinPasswordLength = 8
	// MaxPasswordBytes caps passwords below bcrypt's 72 byte input limit.
	MaxPasswordBytes = 72

	// PasswordPolicyMessage is reported for passwords failing CheckPassword.
	PasswordPolicyMessage = "Password must be at least 8 characters and include one uppercase letter, one lowercase letter, and one number"
)

// New builds a validator with the password policy and decimal support registered.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return CheckPassword(fl.Field().String())
	})

	return v
}

// CheckPassword reports whether p satisfies the password policy: at least
// eight characters with a lowercase letter, an uppercase letter and a digit.
func CheckPassword(p string) bool {
	if len([]rune(p)) < MinPasswordLength || len(p) > MaxPasswordBytes {
		return false
	}
	var lower, upper, digit bool
	for _, r := range p {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

// Translate converts validator failures into a *errors.ValidationError.
// Any other error is returned unchanged.
func Translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &apperrors.ValidationError{Fields: make([]apperrors.FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, apperrors.FieldError{
			Field:   fieldPath(fe),
			Message: message(fe),
		})
	}
	return out
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	// Drop the root struct name.
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	parts := strings.Split(ns, ".")
	for i, p := range parts {
		parts[i] = lowerFirst(p)
	}
	return strings.Join(parts, ".")
}

func message(fe validator.FieldError) string {
	label := humanize(fe.Field())
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "max":
		return fmt.Sprintf("%s cannot exceed %s characters", label, fe.Param())
	case "email":
		return "Please provide a valid email address"
	case "password":
		return PasswordPolicyMessage
	case "eqfield":
		return "New password and confirmation do not match"
	case "oneof":
		return "Invalid " + strings.ToLower(label)
	case "gte":
		return label + " cannot be negative"
	default:
		return label + " is invalid"
	}
}

// humanize turns "targetSalary" or "TargetSalary" into "Target salary".
func humanize(field string) string {
	var b strings.Builder
	for i, r := range field {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteRune(' ')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if i == 0 {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
