package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_Normalize(t *testing.T) {
	u := &User{
		FirstName:    "  Ana ",
		LastName:     " Lee",
		Email:        "  Ana@X.com ",
		CurrentTitle: " Engineer ",
	}
	u.Normalize()

	assert.Equal(t, "Ana", u.FirstName)
	assert.Equal(t, "Lee", u.LastName)
	assert.Equal(t, "ana@x.com", u.Email)
	assert.Equal(t, "Engineer", u.CurrentTitle)
	assert.Equal(t, WorkTypeNoPreference, u.JobPreferences.WorkType)
	assert.Equal(t, EmploymentFullTime, u.EmploymentType)
}

func TestUser_Public(t *testing.T) {
	salary := decimal.NewFromInt(85000)
	token := "abc"
	u := &User{
		FirstName:          "Ana",
		LastName:           "Lee",
		Email:              "ana@x.com",
		PasswordHash:       "$2a$10$secret",
		TargetSalary:       &salary,
		ResetPasswordToken: &token,
		IsActive:           true,
	}

	p := u.Public()
	assert.Equal(t, "Ana Lee", p.FullName)

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "ana@x.com", fields["email"])
	assert.Equal(t, float64(85000), fields["targetSalary"])
	for _, secret := range []string{"password", "passwordHash", "PasswordHash", "resetPasswordToken", "emailVerificationToken"} {
		assert.NotContains(t, fields, secret)
	}
	assert.NotContains(t, string(raw), "$2a$10$secret")

	// The projection does not alias the salary of the record.
	*p.TargetSalary = decimal.Zero
	assert.True(t, u.TargetSalary.Equal(decimal.NewFromInt(85000)))
}
