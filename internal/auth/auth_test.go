package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	first, err := h.Hash("Passw0rd1")
	require.NoError(t, err)
	second, err := h.Hash("Passw0rd1")
	require.NoError(t, err)

	assert.NotEqual(t, "Passw0rd1", first)
	assert.NotEqual(t, first, second, "hashes must be salted")
	assert.True(t, h.Verify("Passw0rd1", first))
	assert.True(t, h.Verify("Passw0rd1", second))
	assert.False(t, h.Verify("wrong", first))
}

func TestBcryptHasher_FailsClosed(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	assert.False(t, h.Verify("Passw0rd1", ""))
	assert.False(t, h.Verify("Passw0rd1", "not-a-bcrypt-hash"))
}

func TestNewBcryptHasher_DefaultCost(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(0).cost)
	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(99).cost)
	assert.Equal(t, 12, NewBcryptHasher(12).cost)
}

func TestNewJWTService_MissingSecret(t *testing.T) {
	svc, err := NewJWTService("", time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)
	assert.Nil(t, svc)
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc, err := NewJWTService("test-secret", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultAuthTokenExpiry, svc.Expiry())

	userID := uuid.New()
	token, err := svc.IssueAuthToken(userID, "ana@x.com")
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	identity, err := svc.VerifyAuthToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, identity.UserID)
	assert.Equal(t, "ana@x.com", identity.Email)
}

func TestJWTService_Expired(t *testing.T) {
	svc, err := NewJWTService("test-secret", 7*24*time.Hour)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }

	token, err := svc.IssueAuthToken(uuid.New(), "ana@x.com")
	require.NoError(t, err)

	identity, err := svc.VerifyAuthToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, identity)
}

func TestJWTService_Malformed(t *testing.T) {
	svc, err := NewJWTService("test-secret", time.Hour)
	require.NoError(t, err)
	other, err := NewJWTService("other-secret", time.Hour)
	require.NoError(t, err)

	foreign, err := other.IssueAuthToken(uuid.New(), "ana@x.com")
	require.NoError(t, err)

	valid, err := svc.IssueAuthToken(uuid.New(), "ana@x.com")
	require.NoError(t, err)
	tampered := valid[:len(valid)-2] + "xx"

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID: uuid.NewString(),
		Email:  "ana@x.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	none, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: "not-a-uuid",
		Email:  "ana@x.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	badSubjectToken, err := badSubject.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: uuid.NewString(),
		Email:  "ana@x.com",
	})
	noExpiryToken, err := noExpiry.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "not.a.jwt",
		"wrong secret": foreign,
		"tampered":     tampered,
		"alg none":     none,
		"bad subject":  badSubjectToken,
		"missing exp":  noExpiryToken,
	} {
		t.Run(name, func(t *testing.T) {
			identity, err := svc.VerifyAuthToken(token)
			assert.ErrorIs(t, err, ErrMalformedToken)
			assert.NotErrorIs(t, err, ErrExpiredToken)
			assert.Nil(t, identity)
		})
	}
}

func TestIssueSingleUseToken(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	first, err := IssueSingleUseToken(now, time.Hour)
	require.NoError(t, err)
	second, err := IssueSingleUseToken(now, time.Hour)
	require.NoError(t, err)

	assert.Len(t, first.Token, 64)
	assert.NotEqual(t, first.Token, second.Token)
	assert.Equal(t, HashSingleUseToken(first.Token), first.Hash)
	assert.NotEqual(t, first.Token, first.Hash)
	assert.Equal(t, now.Add(time.Hour), first.ExpiresAt)
}

func TestIssueSingleUseToken_CapsExpiry(t *testing.T) {
	now := time.Now()

	tok, err := IssueSingleUseToken(now, 72*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, now.Add(MaxSingleUseTokenExpiry), tok.ExpiresAt)
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	id := &Identity{UserID: uuid.New(), Email: "ana@x.com"}
	got, ok := IdentityFromContext(WithIdentity(context.Background(), id))
	require.True(t, ok)
	assert.Equal(t, id, got)
}
