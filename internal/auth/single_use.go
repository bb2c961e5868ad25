package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	singleUseTokenBytes = 32 // 64 hex chars

	// DefaultResetTokenExpiry is how long a password reset token stays valid.
	DefaultResetTokenExpiry = time.Hour
	// DefaultVerificationTokenExpiry is how long an email verification token stays valid.
	DefaultVerificationTokenExpiry = 24 * time.Hour
	// MaxSingleUseTokenExpiry caps the lifetime of any single-use token.
	MaxSingleUseTokenExpiry = 24 * time.Hour
)

// SingleUseToken is an opaque random token for password reset or email
// verification. Token goes to the user, Hash is what gets stored.
type SingleUseToken struct {
	Token     string
	Hash      string
	ExpiresAt time.Time
}

// IssueSingleUseToken creates a random token valid for ttl starting at now.
func IssueSingleUseToken(now time.Time, ttl time.Duration) (SingleUseToken, error) {
	if ttl <= 0 || ttl > MaxSingleUseTokenExpiry {
		ttl = MaxSingleUseTokenExpiry
	}

	b := make([]byte, singleUseTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return SingleUseToken{}, fmt.Errorf("generate token: %w", err)
	}

	token := hex.EncodeToString(b)
	return SingleUseToken{
		Token:     token,
		Hash:      HashSingleUseToken(token),
		ExpiresAt: now.Add(ttl),
	}, nil
}

// HashSingleUseToken returns the SHA-256 hex digest under which a token is stored.
func HashSingleUseToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
