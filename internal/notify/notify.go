// Package notify delivers single-use tokens (password reset, email
// verification) to users.
package notify

import (
	"context"
	"fmt"
	"strings"
)

// Purpose identifies what a delivered token is for.
type Purpose string

const (
	PurposePasswordReset     Purpose = "password_reset"
	PurposeEmailVerification Purpose = "email_verification"
)

// Notifier sends a token to a recipient.
type Notifier interface {
	Send(ctx context.Context, recipient, token string, purpose Purpose) error
}

// Link builds the client URL at which the user redeems token.
func Link(clientURL string, purpose Purpose, token string) string {
	base := strings.TrimRight(clientURL, "/")
	switch purpose {
	case PurposePasswordReset:
		return base + "/reset-password/" + token
	case PurposeEmailVerification:
		return base + "/verify-email/" + token
	default:
		return base + "/" + token
	}
}

// Compose renders the subject and plain text body of a token email.
func Compose(clientURL string, purpose Purpose, token string) (subject, body string) {
	link := Link(clientURL, purpose, token)
	switch purpose {
	case PurposePasswordReset:
		return "Reset your password",
			fmt.Sprintf("We received a request to reset your password.\n\nOpen this link to choose a new one:\n%s\n\nIf you did not ask for this, you can ignore this email.\n", link)
	case PurposeEmailVerification:
		return "Verify your email address",
			fmt.Sprintf("Please confirm your email address by opening this link:\n%s\n", link)
	default:
		return "Your link", link + "\n"
	}
}
