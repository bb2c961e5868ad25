package notify

import (
	"context"
	"log/slog"
)

// LogNotifier is a Notifier that logs the link instead of sending it.
// Note that this is not meant for production use as it logs the token.
type LogNotifier struct {
	logger    *slog.Logger
	clientURL string
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(logger *slog.Logger, clientURL string) *LogNotifier {
	return &LogNotifier{
		logger:    logger,
		clientURL: clientURL,
	}
}

// Send logs the link to the logger.
func (n *LogNotifier) Send(ctx context.Context, recipient, token string, purpose Purpose) error {
	n.logger.InfoContext(ctx, "send notification",
		"recipient", recipient,
		"purpose", string(purpose),
		"link", Link(n.clientURL, purpose, token),
	)
	return nil
}
