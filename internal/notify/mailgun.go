package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// MailgunSettings contains the settings for the Mailgun API.
type MailgunSettings struct {
	APIHost  string
	Domain   string
	Username string
	Password string
	From     string
	// ClientURL is the frontend base URL the links point at.
	ClientURL string
	// Scheme defaults to https.
	Scheme string
}

// MailgunNotifier sends token emails using the Mailgun messages API.
type MailgunNotifier struct {
	client   *http.Client
	settings MailgunSettings
}

// NewMailgunNotifier creates a new notifier.
func NewMailgunNotifier(client *http.Client, s MailgunSettings) *MailgunNotifier {
	if s.Scheme == "" {
		s.Scheme = "https"
	}
	if s.Username == "" {
		s.Username = "api"
	}
	return &MailgunNotifier{
		client:   client,
		settings: s,
	}
}

// Send posts the email as a multipart form to Mailgun.
func (n *MailgunNotifier) Send(ctx context.Context, recipient, token string, purpose Purpose) error {
	subject, body := Compose(n.settings.ClientURL, purpose, token)

	fields := []struct {
		name  string
		value string
	}{
		{"from", n.settings.From},
		{"to", recipient},
		{"subject", subject},
		{"text", body},
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		ff, err := w.CreateFormField(f.name)
		if err != nil {
			return err
		}
		if _, err := io.Copy(ff, strings.NewReader(f.value)); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	reqURL := fmt.Sprintf("%s://%s/v3/%s/messages", n.settings.Scheme, n.settings.APIHost, n.settings.Domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.SetBasicAuth(n.settings.Username, n.settings.Password)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	resBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mailgun request did not succeed %d: %s", resp.StatusCode, string(resBody))
	}
	return nil
}
