package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
)

const responseBodyReadLimit int64 = 512

// Notifier posts analytics notifications to a Discord webhook. A zero-value
// Notifier (empty URL) is a no-op so milestone side effects stay optional.
type Notifier struct {
	httpClient *http.Client
	webhookURL string
}

// Option configures optional notifier behavior.
type Option func(*Notifier)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(n *Notifier) {
		if client != nil {
			n.httpClient = client
		}
	}
}

// NewNotifier builds a Discord webhook notifier. An empty URL is allowed and
// produces a notifier that silently drops messages.
func NewNotifier(webhookURL string, opts ...Option) *Notifier {
	n := &Notifier{
		webhookURL: strings.TrimSpace(webhookURL),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	if n.httpClient == nil {
		n.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return n
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.webhookURL != ""
}

// Send posts a plain-content message to the webhook.
func (n *Notifier) Send(ctx context.Context, content string) error {
	if !n.Enabled() {
		return nil
	}
	if strings.TrimSpace(content) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification content is required")
	}

	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal notification")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build notification request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute notification request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "notification request failed")
	}

	return nil
}
