package appsumo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/ollyhq/olly-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://appsumo.com/openapi"
	responseBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("appsumo api key is required")

// Client wraps the AppSumo licensing API, the last resolver in the
// activation fallback chain.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the AppSumo client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// License is the normalized AppSumo license record.
type License struct {
	Key    string
	Status string
	Tier   int
}

// IsActive reports whether the license permits activation.
func (l *License) IsActive() bool {
	return l != nil && strings.EqualFold(l.Status, "active")
}

// GetLicense fetches the license record for the provided key. A 404 maps to
// a nil license with no error so resolvers can fall through cleanly.
func (c *Client) GetLicense(ctx context.Context, licenseKey string) (*License, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "appsumo client not configured")
	}
	trimmed := strings.TrimSpace(licenseKey)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "license key is required")
	}

	endpoint := fmt.Sprintf("%s/v2/licenses/%s", strings.TrimRight(c.baseURL, "/"), url.PathEscape(trimmed))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build license request")
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-AppSumo-Licensing-Key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute license request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "license request failed")
	}

	var apiResp struct {
		LicenseKey string `json:"license_key"`
		Status     string `json:"license_status"`
		Tier       int    `json:"tier"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode license response")
	}

	return &License{
		Key:    apiResp.LicenseKey,
		Status: apiResp.Status,
		Tier:   apiResp.Tier,
	}, nil
}
