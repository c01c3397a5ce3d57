package lemonsqueezy

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
	defaultBaseURL             = "https://api.lemonsqueezy.com"
	responseBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("lemonsqueezy api key is required")

// Client wraps the LemonSqueezy license API used during activation fallback
// and nightly reconciliation.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	storeID    string
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

// NewClient builds the LemonSqueezy client given an API key and store id.
func NewClient(apiKey, storeID string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		storeID:    strings.TrimSpace(storeID),
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

// LicenseResult is the normalized outcome of a validate or activate call.
type LicenseResult struct {
	Activated bool
	Valid     bool
	Error     string
	Key       string
	Status    string
	ProductID string
	StoreID   string
}

// Activate registers an instance against the license key. LemonSqueezy
// returns activated=false with an error string rather than a non-2xx status
// for business failures, so callers inspect the result, not just the error.
func (c *Client) Activate(ctx context.Context, licenseKey, instanceName string) (*LicenseResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "lemonsqueezy client not configured")
	}
	if strings.TrimSpace(licenseKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "license key is required")
	}
	if strings.TrimSpace(instanceName) == "" {
		instanceName = "olly-extension"
	}

	form := url.Values{}
	form.Set("license_key", licenseKey)
	form.Set("instance_name", instanceName)

	return c.postLicenseForm(ctx, "v1/licenses/activate", form)
}

// Validate checks the current status of a license key without consuming an
// activation slot.
func (c *Client) Validate(ctx context.Context, licenseKey string) (*LicenseResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "lemonsqueezy client not configured")
	}
	if strings.TrimSpace(licenseKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "license key is required")
	}

	form := url.Values{}
	form.Set("license_key", licenseKey)

	return c.postLicenseForm(ctx, "v1/licenses/validate", form)
}

func (c *Client) postLicenseForm(ctx context.Context, path string, form url.Values) (*LicenseResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build license request")
	}

	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute license request")
	}
	defer func() { _ = resp.Body.Close() }()

	// 400s carry a JSON body describing the business failure, e.g. an
	// already-activated key. Anything else is a transport level problem.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest && resp.StatusCode != http.StatusNotFound {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "license request failed")
	}

	var apiResp struct {
		Activated  bool    `json:"activated"`
		Valid      bool    `json:"valid"`
		Error      *string `json:"error"`
		LicenseKey struct {
			Key    string `json:"key"`
			Status string `json:"status"`
		} `json:"license_key"`
		Meta struct {
			StoreID   json.Number `json:"store_id"`
			ProductID json.Number `json:"product_id"`
		} `json:"meta"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode license response")
	}

	result := &LicenseResult{
		Activated: apiResp.Activated,
		Valid:     apiResp.Valid,
		Key:       apiResp.LicenseKey.Key,
		Status:    apiResp.LicenseKey.Status,
		ProductID: apiResp.Meta.ProductID.String(),
		StoreID:   apiResp.Meta.StoreID.String(),
	}
	if apiResp.Error != nil {
		result.Error = *apiResp.Error
	}

	return result, nil
}

// BelongsToStore reports whether the result came from the configured store.
// An unconfigured store id disables the check.
func (c *Client) BelongsToStore(result *LicenseResult) bool {
	if c == nil || c.storeID == "" || result == nil {
		return true
	}
	return result.StoreID == c.storeID
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
