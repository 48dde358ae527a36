package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Greenhouse is the ATS integration consulted after a client_admin login
const Greenhouse = "greenhouse"

// DefaultTimeout bounds a single status check
const DefaultTimeout = 5 * time.Second

// TextCodeUnreachable tags status checks that produced no usable answer
const TextCodeUnreachable = "INTEGRATION_UNREACHABLE"

// ErrUnreachable is returned when the status endpoint could not be
// queried or answered with something other than a 2xx JSON body.
var ErrUnreachable = goerrors.New("integration status unreachable", goerrors.CategoryOperation).
	WithTextCode(TextCodeUnreachable)

// Status is the connection state of an integration for the caller's
// organization.
type Status struct {
	Connected bool `json:"connected"`
}

// StatusChecker is what the login flow needs from the gate
type StatusChecker interface {
	CheckStatus(ctx context.Context, name, token string) (Status, error)
}

// Client queries the integration status endpoint
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying http client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.HTTPClient = hc
		}
	}
}

// WithTimeout sets the per check timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// NewClient creates a status client for the API at baseURL
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
		Timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckStatus asks whether the named integration is connected. Every
// failure mode is reported as ErrUnreachable with the cause attached.
func (c *Client) CheckStatus(ctx context.Context, name, token string) (Status, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/api/integrations/%s/status", c.BaseURL, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Status{}, unreachable(name, err)
	}

	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return Status{}, unreachable(name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return Status{}, unreachable(name, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return Status{}, unreachable(name, err)
	}

	return status, nil
}

func unreachable(name string, cause error) error {
	return goerrors.Wrap(cause, goerrors.CategoryOperation, "integration status unreachable").
		WithTextCode(TextCodeUnreachable).
		WithMetadata(map[string]any{"integration": name})
}

// IsUnreachable reports whether err came from a failed status check
func IsUnreachable(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == TextCodeUnreachable
}
