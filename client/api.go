package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// MessageLoginSuccess is shown after a session is persisted
	MessageLoginSuccess = "Login successful!"
	// MessageLoginFailed is the fallback when the server gives no message
	MessageLoginFailed = "Login failed"
	// MessageConnectionError is shown when the server can not be reached
	MessageConnectionError = "Error connecting to server"
	// MessageUnknownRole is shown when the role has no destination
	MessageUnknownRole = "Unknown role"
)

const (
	TextCodeLoginFailed     = "LOGIN_FAILED"
	TextCodeConnectionError = "CONNECTION_ERROR"
	TextCodeMissingFields   = "MISSING_FIELDS"
	TextCodeSubmitInFlight  = "SUBMIT_IN_FLIGHT"
)

// ErrMissingCredentials is returned before any request when email or
// password is empty
var ErrMissingCredentials = goerrors.New("Email and password are required.", goerrors.CategoryValidation).
	WithTextCode(TextCodeMissingFields)

// ErrSubmitInFlight is returned when Submit is called while another
// submission is still waiting for the server
var ErrSubmitInFlight = goerrors.New("A login is already in progress.", goerrors.CategoryConflict).
	WithTextCode(TextCodeSubmitInFlight)

// User is the user object returned by a successful login
type User struct {
	ID                  string   `json:"id"`
	Email               string   `json:"email"`
	Role                string   `json:"role"`
	OrgID               string   `json:"orgId,omitempty"`
	OrganizationID      string   `json:"organizationId,omitempty"`
	Organization        string   `json:"organization,omitempty"`
	FirstName           string   `json:"firstName"`
	LastName            string   `json:"lastName"`
	Phone               string   `json:"phone,omitempty"`
	Plan                string   `json:"plan,omitempty"`
	AllowedIntegrations []string `json:"allowedIntegrations,omitempty"`
	Status              string   `json:"status,omitempty"`
	SetupComplete       bool     `json:"setupComplete"`
}

// LoginResponse is the body of POST /api/auth/login
type LoginResponse struct {
	User      *User      `json:"user,omitempty"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// API talks to the portal auth endpoints
type API struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewAPI creates a client for the server at baseURL
func NewAPI(baseURL string, hc *http.Client) *API {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &API{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: hc,
	}
}

// Login posts the credentials. A 2xx answer without both user and token
// is a failure. The returned error message is what the user should see.
func (a *API) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, connectionError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, connectionError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, connectionError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, connectionError(err)
	}

	out := &LoginResponse{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, loginFailed("", resp.StatusCode)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || out.User == nil || out.Token == "" {
		return nil, loginFailed(out.Message, resp.StatusCode)
	}

	return out, nil
}

func loginFailed(message string, status int) error {
	if message == "" {
		message = MessageLoginFailed
	}
	return goerrors.New(message, goerrors.CategoryAuth).
		WithCode(status).
		WithTextCode(TextCodeLoginFailed)
}

func connectionError(cause error) error {
	return goerrors.Wrap(cause, goerrors.CategoryOperation, MessageConnectionError).
		WithTextCode(TextCodeConnectionError)
}

// UserMessage is the text to show for a failed login
func UserMessage(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.TextCode {
		case TextCodeConnectionError:
			return MessageConnectionError
		case TextCodeLoginFailed, TextCodeMissingFields:
			return richErr.Message
		}
	}
	return MessageLoginFailed
}

// Logout revokes token on the server. A 401 means the session is
// already gone and is not an error.
func (a *API) Logout(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/api/auth/logout", nil)
	if err != nil {
		return connectionError(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return connectionError(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
		return nil
	}
	return goerrors.New("logout failed", goerrors.CategoryOperation).WithCode(resp.StatusCode)
}
