package client

import (
	"encoding/json"
	"errors"
	"time"
)

// Session keys written on login and cleared on teardown
const (
	KeyUser         = "user"
	KeyToken        = "token"
	KeyRole         = "role"
	KeyFirstName    = "firstName"
	KeyLastName     = "lastName"
	KeyOrganization = "organization"
	KeyOrgID        = "orgId"
)

// SessionKeys lists every key owned by the session
var SessionKeys = []string{
	KeyUser,
	KeyToken,
	KeyRole,
	KeyFirstName,
	KeyLastName,
	KeyOrganization,
	KeyOrgID,
}

// DefaultTokenLifetime is used for the advisory expiry when the server
// does not send expiresAt
const DefaultTokenLifetime = time.Hour

// StoredUser is the user object persisted under the user key
type StoredUser struct {
	User
	Token       string `json:"token"`
	TokenExpiry int64  `json:"tokenExpiry"`
}

// ExpiresAt returns the advisory expiry
func (u StoredUser) ExpiresAt() time.Time {
	return time.UnixMilli(u.TokenExpiry)
}

// SessionContext owns the persisted client session. The server remains
// the authority on token validity, the stored expiry is advisory.
type SessionContext struct {
	storage Storage
	now     func() time.Time
}

// NewSessionContext wraps storage
func NewSessionContext(storage Storage) *SessionContext {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &SessionContext{storage: storage, now: time.Now}
}

// Init persists a successful login
func (s *SessionContext) Init(resp *LoginResponse) (*StoredUser, error) {
	expiry := s.now().Add(DefaultTokenLifetime)
	if resp.ExpiresAt != nil && !resp.ExpiresAt.IsZero() {
		expiry = *resp.ExpiresAt
	}

	stored := &StoredUser{
		User:        *resp.User,
		Token:       resp.Token,
		TokenExpiry: expiry.UnixMilli(),
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}

	values := [][2]string{
		{KeyUser, string(raw)},
		{KeyToken, resp.Token},
		{KeyRole, resp.User.Role},
		{KeyFirstName, resp.User.FirstName},
		{KeyLastName, resp.User.LastName},
		{KeyOrganization, resp.User.Organization},
		{KeyOrgID, resp.User.OrgID},
	}

	for _, kv := range values {
		if err := s.storage.Set(kv[0], kv[1]); err != nil {
			// no half written session survives a failed login
			if terr := s.Teardown(); terr != nil {
				return nil, errors.Join(err, terr)
			}
			return nil, err
		}
	}

	return stored, nil
}

// Current returns the stored session when present and not past its
// advisory expiry
func (s *SessionContext) Current() (*StoredUser, bool) {
	raw, ok := s.storage.Get(KeyUser)
	if !ok || raw == "" {
		return nil, false
	}

	stored := &StoredUser{}
	if err := json.Unmarshal([]byte(raw), stored); err != nil {
		return nil, false
	}

	if stored.Token == "" || !s.now().Before(stored.ExpiresAt()) {
		return nil, false
	}

	return stored, true
}

// Token returns the stored bearer token
func (s *SessionContext) Token() string {
	token, _ := s.storage.Get(KeyToken)
	return token
}

// Teardown removes every session key
func (s *SessionContext) Teardown() error {
	return s.storage.Remove(SessionKeys...)
}
