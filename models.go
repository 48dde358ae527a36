package auth

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserStatus is the lifecycle status of an account
type UserStatus = string

const (
	// UserStatusActive accounts can authenticate
	UserStatusActive UserStatus = "active"
	// UserStatusDisabled accounts are rejected at login
	UserStatusDisabled UserStatus = "disabled"
)

// Organization is the tenant boundary for client roles
type Organization struct {
	bun.BaseModel `bun:"table:organizations,alias:org"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	OrgCode       string     `bun:"org_code,notnull,unique" json:"orgId"`
	Name          string     `bun:"name,notnull" json:"name"`
	CreatedAt     *time.Time `bun:"created_at,nullzero" json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero" json:"updatedAt,omitempty"`
}

// User is the user model
type User struct {
	bun.BaseModel       `bun:"table:users,alias:usr"`
	ID                  uuid.UUID     `bun:"id,pk,type:uuid" json:"id"`
	Email               string        `bun:"email,notnull,unique" json:"email"`
	PasswordHash        string        `bun:"password_hash,notnull" json:"-"`
	Role                Role          `bun:"role,notnull" json:"role"`
	OrgID               uuid.UUID     `bun:"org_id,nullzero,type:uuid" json:"orgId,omitempty"`
	Organization        *Organization `bun:"rel:belongs-to,join:org_id=id" json:"organization,omitempty"`
	Status              UserStatus    `bun:"status,notnull" json:"status"`
	FirstName           string        `bun:"first_name,notnull" json:"firstName"`
	LastName            string        `bun:"last_name,notnull" json:"lastName"`
	Phone               string        `bun:"phone" json:"phone,omitempty"`
	Plan                string        `bun:"plan" json:"plan,omitempty"`
	AllowedIntegrations []string      `bun:"allowed_integrations" json:"allowedIntegrations"`
	SetupComplete       bool          `bun:"setup_complete,notnull,default:false" json:"setupComplete"`
	LoginAttempts       int           `bun:"login_attempts,notnull,default:0" json:"-"`
	LoginAttemptAt      *time.Time    `bun:"login_attempt_at,nullzero" json:"-"`
	LoggedInAt          *time.Time    `bun:"loggedin_at,nullzero" json:"loggedInAt,omitempty"`
	CreatedAt           *time.Time    `bun:"created_at,nullzero" json:"createdAt,omitempty"`
	UpdatedAt           *time.Time    `bun:"updated_at,nullzero" json:"updatedAt,omitempty"`
}

// EnsureStatus defaults an empty status to active
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusActive
	}
}

// IsDisabled reports whether the account may not authenticate
func (u *User) IsDisabled() bool {
	return u.Status == UserStatusDisabled
}

// HasOrganization reports whether the user is bound to a tenant
func (u *User) HasOrganization() bool {
	return u.OrgID != uuid.Nil
}

// OrganizationName returns the populated organization name, if any
func (u *User) OrganizationName() string {
	if u.Organization == nil {
		return ""
	}
	return u.Organization.Name
}

// OrganizationCode returns the public organization code, if any
func (u *User) OrganizationCode() string {
	if u.Organization == nil {
		return ""
	}
	return u.Organization.OrgCode
}

// NormalizeEmail lower-cases and trims an email so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidStatus checks the status is part of the closed set
func IsValidStatus(status string) bool {
	switch status {
	case UserStatusActive, UserStatusDisabled:
		return true
	default:
		return false
	}
}

// encodeStrings renders a string list the way bun stores slices
func encodeStrings(values []string) string {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(b)
}
