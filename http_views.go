package auth

import "time"

// UserView is the public shape of a user. It never carries the password hash.
type UserView struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	Role                Role       `json:"role"`
	OrgID               string     `json:"orgId"`
	OrganizationID      string     `json:"organizationId,omitempty"`
	Organization        string     `json:"organization"`
	FirstName           string     `json:"firstName"`
	LastName            string     `json:"lastName"`
	Phone               string     `json:"phone,omitempty"`
	Plan                string     `json:"plan,omitempty"`
	AllowedIntegrations []string   `json:"allowedIntegrations"`
	Status              UserStatus `json:"status"`
	SetupComplete       bool       `json:"setupComplete"`
	LoggedInAt          *time.Time `json:"loggedInAt,omitempty"`
}

// NewUserView renders user for responses
func NewUserView(user *User) UserView {
	if user == nil {
		return UserView{}
	}
	user.EnsureStatus()

	integrations := user.AllowedIntegrations
	if integrations == nil {
		integrations = []string{}
	}

	return UserView{
		ID:                  user.ID.String(),
		Email:               user.Email,
		Role:                user.Role,
		OrgID:               user.OrganizationCode(),
		OrganizationID:      orgIDString(user.OrgID),
		Organization:        user.OrganizationName(),
		FirstName:           user.FirstName,
		LastName:            user.LastName,
		Phone:               user.Phone,
		Plan:                user.Plan,
		AllowedIntegrations: integrations,
		Status:              user.Status,
		SetupComplete:       user.SetupComplete,
		LoggedInAt:          user.LoggedInAt,
	}
}

// NewUserViews renders a listing
func NewUserViews(users []*User) []UserView {
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserView(u))
	}
	return out
}

// ProfileView is the trimmed profile used by the client portal
type ProfileView struct {
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Organization string `json:"organization"`
	Role         Role   `json:"role"`
	OrgID        string `json:"orgId"`
}

// NewProfileView renders the portal profile
func NewProfileView(user *User) ProfileView {
	return ProfileView{
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Organization: user.OrganizationName(),
		Role:         user.Role,
		OrgID:        user.OrganizationCode(),
	}
}

// LoginResponse is the body of a successful login
type LoginResponse struct {
	User      UserView  `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}
