package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// UserTracker is a store we can use to retrieve users and record attempts
type UserTracker interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Resolve(ctx context.Context, ref string) (*User, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

// UserProvider handles users
type UserProvider struct {
	store     UserTracker
	hasher    PasswordAuthenticator
	Validator func(*User) error
	logger    Logger
	now       func() time.Time
}

// MaxLoginAttempts is the maximun number of failed attempts a user gets
// in a CoolDownPeriod
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = 15 * time.Minute

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserTracker) *UserProvider {
	return &UserProvider{
		store:     store,
		hasher:    NewBcryptHasher(),
		logger:    defLogger(),
		now:       time.Now,
		Validator: defaultValidator,
	}
}

// WithLogger sets the logger
func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// WithHasher overrides the password hasher
func (u *UserProvider) WithHasher(h PasswordAuthenticator) *UserProvider {
	if h != nil {
		u.hasher = h
	}
	return u
}

// WithClock overrides the clock used for the cool down window
func (u *UserProvider) WithClock(now func() time.Time) *UserProvider {
	if now != nil {
		u.now = now
	}
	return u
}

func (u *UserProvider) validate(user *User) error {
	if u.Validator != nil {
		return u.Validator(user)
	}
	return defaultValidator(user)
}

// VerifyIdentity will find the user, compare the password and return
// the identity. Unknown emails and wrong passwords are indistinguishable.
// Account status is only disclosed once the password matched.
func (u UserProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	user, err := u.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) || isNoRows(err) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user.LoginAttemptAt != nil && IsOutsideThresholdPeriod(u.now(), *user.LoginAttemptAt, CoolDownPeriod) {
		user.LoginAttempts = 0
	}

	// too many failures in the window, cool off
	if user.LoginAttempts >= MaxLoginAttempts {
		return nil, withMeta(ErrTooManyLoginAttempts, map[string]any{"user_id": user.ID.String()})
	}

	if err := u.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if err2 := u.store.TrackAttemptedLogin(ctx, user); err2 != nil {
			return nil, errors.Wrap(err2, errors.CategoryInternal, "failed to track login attempt")
		}
		return nil, ErrMismatchedHashAndPassword
	}

	if err := ensureAuthenticatableUser(user); err != nil {
		return nil, err
	}

	if err := u.validate(user); err != nil {
		return nil, err
	}

	if err := u.store.TrackSuccessfulLogin(ctx, user); err != nil {
		u.logger.Error("failed to track successful login", "error", err, "user_id", user.ID.String())
	}

	return NewIdentityFromUser(user), nil
}

// FindIdentityByIdentifier loads the identity for an id or email
func (u UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	user, err := u.store.Resolve(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) || isNoRows(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	if err := ensureAuthenticatableUser(user); err != nil {
		return nil, err
	}

	if err := u.validate(user); err != nil {
		return nil, err
	}

	return NewIdentityFromUser(user), nil
}

// IsOutsideThresholdPeriod reports whether since is older than period
func IsOutsideThresholdPeriod(now, since time.Time, period time.Duration) bool {
	return now.Sub(since) > period
}

func defaultValidator(u *User) error {
	if !IsValidRole(u.Role) {
		return errors.New("user has an unkonwn or invalid role", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized).
			WithTextCode(TextCodeInvalidRole).
			WithMetadata(map[string]any{"role": u.Role, "user_id": u.ID.String()})
	}
	if IsClientRole(u.Role) && !u.HasOrganization() {
		return withMeta(ErrTenantScopeRequired, map[string]any{"user_id": u.ID.String()})
	}
	return nil
}

func ensureAuthenticatableUser(user *User) error {
	if user == nil {
		return ErrIdentityNotFound
	}

	user.EnsureStatus()
	if user.IsDisabled() {
		return withMeta(ErrUserDisabled, map[string]any{"user_id": user.ID.String()})
	}

	return nil
}
