package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MinPasswordLength is the shortest password accepted on create and reset
const MinPasswordLength = 6

var (
	errMissingFields    = NewValidationError("Missing required fields.", nil)
	errPasswordTooShort = NewValidationError("Password must be at least 6 characters.", nil)
	errOrgRequired      = NewValidationError("Organization is required for client roles.", nil)
	errUnknownOrg       = NewValidationError("Unknown organization.", nil)
	errRoleTargetAdmin  = goerrors.New("User not found or is a super admin.", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound).
				WithTextCode(TextCodeUserNotFound)
)

// CreateUserInput carries the fields of a new account
type CreateUserInput struct {
	Email               string
	Password            string
	FirstName           string
	LastName            string
	Role                Role
	Phone               string
	Plan                string
	OrgRef              string
	AllowedIntegrations []string
}

// UpdateUserInput carries a partial update. Nil fields are left alone.
type UpdateUserInput struct {
	FirstName           *string
	LastName            *string
	Phone               *string
	Plan                *string
	Role                *Role
	Status              *UserStatus
	OrgRef              *string
	AllowedIntegrations *[]string
	SetupComplete       *bool
}

// UserService applies role and tenant policy to every user operation.
// Every mutation resolves the target, asserts ownership and only then
// persists by id.
type UserService struct {
	repo         RepositoryManager
	users        Users
	orgs         Organizations
	hasher       PasswordAuthenticator
	states       UserStateMachine
	activitySink ActivitySink
	logger       Logger
	now          func() time.Time
}

// UserServiceOption configures the service
type UserServiceOption func(*UserService)

// WithUserServiceActivitySink sets the sink for user events
func WithUserServiceActivitySink(sink ActivitySink) UserServiceOption {
	return func(s *UserService) {
		s.activitySink = normalizeActivitySink(sink)
	}
}

// WithUserServiceLogger sets the logger
func WithUserServiceLogger(logger Logger) UserServiceOption {
	return func(s *UserService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithUserServiceHasher overrides the password hasher
func WithUserServiceHasher(h PasswordAuthenticator) UserServiceOption {
	return func(s *UserService) {
		if h != nil {
			s.hasher = h
		}
	}
}

// NewUserService wires the service over the repositories
func NewUserService(repo RepositoryManager, opts ...UserServiceOption) *UserService {
	s := &UserService{
		repo:         repo,
		users:        repo.Users(),
		orgs:         repo.Organizations(),
		hasher:       NewBcryptHasher(),
		activitySink: noopActivitySink{},
		logger:       defLogger(),
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.states = NewUserStateMachine(s.users, s.stateOptions()...)
	return s
}

func (s *UserService) stateOptions() []StateMachineOption {
	return []StateMachineOption{
		WithStateMachineActivitySink(s.activitySink),
		WithStateMachineLogger(s.logger),
	}
}

// statesIn returns a state machine that persists through tx
func (s *UserService) statesIn(tx bun.IDB) UserStateMachine {
	return NewUserStateMachine(txStatusUpdater{users: s.users, tx: tx}, s.stateOptions()...)
}

type txStatusUpdater struct {
	users Users
	tx    bun.IDB
}

func (u txStatusUpdater) UpdateStatus(ctx context.Context, id uuid.UUID, status UserStatus) (*User, error) {
	return u.users.UpdateFieldsTx(ctx, u.tx, id, UserPatch{Status: &status})
}

// List returns the users visible to actor
func (s *UserService) List(ctx context.Context, actor *Actor) ([]*User, error) {
	scope, err := ScopeFor(actor)
	if err != nil {
		return nil, err
	}
	return s.users.List(ctx, scope)
}

// Profile loads the actor's own record
func (s *UserService) Profile(ctx context.Context, actor *Actor) (*User, error) {
	if actor == nil {
		return nil, ErrUnableToFindSession
	}
	id, err := actor.UUID()
	if err != nil {
		return nil, withMeta(ErrUnableToDecodeSession, map[string]any{"actor_id": actor.ID})
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return user, nil
}

// Create adds a user. Client admins can only create client roles inside
// their own organization.
func (s *UserService) Create(ctx context.Context, actor *Actor, in CreateUserInput) (*User, error) {
	scope, err := ScopeFor(actor)
	if err != nil {
		return nil, err
	}

	in.Email = NormalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.Email == "" || in.Password == "" || in.FirstName == "" || in.LastName == "" || in.Role == "" {
		return nil, errMissingFields
	}

	if err := s.checkAssignableRole(actor, scope, in.Role); err != nil {
		return nil, err
	}

	if len(in.Password) < MinPasswordLength {
		return nil, errPasswordTooShort
	}

	phone, err := NormalizePhone(in.Phone)
	if err != nil {
		return nil, err
	}

	orgID, err := s.resolveOrg(ctx, scope, in.Role, in.OrgRef, uuid.Nil)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, &User{
		Email:               in.Email,
		PasswordHash:        hash,
		Role:                in.Role,
		OrgID:               orgID,
		Status:              UserStatusActive,
		FirstName:           in.FirstName,
		LastName:            in.LastName,
		Phone:               phone,
		Plan:                in.Plan,
		AllowedIntegrations: in.AllowedIntegrations,
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEventUserCreated, actor, user, map[string]any{"role": user.Role})
	return user, nil
}

// Update applies a partial update to the user behind ref
func (s *UserService) Update(ctx context.Context, actor *Actor, ref string, in UpdateUserInput) (*User, error) {
	scope, target, err := s.target(ctx, actor, ref)
	if err != nil {
		return nil, err
	}

	patch := UserPatch{
		Plan:                in.Plan,
		AllowedIntegrations: in.AllowedIntegrations,
		SetupComplete:       in.SetupComplete,
	}

	if in.FirstName != nil {
		v := strings.TrimSpace(*in.FirstName)
		if v == "" {
			return nil, errMissingFields
		}
		patch.FirstName = &v
	}
	if in.LastName != nil {
		v := strings.TrimSpace(*in.LastName)
		if v == "" {
			return nil, errMissingFields
		}
		patch.LastName = &v
	}
	if in.Phone != nil {
		phone, err := NormalizePhone(*in.Phone)
		if err != nil {
			return nil, err
		}
		patch.Phone = &phone
	}

	role := target.Role
	if in.Role != nil && *in.Role != target.Role {
		if err := s.checkAssignableRole(actor, scope, *in.Role); err != nil {
			return nil, err
		}
		role = *in.Role
		patch.Role = &role
	}

	if in.Status != nil && !IsValidStatus(*in.Status) {
		return nil, ErrInvalidStatus
	}

	if in.OrgRef != nil || patch.Role != nil {
		ref := ""
		if in.OrgRef != nil {
			ref = *in.OrgRef
		}
		orgID, err := s.resolveOrg(ctx, scope, role, ref, target.OrgID)
		if err != nil {
			return nil, err
		}
		if orgID != target.OrgID {
			patch.OrgID = &orgID
		}
	}

	updated := target
	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if !patch.IsEmpty() {
			patched, err := s.users.UpdateFieldsTx(ctx, tx, target.ID, patch)
			if err != nil {
				return mapNotFound(err)
			}
			updated = patched
		}

		if in.Status != nil {
			moved, err := s.statesIn(tx).Transition(ctx, actor.Ref(), updated, *in.Status)
			if err != nil {
				return err
			}
			updated = moved
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEventUserUpdated, actor, updated, nil)
	return updated, nil
}

// SetStatus activates or disables the user behind ref. Setting the
// current status again is a no-op.
func (s *UserService) SetStatus(ctx context.Context, actor *Actor, ref string, status UserStatus) (*User, error) {
	if !IsValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	_, target, err := s.target(ctx, actor, ref)
	if err != nil {
		return nil, err
	}

	return s.states.Transition(ctx, actor.Ref(), target, status)
}

// SetRole changes the role of a client user. Only client roles can be
// assigned here and super admins are never touched.
func (s *UserService) SetRole(ctx context.Context, actor *Actor, ref string, role Role) (*User, error) {
	if !IsClientRole(role) {
		return nil, ErrInvalidRole
	}

	scope, err := ScopeFor(actor)
	if err != nil {
		return nil, err
	}

	target, err := s.users.Resolve(ctx, ref)
	if err != nil {
		if goerrors.IsNotFound(err) || isNoRows(err) {
			return nil, errRoleTargetAdmin
		}
		return nil, err
	}
	if target.Role == RoleAdmin || !scope.Allows(target) {
		return nil, errRoleTargetAdmin
	}
	if err := scope.AssertOwns(target); err != nil {
		return nil, err
	}
	if !target.HasOrganization() {
		return nil, errOrgRequired
	}

	if target.Role == role {
		return target, nil
	}

	from := target.Role
	updated, err := s.users.UpdateFields(ctx, target.ID, UserPatch{Role: &role})
	if err != nil {
		return nil, mapNotFound(err)
	}

	s.record(ctx, ActivityEventUserRoleChanged, actor, updated, map[string]any{
		"from_role": from,
		"to_role":   role,
	})
	return updated, nil
}

// ResetPassword sets a new password for the user behind ref
func (s *UserService) ResetPassword(ctx context.Context, actor *Actor, ref, password string) error {
	if len(password) < MinPasswordLength {
		return errPasswordTooShort
	}

	_, target, err := s.target(ctx, actor, ref)
	if err != nil {
		return err
	}

	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return err
	}

	if err := s.users.ResetPassword(ctx, target.ID, hash); err != nil {
		return mapNotFound(err)
	}

	s.record(ctx, ActivityEventPasswordReset, actor, target, nil)
	return nil
}

// target resolves ref and asserts the actor may mutate it
func (s *UserService) target(ctx context.Context, actor *Actor, ref string) (TenantScope, *User, error) {
	scope, err := ScopeFor(actor)
	if err != nil {
		return TenantScope{}, nil, err
	}

	target, err := s.users.Resolve(ctx, ref)
	if err != nil {
		return scope, nil, mapNotFound(err)
	}

	if err := scope.AssertOwns(target); err != nil {
		return scope, nil, err
	}

	return scope, target, nil
}

// checkAssignableRole enforces who can hand out which role: only admins
// create admins or platform users, everyone else is limited to client roles.
func (s *UserService) checkAssignableRole(actor *Actor, scope TenantScope, role Role) error {
	if !IsValidRole(role) {
		return ErrInvalidRole
	}
	if IsClientRole(role) {
		return nil
	}
	if actor.IsAdmin() && scope.Unrestricted() {
		return nil
	}
	return withMeta(ErrInvalidRole, map[string]any{
		"actor_role": actor.Role,
		"role":       role,
	})
}

// resolveOrg picks the organization a record with role must carry
func (s *UserService) resolveOrg(ctx context.Context, scope TenantScope, role Role, ref string, current uuid.UUID) (uuid.UUID, error) {
	if !IsClientRole(role) {
		return uuid.Nil, nil
	}

	requested := current
	if ref = strings.TrimSpace(ref); ref != "" && scope.Unrestricted() {
		org, err := s.orgs.Resolve(ctx, ref)
		if err != nil {
			if goerrors.IsNotFound(err) || isNoRows(err) {
				return uuid.Nil, withMeta(errUnknownOrg, map[string]any{"org": ref})
			}
			return uuid.Nil, err
		}
		requested = org.ID
	}

	orgID := scope.ResolveOrg(requested)
	if orgID == uuid.Nil {
		return uuid.Nil, errOrgRequired
	}
	return orgID, nil
}

func (s *UserService) record(ctx context.Context, eventType ActivityEventType, actor *Actor, user *User, meta map[string]any) {
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor.Ref(),
		Metadata:  meta,
	}
	if user != nil {
		event.UserID = user.ID.String()
		event.OrgID = orgIDString(user.OrgID)
	}
	recordActivity(ctx, s.activitySink, s.logger, s.now, event)
}

func mapNotFound(err error) error {
	if goerrors.IsNotFound(err) || isNoRows(err) {
		return ErrUserNotFound
	}
	return err
}
