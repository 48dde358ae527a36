package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
)

// Users is the credential store. Mutations are keyed by the immutable id;
// email is only a lookup convenience.
type Users interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	Resolve(ctx context.Context, ref string) (*User, error)
	List(ctx context.Context, scope TenantScope) ([]*User, error)

	Create(ctx context.Context, user *User) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	UpdateFields(ctx context.Context, id uuid.UUID, patch UserPatch) (*User, error)
	UpdateFieldsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, patch UserPatch) (*User, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status UserStatus) (*User, error)
	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

// UserPatch lists the mutable fields of a user. Nil fields are left alone.
type UserPatch struct {
	FirstName           *string
	LastName            *string
	Phone               *string
	Plan                *string
	Role                *Role
	Status              *UserStatus
	OrgID               *uuid.UUID
	AllowedIntegrations *[]string
	SetupComplete       *bool
}

// IsEmpty reports whether the patch changes nothing
func (p UserPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Phone == nil &&
		p.Plan == nil && p.Role == nil && p.Status == nil && p.OrgID == nil &&
		p.AllowedIntegrations == nil && p.SetupComplete == nil
}

type users struct {
	db      *bun.DB
	records repository.Repository[*User]
	now     func() time.Time
}

var _ Users = (*users)(nil)

// UsersOption configures the users repository
type UsersOption func(*users)

// WithUsersClock overrides the clock used for timestamps
func WithUsersClock(now func() time.Time) UsersOption {
	return func(u *users) {
		if now != nil {
			u.now = now
		}
	}
}

// NewUsersRepository returns a bun backed credential store
func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	records := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repo := &users{
		db:      db,
		records: records,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

func (a *users) selectUser(tx bun.IDB, record *User) *bun.SelectQuery {
	return tx.NewSelect().
		Model(record).
		Relation("Organization")
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

func (a *users) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return nil, notFound("email", email)
	}

	record := &User{}
	err := a.selectUser(tx, record).
		Where("?TableAlias.email = ?", normalized).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, notFound("email", normalized)
		}
		return nil, err
	}
	return record, nil
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *users) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	if id == uuid.Nil {
		return nil, notFound("id", id.String())
	}

	record := &User{}
	err := a.selectUser(tx, record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, notFound("id", id.String())
		}
		return nil, err
	}
	return record, nil
}

// Resolve finds a user by id, falling back to email
func (a *users) Resolve(ctx context.Context, ref string) (*User, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return a.GetByID(ctx, id)
	}
	return a.FindByEmail(ctx, ref)
}

func (a *users) List(ctx context.Context, scope TenantScope) ([]*User, error) {
	var records []*User
	q := a.db.NewSelect().
		Model(&records).
		Relation("Organization")

	err := scope.Apply(q).
		OrderExpr("?TableAlias.email ASC").
		Scan(ctx)
	if err != nil && !isNoRows(err) {
		return nil, err
	}
	return records, nil
}

func (a *users) Create(ctx context.Context, record *User) (*User, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	if record == nil {
		return nil, NewValidationError("Missing required fields.", nil)
	}

	a.prepareUserDefaults(record)

	exists, err := tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.email = ?", record.Email).
		Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, withMeta(ErrUserExists, map[string]any{"email": record.Email})
	}

	if _, err := a.records.CreateTx(ctx, tx, record); err != nil {
		if isUniqueViolation(err) {
			return nil, withMeta(ErrUserExists, map[string]any{"email": record.Email})
		}
		return nil, err
	}

	return a.GetByIDTx(ctx, tx, record.ID)
}

func (a *users) UpdateFields(ctx context.Context, id uuid.UUID, patch UserPatch) (*User, error) {
	return a.UpdateFieldsTx(ctx, a.db, id, patch)
}

func (a *users) UpdateFieldsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, patch UserPatch) (*User, error) {
	q := tx.NewUpdate().
		Model((*User)(nil)).
		Set("updated_at = ?", a.now()).
		Where("id = ?", id)

	if patch.FirstName != nil {
		q = q.Set("first_name = ?", *patch.FirstName)
	}
	if patch.LastName != nil {
		q = q.Set("last_name = ?", *patch.LastName)
	}
	if patch.Phone != nil {
		q = q.Set("phone = ?", *patch.Phone)
	}
	if patch.Plan != nil {
		q = q.Set("plan = ?", *patch.Plan)
	}
	if patch.Role != nil {
		q = q.Set("role = ?", *patch.Role)
	}
	if patch.Status != nil {
		q = q.Set("status = ?", *patch.Status)
	}
	if patch.OrgID != nil {
		if *patch.OrgID == uuid.Nil {
			q = q.Set("org_id = NULL")
		} else {
			q = q.Set("org_id = ?", *patch.OrgID)
		}
	}
	if patch.AllowedIntegrations != nil {
		q = q.Set("allowed_integrations = ?", encodeStrings(*patch.AllowedIntegrations))
	}
	if patch.SetupComplete != nil {
		q = q.Set("setup_complete = ?", *patch.SetupComplete)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, notFound("id", id.String())
	}

	return a.GetByIDTx(ctx, tx, id)
}

func (a *users) UpdateStatus(ctx context.Context, id uuid.UUID, status UserStatus) (*User, error) {
	return a.UpdateFields(ctx, id, UserPatch{Status: &status})
}

func (a *users) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("login_attempts = 0").
		Set("login_attempt_at = NULL").
		Set("updated_at = ?", a.now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound("id", id.String())
	}
	return nil
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	now := a.now()
	_, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("loggedin_at = ?", now).
		Set("login_attempts = 0").
		Set("login_attempt_at = NULL").
		Where("id = ?", user.ID).
		Exec(ctx)
	if err != nil {
		return err
	}

	user.LoggedInAt = &now
	user.LoginAttempts = 0
	user.LoginAttemptAt = nil
	return nil
}

func (a *users) TrackAttemptedLogin(ctx context.Context, user *User) error {
	now := a.now()
	attempts := user.LoginAttempts + 1
	_, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("login_attempts = ?", attempts).
		Set("login_attempt_at = ?", now).
		Where("id = ?", user.ID).
		Exec(ctx)
	if err != nil {
		return err
	}

	user.LoginAttempts = attempts
	user.LoginAttemptAt = &now
	return nil
}

func (a *users) prepareUserDefaults(record *User) {
	record.Email = NormalizeEmail(record.Email)
	record.EnsureStatus()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.AllowedIntegrations == nil {
		record.AllowedIntegrations = []string{}
	}

	now := a.now()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	record.UpdatedAt = &now
}

func notFound(field, value string) error {
	return repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			field: value,
		})
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
