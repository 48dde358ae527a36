package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Organizations stores tenants. Users reference them, never own them.
type Organizations interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	GetByCode(ctx context.Context, code string) (*Organization, error)
	GetByCodeTx(ctx context.Context, tx bun.IDB, code string) (*Organization, error)
	Resolve(ctx context.Context, ref string) (*Organization, error)
	Create(ctx context.Context, org *Organization) (*Organization, error)
	CreateTx(ctx context.Context, tx bun.IDB, org *Organization) (*Organization, error)
}

type organizations struct {
	db      *bun.DB
	records repository.Repository[*Organization]
	now     func() time.Time
}

// NewOrganizationsRepository returns the tenant store
func NewOrganizationsRepository(db *bun.DB) Organizations {
	handlers := repository.ModelHandlers[*Organization]{
		NewRecord: func() *Organization {
			return &Organization{}
		},
		GetID: func(record *Organization) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Organization, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "org_code"
		},
	}
	return &organizations{
		db:      db,
		records: repository.NewRepository(db, handlers),
		now:     time.Now,
	}
}

func (o *organizations) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	if id == uuid.Nil {
		return nil, notFound("org_id", id.String())
	}
	return o.records.GetByID(ctx, id.String())
}

func (o *organizations) GetByCode(ctx context.Context, code string) (*Organization, error) {
	return o.GetByCodeTx(ctx, o.db, code)
}

func (o *organizations) GetByCodeTx(ctx context.Context, tx bun.IDB, code string) (*Organization, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, notFound("org_code", code)
	}
	return o.records.GetByIdentifierTx(ctx, tx, code)
}

// Resolve accepts either the internal id or the public org code
func (o *organizations) Resolve(ctx context.Context, ref string) (*Organization, error) {
	if id, err := uuid.Parse(strings.TrimSpace(ref)); err == nil {
		return o.GetByID(ctx, id)
	}
	return o.GetByCode(ctx, ref)
}

func (o *organizations) Create(ctx context.Context, org *Organization) (*Organization, error) {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	now := o.now()
	if org.CreatedAt == nil {
		org.CreatedAt = &now
	}
	org.UpdatedAt = &now
	return o.records.Create(ctx, org)
}

func (o *organizations) CreateTx(ctx context.Context, tx bun.IDB, org *Organization) (*Organization, error) {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	now := o.now()
	if org.CreatedAt == nil {
		org.CreatedAt = &now
	}
	org.UpdatedAt = &now
	return o.records.CreateTx(ctx, tx, org)
}
