package integration

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Connection records whether an organization has connected an integration
type Connection struct {
	bun.BaseModel `bun:"table:integration_connections,alias:ic"`
	OrgID         uuid.UUID  `bun:"org_id,pk,type:uuid" json:"orgId"`
	Integration   string     `bun:"integration,pk" json:"integration"`
	Connected     bool       `bun:"connected,notnull,default:false" json:"connected"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero" json:"updatedAt,omitempty"`
}

// Store reads and writes connection state
type Store interface {
	IsConnected(ctx context.Context, orgID uuid.UUID, name string) (bool, error)
	SetConnected(ctx context.Context, orgID uuid.UUID, name string, connected bool) error
}

type store struct {
	db  bun.IDB
	now func() time.Time
}

// NewStore returns a bun backed Store
func NewStore(db bun.IDB) Store {
	return &store{db: db, now: time.Now}
}

// EnsureSchema creates the connections table
func EnsureSchema(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*Connection)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// IsConnected returns false for organizations without a record
func (s *store) IsConnected(ctx context.Context, orgID uuid.UUID, name string) (bool, error) {
	conn := new(Connection)
	err := s.db.NewSelect().
		Model(conn).
		Where("?TableAlias.org_id = ?", orgID).
		Where("?TableAlias.integration = ?", name).
		Limit(1).
		Scan(ctx)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load integration connection").
			WithMetadata(map[string]any{
				"org_id":      orgID.String(),
				"integration": name,
			})
	}

	return conn.Connected, nil
}

func (s *store) SetConnected(ctx context.Context, orgID uuid.UUID, name string, connected bool) error {
	now := s.now()
	conn := &Connection{
		OrgID:       orgID,
		Integration: name,
		Connected:   connected,
		UpdatedAt:   &now,
	}

	_, err := s.db.NewInsert().
		Model(conn).
		On("CONFLICT (org_id, integration) DO UPDATE").
		Set("connected = EXCLUDED.connected").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save integration connection").
			WithMetadata(map[string]any{
				"org_id":      orgID.String(),
				"integration": name,
			})
	}
	return nil
}
