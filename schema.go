package auth

import (
	"context"

	"github.com/uptrace/bun"
)

// Models returns the bun models owned by this package
func Models() []any {
	return []any{
		(*Organization)(nil),
		(*User)(nil),
	}
}

// CreateSchema creates the tables this package needs when missing
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, model := range Models() {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}

	_, err := db.NewCreateIndex().
		Model((*User)(nil)).
		Index("users_org_id_idx").
		Column("org_id").
		IfNotExists().
		Exec(ctx)
	return err
}
