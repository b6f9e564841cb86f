package repository

import (
	"context"
	"database/sql"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/sandunudayakantha/saloon-auth"
	"github.com/sandunudayakantha/saloon-auth/tenant"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// OpenSQLite opens a bun database over the sqlite shim driver. In memory
// databases are pinned to a single connection so every query sees the
// same data.
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite database")
	}
	sqldb.SetMaxOpenConns(1)

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// CreateSchema creates the team_members and shops tables if missing
func CreateSchema(ctx context.Context, db bun.IDB) error {
	models := []any{
		(*auth.TeamMember)(nil),
		(*tenant.Shop)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create schema")
		}
	}

	return nil
}
