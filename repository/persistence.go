package repository

import (
	"context"
	"database/sql"
	"io/fs"
	"time"

	goerrors "github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	auth "github.com/sandunudayakantha/saloon-auth"
	"github.com/sandunudayakantha/saloon-auth/tenant"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const migrationsRoot = "data/sql/migrations"

// PersistenceConfig feeds the persistence client
type PersistenceConfig struct {
	DSN         string
	Debug       bool
	PingTimeout time.Duration
}

func (c PersistenceConfig) GetDebug() bool {
	return c.Debug
}

func (c PersistenceConfig) GetDriver() string {
	return sqliteshim.ShimName
}

func (c PersistenceConfig) GetServer() string {
	return c.DSN
}

func (c PersistenceConfig) GetOtelIdentifier() string {
	return "saloon-auth"
}

func (c PersistenceConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

// Persistence owns the database handle and the embedded migrations
type Persistence struct {
	client *persistence.Client
	sqldb  *sql.DB
}

// OpenPersistence opens the sqlite database and registers the models and
// migrations with a persistence client. Migrations are not applied until
// Migrate is called.
func OpenPersistence(cfg PersistenceConfig) (*Persistence, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite database")
	}
	sqldb.SetMaxOpenConns(1)

	persistence.RegisterModel((*auth.TeamMember)(nil))
	persistence.RegisterModel((*tenant.Shop)(nil))

	client, err := persistence.New(cfg, sqldb, sqlitedialect.New())
	if err != nil {
		sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create persistence client")
	}

	migrations, err := fs.Sub(GetMigrationsFS(), migrationsRoot)
	if err != nil {
		sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read embedded migrations")
	}
	client.RegisterDialectMigrations(
		migrations,
		persistence.WithDialectSourceLabel(migrationsRoot),
	)

	return &Persistence{client: client, sqldb: sqldb}, nil
}

// Migrate applies pending migrations. Applied migrations are skipped.
func (p *Persistence) Migrate(ctx context.Context) error {
	if err := p.client.Migrate(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to apply migrations")
	}
	return nil
}

// DB returns the bun handle the repositories run on
func (p *Persistence) DB() *bun.DB {
	return p.client.DB()
}

func (p *Persistence) Close() error {
	return p.sqldb.Close()
}
