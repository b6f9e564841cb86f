package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// Manager exposes the record store tables used by the engine
type Manager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	TeamMembers() *TeamMembers
	Shops() *Shops
	DB() *bun.DB
}

type mngr struct {
	db          *bun.DB
	teamMembers *TeamMembers
	shops       *Shops
}

// NewManager wires every repository on top of db
func NewManager(db *bun.DB) Manager {
	return &mngr{
		db:          db,
		teamMembers: NewTeamMembers(db),
		shops:       NewShops(db),
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository database should be initialized")
	}

	if m.teamMembers == nil {
		return errors.New("repository teamMembers should be initialized")
	}

	if m.shops == nil {
		return errors.New("repository shops should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) TeamMembers() *TeamMembers {
	return m.teamMembers
}

func (m mngr) Shops() *Shops {
	return m.shops
}

func (m mngr) DB() *bun.DB {
	return m.db
}
