package repository

import (
	"context"

	repo "github.com/goliatone/go-repository-bun"
	"github.com/sandunudayakantha/saloon-auth/tenant"
	"github.com/uptrace/bun"
)

// Shops is the bun backed tenants table
type Shops struct {
	db *bun.DB
}

var _ tenant.ShopStore = (*Shops)(nil)

// NewShops creates the shops repository
func NewShops(db *bun.DB) *Shops {
	return &Shops{db: db}
}

// ListShops returns every shop, newest first. Ties on created_at are
// broken by id so the order is deterministic.
func (s *Shops) ListShops(ctx context.Context) ([]*tenant.Shop, error) {
	return s.ListShopsTx(ctx, s.db)
}

func (s *Shops) ListShopsTx(ctx context.Context, tx bun.IDB) ([]*tenant.Shop, error) {
	shops := []*tenant.Shop{}
	err := tx.NewSelect().
		Model(&shops).
		OrderExpr("?TableAlias.created_at DESC, ?TableAlias.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return shops, nil
}

// Create inserts a shop. The engine never creates shops, this exists for
// seeding and management screens.
func (s *Shops) Create(ctx context.Context, shop *tenant.Shop) (*tenant.Shop, error) {
	if _, err := s.db.NewInsert().Model(shop).Exec(ctx); err != nil {
		return nil, err
	}
	return shop, nil
}

// Update persists every column of shop by primary key
func (s *Shops) Update(ctx context.Context, shop *tenant.Shop) (*tenant.Shop, error) {
	res, err := s.db.NewUpdate().Model(shop).WherePK().Exec(ctx)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, repo.NewRecordNotFound().
			WithMetadata(map[string]any{"id": shop.ID})
	}
	return shop, nil
}
