package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"makiti/internal/domain"
)

type ShopRepo struct{ base }

func NewShopRepo(db *sqlx.DB, opts ...Options) *ShopRepo { return &ShopRepo{newBase(db, opts)} }

func (r *ShopRepo) GetByOwner(ctx context.Context, sellerID string) (*domain.Shop, error) {
	var s domain.Shop
	err := r.read(ctx, "shop.get_by_owner", func(ctx context.Context) error {
		return notFound(r.db.GetContext(ctx, &s, `SELECT id, owner_id, name FROM shops WHERE owner_id = ?`, sellerID), domain.ErrShopNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ShopRepo) Upsert(ctx context.Context, s domain.Shop) error {
	return r.write(ctx, "shop.upsert", func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO shops(id, owner_id, name) VALUES(?,?,?)
			ON CONFLICT(owner_id) DO UPDATE SET name = excluded.name
		`, s.ID, s.OwnerID, s.Name)
		return err
	})
}
