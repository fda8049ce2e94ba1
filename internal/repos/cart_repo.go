package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"makiti/internal/domain"
)

type CartRepo struct{ base }

func NewCartRepo(db *sqlx.DB, opts ...Options) *CartRepo { return &CartRepo{newBase(db, opts)} }

// Get returns the user's cart in insertion order. A user without lines gets an empty cart.
func (r *CartRepo) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	cart := &domain.Cart{UserID: userID, Lines: []domain.CartLine{}}
	err := r.read(ctx, "cart.get", func(ctx context.Context) error {
		lines := []domain.CartLine{}
		if err := r.db.SelectContext(ctx, &lines, `
			SELECT product_id, quantity FROM cart_items
			WHERE user_id = ? ORDER BY position
		`, userID); err != nil {
			return err
		}
		cart.Lines = lines
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// AddQuantity appends a line or grows an existing one, but only while the
// resulting quantity stays within max. It reports false when the guard fails.
func (r *CartRepo) AddQuantity(ctx context.Context, userID, productID string, qty, max int) (bool, error) {
	var ok bool
	err := r.write(ctx, "cart.add", func(ctx context.Context) error {
		ts := now()
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO cart_items(user_id, product_id, quantity, position, created_at, updated_at)
			SELECT ?, ?, ?, COALESCE((SELECT MAX(position) FROM cart_items WHERE user_id = ?), 0) + 1, ?, ?
			WHERE ? <= ?
			ON CONFLICT(user_id, product_id) DO UPDATE
			SET quantity = cart_items.quantity + excluded.quantity, updated_at = excluded.updated_at
			WHERE cart_items.quantity + excluded.quantity <= ?
		`, userID, productID, qty, userID, ts, ts, qty, max, max)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		ok = n > 0
		return nil
	})
	return ok, err
}

// SetQuantity overwrites the quantity of an existing line; a missing line is left alone.
func (r *CartRepo) SetQuantity(ctx context.Context, userID, productID string, qty int) error {
	return r.write(ctx, "cart.set", func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
			UPDATE cart_items SET quantity = ?, updated_at = ?
			WHERE user_id = ? AND product_id = ?
		`, qty, now(), userID, productID)
		return err
	})
}

func (r *CartRepo) Remove(ctx context.Context, userID, productID string) error {
	return r.write(ctx, "cart.remove", func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ? AND product_id = ?`, userID, productID)
		return err
	})
}

func (r *CartRepo) Clear(ctx context.Context, userID string) error {
	return r.write(ctx, "cart.clear", func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID)
		return err
	})
}
