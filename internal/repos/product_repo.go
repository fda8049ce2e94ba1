package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"makiti/internal/domain"
)

type ProductRepo struct{ base }

func NewProductRepo(db *sqlx.DB, opts ...Options) *ProductRepo {
	return &ProductRepo{newBase(db, opts)}
}

const productCols = `id, seller_id, name, COALESCE(description,'') AS description, price, stock_quantity, status,
	COALESCE(created_at,'') AS created_at, COALESCE(updated_at,'') AS updated_at`

func (r *ProductRepo) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := r.read(ctx, "product.get", func(ctx context.Context) error {
		return notFound(r.db.GetContext(ctx, &p, `SELECT `+productCols+` FROM products WHERE id = ?`, id), domain.ErrProductNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProducts returns the products that still exist among ids, keyed by id.
func (r *ProductRepo) GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	out := map[string]domain.Product{}
	if len(ids) == 0 {
		return out, nil
	}
	err := r.read(ctx, "product.get_many", func(ctx context.Context) error {
		q, args, err := sqlx.In(`SELECT `+productCols+` FROM products WHERE id IN (?)`, ids)
		if err != nil {
			return err
		}
		var rows []domain.Product
		if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
			return err
		}
		for _, p := range rows {
			out[p.ID] = p
		}
		return nil
	})
	return out, err
}

// TryDecrementStock subtracts qty only if at least qty units remain. It
// reports false when the guard fails; the product flips to out_of_stock at zero.
func (r *ProductRepo) TryDecrementStock(ctx context.Context, id string, qty int) (bool, error) {
	var ok bool
	err := r.write(ctx, "product.decrement_stock", func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `
			UPDATE products
			SET stock_quantity = stock_quantity - ?,
			    status = CASE WHEN stock_quantity - ? = 0 THEN 'out_of_stock' ELSE status END,
			    updated_at = ?
			WHERE id = ? AND stock_quantity >= ?
		`, qty, qty, now(), id, qty)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		ok = n == 1
		return nil
	})
	return ok, err
}

// CompensateStock gives qty units back to a product.
func (r *ProductRepo) CompensateStock(ctx context.Context, id string, qty int) error {
	return r.write(ctx, "product.compensate_stock", func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `
			UPDATE products
			SET stock_quantity = stock_quantity + ?,
			    status = CASE WHEN status = 'out_of_stock' THEN 'published' ELSE status END,
			    updated_at = ?
			WHERE id = ?
		`, qty, now(), id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrProductNotFound
		}
		return nil
	})
}

// Insert is used by seeds and tests; product editing lives in the catalog service.
func (r *ProductRepo) Insert(ctx context.Context, p domain.Product) error {
	if p.Status == "" {
		p.Status = domain.ProductPublished
	}
	return r.write(ctx, "product.insert", func(ctx context.Context) error {
		ts := now()
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO products(id, seller_id, name, description, price, stock_quantity, status, created_at, updated_at)
			VALUES(?,?,?,?,?,?,?,?,?)
		`, p.ID, p.SellerID, p.Name, p.Description, p.Price, p.StockQuantity, string(p.Status), ts, ts)
		return err
	})
}

// SetPrice is used by tests to show that order snapshots ignore later edits.
func (r *ProductRepo) SetPrice(ctx context.Context, id string, price float64) error {
	return r.write(ctx, "product.set_price", func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `UPDATE products SET price = ?, updated_at = ? WHERE id = ?`, price, now(), id)
		return err
	})
}

// Delete is used by tests to simulate a product removed by its seller.
func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	return r.write(ctx, "product.delete", func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
		return err
	})
}
