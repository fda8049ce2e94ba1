package repos

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"makiti/internal/domain"
)

type OrderRepo struct{ base }

func NewOrderRepo(db *sqlx.DB, opts ...Options) *OrderRepo { return &OrderRepo{newBase(db, opts)} }

type orderRow struct {
	ID             string  `db:"id"`
	UserID         string  `db:"user_id"`
	ShippingJSON   string  `db:"shipping_json"`
	PaymentMethod  string  `db:"payment_method"`
	DeliveryMethod string  `db:"delivery_method"`
	PaymentStatus  string  `db:"payment_status"`
	Subtotal       float64 `db:"subtotal"`
	ShippingFee    float64 `db:"shipping_fee"`
	Total          float64 `db:"total"`
	Status         string  `db:"status"`
	CreatedAt      string  `db:"created_at"`
	UpdatedAt      string  `db:"updated_at"`
}

type orderItemRow struct {
	OrderID string `db:"order_id"`
	domain.OrderItem
}

const orderCols = `id, user_id, shipping_json, payment_method, delivery_method, payment_status,
	subtotal, shipping_fee, total, status, created_at, updated_at`

// Insert stores the order and its line snapshot in one transaction and returns the id.
func (r *OrderRepo) Insert(ctx context.Context, o *domain.Order) (string, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	ts := now()
	if o.CreatedAt == "" {
		o.CreatedAt = ts
	}
	o.UpdatedAt = o.CreatedAt
	ship, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return "", domain.WrapError(domain.ErrCodeInternal, "order.insert", err)
	}
	err = r.tx(ctx, "order.insert", func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO orders(`+orderCols+`)
			VALUES(?,?,?,?,?,?,?,?,?,?,?,?)
		`, o.ID, o.UserID, string(ship), o.PaymentMethod, o.DeliveryMethod, o.PaymentStatus,
			o.Subtotal, o.ShippingFee, o.Total, string(o.Status), o.CreatedAt, o.UpdatedAt); err != nil {
			return err
		}
		for i, it := range o.Items {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO order_items(order_id, line_no, product_id, product_name, seller_id, quantity, unit_price, line_total)
				VALUES(?,?,?,?,?,?,?,?)
			`, o.ID, i, it.ProductID, it.ProductName, it.SellerID, it.Quantity, it.UnitPrice, it.LineTotal); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return o.ID, nil
}

// UpdateStatus sets the status unconditionally.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	return r.write(ctx, "order.update_status", func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`, string(status), now(), id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrOrderNotFound
		}
		return nil
	})
}

// AdvanceStatus sets the status unless the order already reached a terminal
// status. It reports false when the guard fails.
func (r *OrderRepo) AdvanceStatus(ctx context.Context, id string, status domain.OrderStatus) (bool, error) {
	var ok bool
	err := r.write(ctx, "order.advance_status", func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `
			UPDATE orders SET status = ?, updated_at = ?
			WHERE id = ? AND status NOT IN ('delivered','cancelled')
		`, string(status), now(), id)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		ok = n == 1
		return nil
	})
	return ok, err
}

func (r *OrderRepo) Get(ctx context.Context, id string) (*domain.Order, error) {
	var out []domain.Order
	err := r.read(ctx, "order.get", func(ctx context.Context) error {
		var err error
		out, err = r.load(ctx, `SELECT `+orderCols+` FROM orders WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, domain.ErrOrderNotFound
	}
	return &out[0], nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	var out []domain.Order
	err := r.read(ctx, "order.list_by_user", func(ctx context.Context) error {
		var err error
		out, err = r.load(ctx, `SELECT `+orderCols+` FROM orders WHERE user_id = ? ORDER BY created_at DESC`, userID)
		return err
	})
	return out, err
}

// ListBySeller returns every order holding at least one line of sellerID, newest first.
func (r *OrderRepo) ListBySeller(ctx context.Context, sellerID string) ([]domain.Order, error) {
	var out []domain.Order
	err := r.read(ctx, "order.list_by_seller", func(ctx context.Context) error {
		var err error
		out, err = r.load(ctx, `
			SELECT `+orderCols+` FROM orders
			WHERE id IN (SELECT DISTINCT order_id FROM order_items WHERE seller_id = ?)
			ORDER BY created_at DESC
		`, sellerID)
		return err
	})
	return out, err
}

func (r *OrderRepo) load(ctx context.Context, q string, args ...any) ([]domain.Order, error) {
	rows := []orderRow{}
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	iq, iargs, err := sqlx.In(`
		SELECT order_id, product_id, product_name, seller_id, quantity, unit_price, line_total
		FROM order_items WHERE order_id IN (?) ORDER BY order_id, line_no
	`, ids)
	if err != nil {
		return nil, err
	}
	var items []orderItemRow
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(iq), iargs...); err != nil {
		return nil, err
	}
	byOrder := map[string][]domain.OrderItem{}
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it.OrderItem)
	}
	for _, row := range rows {
		o := domain.Order{
			ID:             row.ID,
			UserID:         row.UserID,
			Items:          byOrder[row.ID],
			PaymentMethod:  row.PaymentMethod,
			DeliveryMethod: row.DeliveryMethod,
			PaymentStatus:  row.PaymentStatus,
			Subtotal:       row.Subtotal,
			ShippingFee:    row.ShippingFee,
			Total:          row.Total,
			Status:         domain.OrderStatus(row.Status),
			CreatedAt:      row.CreatedAt,
			UpdatedAt:      row.UpdatedAt,
		}
		if err := json.Unmarshal([]byte(row.ShippingJSON), &o.ShippingAddress); err != nil {
			return nil, err
		}
		if o.Items == nil {
			o.Items = []domain.OrderItem{}
		}
		out = append(out, o)
	}
	return out, nil
}
