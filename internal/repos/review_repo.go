package repos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"makiti/internal/domain"
)

type ReviewRepo struct{ base }

func NewReviewRepo(db *sqlx.DB, opts ...Options) *ReviewRepo { return &ReviewRepo{newBase(db, opts)} }

const reviewCols = `id, user_id, user_name, order_id, seller_id, COALESCE(product_id,'') AS product_id, rating,
	COALESCE(comment,'') AS comment, COALESCE(seller_reply,'') AS seller_reply,
	COALESCE(seller_reply_at,'') AS seller_reply_at, created_at`

// Insert stores rv. A second review for the same (user, order, seller) fails with DUPLICATE_REVIEW.
func (r *ReviewRepo) Insert(ctx context.Context, rv *domain.Review) error {
	if rv.ID == "" {
		rv.ID = uuid.NewString()
	}
	if rv.CreatedAt == "" {
		rv.CreatedAt = now()
	}
	return r.write(ctx, "review.insert", func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO reviews(id, user_id, user_name, order_id, seller_id, product_id, rating, comment, created_at)
			VALUES(?,?,?,?,?,NULLIF(?,''),?,NULLIF(?,''),?)
		`, rv.ID, rv.UserID, rv.UserName, rv.OrderID, rv.SellerID, rv.ProductID, rv.Rating, rv.Comment, rv.CreatedAt)
		if isUniqueViolation(err) {
			return domain.ErrDuplicateReview
		}
		return err
	})
}

func (r *ReviewRepo) FindByOrderSellerUser(ctx context.Context, orderID, sellerID, userID string) (*domain.Review, error) {
	var rv domain.Review
	err := r.read(ctx, "review.find", func(ctx context.Context) error {
		return notFound(r.db.GetContext(ctx, &rv, `
			SELECT `+reviewCols+` FROM reviews WHERE order_id = ? AND seller_id = ? AND user_id = ?
		`, orderID, sellerID, userID), domain.ErrReviewNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// AggregateBySeller averages every rating of sellerID. Zero reviews give {0, 0}.
func (r *ReviewRepo) AggregateBySeller(ctx context.Context, sellerID string) (domain.RatingSummary, error) {
	var s domain.RatingSummary
	err := r.read(ctx, "review.aggregate", func(ctx context.Context) error {
		return r.db.GetContext(ctx, &s, `
			SELECT COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count FROM reviews WHERE seller_id = ?
		`, sellerID)
	})
	return s, err
}

func (r *ReviewRepo) Get(ctx context.Context, id string) (*domain.Review, error) {
	var rv domain.Review
	err := r.read(ctx, "review.get", func(ctx context.Context) error {
		return notFound(r.db.GetContext(ctx, &rv, `SELECT `+reviewCols+` FROM reviews WHERE id = ?`, id), domain.ErrReviewNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// SetReply stores the seller's answer; only the reviewed seller matches.
func (r *ReviewRepo) SetReply(ctx context.Context, id, sellerID, reply string) error {
	return r.write(ctx, "review.reply", func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `
			UPDATE reviews SET seller_reply = ?, seller_reply_at = ? WHERE id = ? AND seller_id = ?
		`, reply, now(), id, sellerID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrReviewNotFound
		}
		return nil
	})
}

func (r *ReviewRepo) ListBySeller(ctx context.Context, sellerID string) ([]domain.Review, error) {
	return r.list(ctx, "review.list_by_seller", `WHERE seller_id = ? ORDER BY created_at DESC`, sellerID)
}

func (r *ReviewRepo) ListByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	return r.list(ctx, "review.list_by_product", `WHERE product_id = ? ORDER BY created_at DESC`, productID)
}

func (r *ReviewRepo) ListByOrderUser(ctx context.Context, orderID, userID string) ([]domain.Review, error) {
	return r.list(ctx, "review.list_by_order", `WHERE order_id = ? AND user_id = ? ORDER BY created_at`, orderID, userID)
}

func (r *ReviewRepo) list(ctx context.Context, op, where string, args ...any) ([]domain.Review, error) {
	out := []domain.Review{}
	err := r.read(ctx, op, func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &out, `SELECT `+reviewCols+` FROM reviews `+where, args...)
	})
	return out, err
}
