package repos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"makiti/internal/domain"
)

type UserRepo struct{ base }

func NewUserRepo(db *sqlx.DB, opts ...Options) *UserRepo { return &UserRepo{newBase(db, opts)} }

const userCols = `
	u.id, u.email, u.full_name, u.password_hash, u.role, u.average_rating, u.total_reviews,
	COALESCE(u.created_at,'') AS created_at,
	COALESCE((SELECT sr.status FROM seller_requests sr WHERE sr.user_id = u.id ORDER BY sr.seq DESC LIMIT 1), 'none') AS approval_status`

func (r *UserRepo) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.read(ctx, "user.get", func(ctx context.Context) error {
		return notFound(r.db.GetContext(ctx, &u, `SELECT `+userCols+` FROM users u WHERE u.id = ?`, id), domain.ErrUserNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser writes only the non-nil fields of upd.
func (r *UserRepo) UpdateUser(ctx context.Context, id string, upd domain.UserUpdate) error {
	var sets []string
	var args []any
	if upd.AverageRating != nil {
		sets = append(sets, "average_rating = ?")
		args = append(args, *upd.AverageRating)
	}
	if upd.TotalReviews != nil {
		sets = append(sets, "total_reviews = ?")
		args = append(args, *upd.TotalReviews)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	return r.write(ctx, "user.update", func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrUserNotFound
		}
		return nil
	})
}

// Insert is used by seeds and tests; registration lives in the identity service.
func (r *UserRepo) Insert(ctx context.Context, u domain.User) error {
	return r.write(ctx, "user.insert", func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO users(id,email,full_name,password_hash,role,created_at)
			VALUES(?,?,?,?,?,?)
		`, u.ID, u.Email, u.FullName, u.Hash, string(u.Role), now())
		return err
	})
}
