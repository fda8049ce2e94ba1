package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"makiti/internal/domain"
)

type SellerRequestRepo struct{ base }

func NewSellerRequestRepo(db *sqlx.DB, opts ...Options) *SellerRequestRepo {
	return &SellerRequestRepo{newBase(db, opts)}
}

const requestCols = `sr.seq, sr.id, sr.user_id, sr.business_name, sr.business_description, sr.business_address,
	sr.business_phone, sr.document_url, sr.document_type, sr.status, sr.submitted_at,
	COALESCE(sr.reviewed_at,'') AS reviewed_at, COALESCE(sr.reviewed_by,'') AS reviewed_by,
	COALESCE(sr.rejection_reason,'') AS rejection_reason`

const latestStatus = `COALESCE((SELECT status FROM seller_requests WHERE user_id = ? ORDER BY seq DESC LIMIT 1), 'none')`

// Latest returns the user's most recent attempt.
func (r *SellerRequestRepo) Latest(ctx context.Context, userID string) (*domain.SellerRequest, error) {
	var req domain.SellerRequest
	err := r.read(ctx, "seller_request.latest", func(ctx context.Context) error {
		return notFound(r.db.GetContext(ctx, &req, `
			SELECT `+requestCols+` FROM seller_requests sr
			WHERE sr.user_id = ? ORDER BY sr.seq DESC LIMIT 1
		`, userID), domain.NewError(domain.ErrCodeNotFound, "no seller request"))
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// InsertIfOpen appends req as a pending attempt only when the user's current
// status is none or rejected. The check and the insert are one statement.
func (r *SellerRequestRepo) InsertIfOpen(ctx context.Context, req domain.SellerRequest) (bool, error) {
	var ok bool
	err := r.write(ctx, "seller_request.insert", func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO seller_requests(id, user_id, business_name, business_description, business_address,
			  business_phone, document_url, document_type, status, submitted_at)
			SELECT ?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?
			WHERE `+latestStatus+` IN ('none','rejected')
		`, req.ID, req.UserID, req.BusinessName, req.BusinessDescription, req.BusinessAddress,
			req.BusinessPhone, req.DocumentURL, req.DocumentType, req.SubmittedAt, req.UserID)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		ok = n == 1
		return nil
	})
	return ok, err
}

// Resolve moves a pending attempt to approved or rejected. It reports false
// when the attempt is no longer pending.
func (r *SellerRequestRepo) Resolve(ctx context.Context, id string, status domain.ApprovalStatus, reviewer, reason, at string) (bool, error) {
	var ok bool
	err := r.write(ctx, "seller_request.resolve", func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `
			UPDATE seller_requests
			SET status = ?, reviewed_by = ?, reviewed_at = ?, rejection_reason = NULLIF(?, '')
			WHERE id = ? AND status = 'pending'
		`, string(status), reviewer, at, reason, id)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		ok = n == 1
		return nil
	})
	return ok, err
}

// History returns every attempt of the user, oldest first.
func (r *SellerRequestRepo) History(ctx context.Context, userID string) ([]domain.SellerRequest, error) {
	out := []domain.SellerRequest{}
	err := r.read(ctx, "seller_request.history", func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &out, `
			SELECT `+requestCols+` FROM seller_requests sr WHERE sr.user_id = ? ORDER BY sr.seq
		`, userID)
	})
	return out, err
}

// ListPending returns open attempts with the applicant's display data, oldest first.
func (r *SellerRequestRepo) ListPending(ctx context.Context) ([]domain.SellerApplication, error) {
	out := []domain.SellerApplication{}
	err := r.read(ctx, "seller_request.list_pending", func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &out, `
			SELECT `+requestCols+`, u.email, u.full_name
			FROM seller_requests sr JOIN users u ON u.id = sr.user_id
			WHERE sr.status = 'pending' ORDER BY sr.seq
		`)
	})
	return out, err
}
