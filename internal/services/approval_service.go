package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"makiti/internal/domain"
)

const defaultRejectionReason = "Not specified"

type ApprovalService struct {
	Users    IdentityStore
	Requests SellerRequestStore
	notify   notifier
	now      func() time.Time
}

func NewApprovalService(users IdentityStore, requests SellerRequestStore, sink NotificationSink, logger *zap.Logger) *ApprovalService {
	return &ApprovalService{
		Users:    users,
		Requests: requests,
		notify:   newNotifier(sink, nil, logger),
		now:      time.Now,
	}
}

// Submit opens a new approval attempt for the calling seller.
func (s *ApprovalService) Submit(ctx context.Context, p domain.Principal, info domain.BusinessInfo, doc domain.DocumentRef) (*domain.SellerRequest, error) {
	if p.Role != domain.RoleSeller {
		return nil, domain.NewError(domain.ErrCodeForbidden, "only sellers can request approval")
	}
	req := domain.SellerRequest{
		ID:                  uuid.NewString(),
		UserID:              p.UserID,
		BusinessName:        strings.TrimSpace(info.Name),
		BusinessDescription: strings.TrimSpace(info.Description),
		BusinessAddress:     strings.TrimSpace(info.Address),
		BusinessPhone:       strings.TrimSpace(info.Phone),
		DocumentURL:         strings.TrimSpace(doc.URL),
		DocumentType:        strings.TrimSpace(doc.Type),
		Status:              domain.ApprovalPending,
		SubmittedAt:         domain.Stamp(s.now()),
	}
	if req.BusinessName == "" || req.BusinessDescription == "" || req.BusinessAddress == "" || req.BusinessPhone == "" {
		return nil, domain.NewError(domain.ErrCodeValidation, "business name, description, address and phone are required")
	}
	if req.DocumentURL == "" || req.DocumentType == "" {
		return nil, domain.NewError(domain.ErrCodeValidation, "an authorization document is required")
	}

	ok, err := s.Requests.InsertIfOpen(ctx, req)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.blocked(ctx, p.UserID)
	}
	return &req, nil
}

func (s *ApprovalService) blocked(ctx context.Context, userID string) error {
	latest, err := s.Requests.Latest(ctx, userID)
	if err == nil && latest.Status == domain.ApprovalApproved {
		return domain.NewError(domain.ErrCodeConflict, "seller account already approved")
	}
	return domain.NewError(domain.ErrCodeConflict, "a request is already pending")
}

// Decide approves or rejects the user's pending attempt. Notification
// failures never undo the decision.
func (s *ApprovalService) Decide(ctx context.Context, p domain.Principal, userID string, action domain.ApprovalAction, reason string) (*domain.SellerRequest, error) {
	if !p.IsAdmin() {
		return nil, domain.NewError(domain.ErrCodeForbidden, "admin access required")
	}
	var status domain.ApprovalStatus
	switch action {
	case domain.ActionApprove:
		status = domain.ApprovalApproved
		reason = ""
	case domain.ActionReject:
		status = domain.ApprovalRejected
		reason = strings.TrimSpace(reason)
		if reason == "" {
			reason = defaultRejectionReason
		}
	default:
		return nil, domain.Errorf(domain.ErrCodeValidation, "unknown action %q", action)
	}

	user, err := s.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	latest, err := s.Requests.Latest(ctx, userID)
	if domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return nil, domain.NewError(domain.ErrCodeConflict, "no pending request")
	}
	if err != nil {
		return nil, err
	}
	if latest.Status != domain.ApprovalPending {
		return nil, domain.Errorf(domain.ErrCodeConflict, "request is %s, not pending", latest.Status)
	}

	at := domain.Stamp(s.now())
	ok, err := s.Requests.Resolve(ctx, latest.ID, status, p.UserID, reason, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewError(domain.ErrCodeConflict, "request was decided concurrently")
	}
	latest.Status, latest.ReviewedBy, latest.ReviewedAt, latest.RejectionReason = status, p.UserID, at, reason

	fields := []zap.Field{zap.String("user_id", userID), zap.String("request_id", latest.ID)}
	data := map[string]any{
		"Name":         user.DisplayName(user.Email),
		"BusinessName": latest.BusinessName,
		"Reason":       reason,
	}
	if status == domain.ApprovalApproved {
		s.notify.email(ctx, domain.EmailSellerApproved, user.Email, data, fields...)
		s.notify.inApp(ctx, userID, domain.NotifySellerApproved, "Seller account approved",
			"Your seller account has been approved. You can now publish products.", fields...)
	} else {
		s.notify.email(ctx, domain.EmailSellerRejected, user.Email, data, fields...)
		s.notify.inApp(ctx, userID, domain.NotifySellerRejected, "Seller request rejected",
			"Your seller request was rejected. Reason: "+reason, fields...)
	}
	return latest, nil
}

type ApprovalStatusView struct {
	Status  domain.ApprovalStatus  `json:"status"`
	Request *domain.SellerRequest  `json:"request,omitempty"`
	History []domain.SellerRequest `json:"history"`
}

// Status derives the caller's approval state from their latest attempt.
func (s *ApprovalService) Status(ctx context.Context, p domain.Principal) (ApprovalStatusView, error) {
	hist, err := s.Requests.History(ctx, p.UserID)
	if err != nil {
		return ApprovalStatusView{}, err
	}
	view := ApprovalStatusView{Status: domain.ApprovalNone, History: hist}
	if len(hist) > 0 {
		latest := hist[len(hist)-1]
		view.Status = latest.Status
		view.Request = &latest
	}
	return view, nil
}

func (s *ApprovalService) ListPending(ctx context.Context, p domain.Principal) ([]domain.SellerApplication, error) {
	if !p.IsAdmin() {
		return nil, domain.NewError(domain.ErrCodeForbidden, "admin access required")
	}
	return s.Requests.ListPending(ctx)
}
