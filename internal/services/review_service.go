package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"makiti/internal/domain"
	applog "makiti/internal/log"
)

// RatingAggregator keeps a seller's rating fields in line with their reviews.
type RatingAggregator struct {
	Reviews ReviewStore
	Users   IdentityStore
}

// Recompute averages every review of sellerID (one decimal) and writes the
// result onto the seller. No reviews gives an average of 0.
func (a *RatingAggregator) Recompute(ctx context.Context, sellerID string) (domain.RatingSummary, error) {
	sum, err := a.Reviews.AggregateBySeller(ctx, sellerID)
	if err != nil {
		return domain.RatingSummary{}, err
	}
	avg := 0.0
	if sum.Count > 0 {
		avg = domain.RoundRating(sum.Average)
	}
	out := domain.RatingSummary{Average: avg, Count: sum.Count}
	if err := a.Users.UpdateUser(ctx, sellerID, domain.UserUpdate{AverageRating: &out.Average, TotalReviews: &out.Count}); err != nil {
		return domain.RatingSummary{}, err
	}
	return out, nil
}

type ReviewInput struct {
	OrderID   string `json:"order_id"`
	SellerID  string `json:"seller_id"`
	ProductID string `json:"product_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

const maxCommentLen = 1000

type ReviewService struct {
	Reviews    ReviewStore
	Orders     OrderStore
	Users      IdentityStore
	Shops      ShopStore
	Catalog    CatalogStore
	Aggregator *RatingAggregator
	notify     notifier
	log        *zap.Logger
	ttl        time.Duration
}

func NewReviewService(reviews ReviewStore, orders OrderStore, users IdentityStore, shops ShopStore, catalog CatalogStore, sink NotificationSink, logger *zap.Logger) *ReviewService {
	n := newNotifier(sink, nil, logger)
	return &ReviewService{
		Reviews:    reviews,
		Orders:     orders,
		Users:      users,
		Shops:      shops,
		Catalog:    catalog,
		Aggregator: &RatingAggregator{Reviews: reviews, Users: users},
		notify:     n,
		log:        n.log,
		ttl:        10 * time.Second,
	}
}

// Create stores the caller's review of one seller on a delivered order and
// refreshes that seller's rating.
func (s *ReviewService) Create(ctx context.Context, p domain.Principal, in ReviewInput) (*domain.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, domain.NewError(domain.ErrCodeValidation, "rating must be between 1 and 5")
	}
	in.Comment = strings.TrimSpace(in.Comment)
	if len([]rune(in.Comment)) > maxCommentLen {
		return nil, domain.Errorf(domain.ErrCodeValidation, "comment is limited to %d characters", maxCommentLen)
	}
	o, err := s.Orders.Get(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != p.UserID {
		return nil, domain.NewError(domain.ErrCodeForbidden, "not your order")
	}
	if o.Status != domain.OrderDelivered {
		return nil, domain.NewError(domain.ErrCodeValidation, "only delivered orders can be reviewed")
	}
	if !o.HasSeller(in.SellerID) {
		return nil, domain.NewError(domain.ErrCodeValidation, "seller is not part of this order")
	}
	if in.ProductID != "" && !sellerSold(o, in.SellerID, in.ProductID) {
		return nil, domain.NewError(domain.ErrCodeValidation, "product is not part of this seller's lines")
	}
	if _, err := s.Reviews.FindByOrderSellerUser(ctx, in.OrderID, in.SellerID, p.UserID); err == nil {
		return nil, domain.ErrDuplicateReview
	} else if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return nil, err
	}

	rv := &domain.Review{
		UserID:    p.UserID,
		UserName:  p.Name,
		OrderID:   in.OrderID,
		SellerID:  in.SellerID,
		ProductID: in.ProductID,
		Rating:    in.Rating,
		Comment:   in.Comment,
	}
	if err := s.Reviews.Insert(ctx, rv); err != nil {
		return nil, err
	}

	post, cancel := detached(ctx, s.ttl)
	defer cancel()
	log := applog.WithRequestID(ctx, s.log).With(zap.String("seller_id", in.SellerID), zap.String("review_id", rv.ID))
	if sum, err := s.Aggregator.Recompute(post, in.SellerID); err != nil {
		log.Error("review.rating.recompute_failed", zap.Error(err))
	} else {
		log.Info("review.rating.updated", zap.Float64("average", sum.Average), zap.Int("count", sum.Count))
	}

	msg := fmt.Sprintf("%s gave you %d/5", p.Name, in.Rating)
	if rv.Comment != "" {
		msg += ": " + preview(rv.Comment, 50)
	}
	s.notify.inApp(post, in.SellerID, domain.NotifyNewReview, fmt.Sprintf("New review (%d/5)", in.Rating), msg)
	return rv, nil
}

func sellerSold(o *domain.Order, sellerID, productID string) bool {
	for _, it := range o.Items {
		if it.SellerID == sellerID && it.ProductID == productID {
			return true
		}
	}
	return false
}

// Reply stores the reviewed seller's answer and tells the reviewer.
func (s *ReviewService) Reply(ctx context.Context, p domain.Principal, reviewID, reply string) (*domain.Review, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, domain.NewError(domain.ErrCodeValidation, "reply is required")
	}
	if len([]rune(reply)) > maxCommentLen {
		return nil, domain.Errorf(domain.ErrCodeValidation, "reply is limited to %d characters", maxCommentLen)
	}
	rv, err := s.Reviews.Get(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if rv.SellerID != p.UserID {
		return nil, domain.NewError(domain.ErrCodeForbidden, "only the reviewed seller can reply")
	}
	if err := s.Reviews.SetReply(ctx, reviewID, p.UserID, reply); err != nil {
		return nil, err
	}
	rv.SellerReply = reply
	s.notify.inApp(ctx, rv.UserID, domain.NotifyReviewReply, "The seller replied to your review",
		preview(reply, 50), zap.String("review_id", rv.ID))
	return rv, nil
}

type SellerInfo struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	ShopName      string  `json:"shop_name,omitempty"`
	AverageRating float64 `json:"average_rating"`
	TotalReviews  int     `json:"total_reviews"`
}

type ReviewList struct {
	Reviews []domain.Review    `json:"reviews"`
	Stats   domain.ReviewStats `json:"stats"`
	Seller  *SellerInfo        `json:"seller,omitempty"`
}

func (s *ReviewService) sellerInfo(ctx context.Context, sellerID string) (*SellerInfo, error) {
	u, err := s.Users.GetUser(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	info := &SellerInfo{ID: u.ID, Name: u.DisplayName(u.Email), AverageRating: u.AverageRating, TotalReviews: u.TotalReviews}
	if shop, err := s.Shops.GetByOwner(ctx, sellerID); err == nil {
		info.ShopName = shop.Name
	}
	return info, nil
}

func (s *ReviewService) SellerReviews(ctx context.Context, sellerID string) (ReviewList, error) {
	info, err := s.sellerInfo(ctx, sellerID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return ReviewList{}, domain.ErrSellerNotFound
		}
		return ReviewList{}, err
	}
	list, err := s.Reviews.ListBySeller(ctx, sellerID)
	if err != nil {
		return ReviewList{}, err
	}
	return ReviewList{Reviews: list, Stats: domain.StatsOf(list), Seller: info}, nil
}

func (s *ReviewService) ProductReviews(ctx context.Context, productID string) (ReviewList, error) {
	prod, err := s.Catalog.GetProduct(ctx, productID)
	if err != nil {
		return ReviewList{}, err
	}
	list, err := s.Reviews.ListByProduct(ctx, productID)
	if err != nil {
		return ReviewList{}, err
	}
	out := ReviewList{Reviews: list, Stats: domain.StatsOf(list)}
	if info, err := s.sellerInfo(ctx, prod.SellerID); err == nil {
		out.Seller = info
	}
	return out, nil
}

// OrderReviews returns the caller's reviews on one order.
func (s *ReviewService) OrderReviews(ctx context.Context, p domain.Principal, orderID string) ([]domain.Review, error) {
	return s.Reviews.ListByOrderUser(ctx, orderID, p.UserID)
}

type PendingReview struct {
	SellerID   string `json:"seller_id"`
	SellerName string `json:"seller_name"`
	ShopName   string `json:"shop_name,omitempty"`
}

type CanReviewView struct {
	CanReview bool            `json:"can_review"`
	Reason    string          `json:"reason,omitempty"`
	Pending   []PendingReview `json:"pending_reviews"`
}

// CanReview lists the sellers of a delivered order the caller has not reviewed yet.
func (s *ReviewService) CanReview(ctx context.Context, p domain.Principal, orderID string) (CanReviewView, error) {
	view := CanReviewView{Pending: []PendingReview{}}
	o, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return view, err
	}
	if o.UserID != p.UserID {
		return view, domain.NewError(domain.ErrCodeForbidden, "not your order")
	}
	if o.Status != domain.OrderDelivered {
		view.Reason = "order not delivered yet"
		return view, nil
	}
	for _, sellerID := range o.SellerIDs() {
		_, err := s.Reviews.FindByOrderSellerUser(ctx, orderID, sellerID, p.UserID)
		if err == nil {
			continue
		}
		if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return view, err
		}
		pr := PendingReview{SellerID: sellerID}
		if info, err := s.sellerInfo(ctx, sellerID); err == nil {
			pr.SellerName, pr.ShopName = info.Name, info.ShopName
		}
		view.Pending = append(view.Pending, pr)
	}
	view.CanReview = len(view.Pending) > 0
	if !view.CanReview {
		view.Reason = "all sellers already reviewed"
	}
	return view, nil
}
