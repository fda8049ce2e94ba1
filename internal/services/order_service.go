package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"makiti/internal/domain"
	"makiti/internal/metrics"
)

type OrderService struct {
	Orders OrderStore
	Users  IdentityStore
	notify notifier
	ttl    time.Duration
}

func NewOrderService(orders OrderStore, users IdentityStore, sink NotificationSink, events OrderEvents, logger *zap.Logger) *OrderService {
	return &OrderService{Orders: orders, Users: users, notify: newNotifier(sink, events, logger), ttl: 10 * time.Second}
}

// Get returns an order to its buyer, an admin, or a seller with lines in it.
func (s *OrderService) Get(ctx context.Context, p domain.Principal, id string) (*domain.Order, error) {
	o, err := s.Orders.Get(ctx, id)
	metrics.RecordOrderOperation("details", err)
	if err != nil {
		return nil, err
	}
	if o.UserID != p.UserID && !p.IsAdmin() && !(p.IsSeller() && o.HasSeller(p.UserID)) {
		return nil, domain.NewError(domain.ErrCodeForbidden, "not your order")
	}
	return o, nil
}

// History lists the caller's own orders, newest first.
func (s *OrderService) History(ctx context.Context, p domain.Principal) ([]domain.Order, error) {
	out, err := s.Orders.ListByUser(ctx, p.UserID)
	metrics.RecordOrderOperation("list", err)
	return out, err
}

type SellerOrderView struct {
	domain.Order
	SellerItems []domain.OrderItem `json:"seller_items"`
	SellerTotal float64            `json:"seller_total"`
}

// SellerOrders lists orders holding the calling seller's lines, with only
// those lines and their sub-total broken out.
func (s *OrderService) SellerOrders(ctx context.Context, p domain.Principal) ([]SellerOrderView, error) {
	if !p.IsSeller() {
		return nil, domain.NewError(domain.ErrCodeForbidden, "seller access required")
	}
	orders, err := s.Orders.ListBySeller(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]SellerOrderView, 0, len(orders))
	for _, o := range orders {
		lines, total := o.SellerLines(p.UserID)
		out = append(out, SellerOrderView{Order: o, SellerItems: lines, SellerTotal: total})
	}
	return out, nil
}

// UpdateStatus moves an order to status. Sellers may only touch orders that
// contain their lines; delivered and cancelled orders are final.
func (s *OrderService) UpdateStatus(ctx context.Context, p domain.Principal, id string, status domain.OrderStatus) (*domain.Order, error) {
	o, err := s.updateStatus(ctx, p, id, status)
	metrics.RecordOrderOperation("update_status", err)
	return o, err
}

func (s *OrderService) updateStatus(ctx context.Context, p domain.Principal, id string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, domain.Errorf(domain.ErrCodeValidation, "invalid status %q", status)
	}
	if !p.IsSeller() && !p.IsAdmin() {
		return nil, domain.NewError(domain.ErrCodeForbidden, "only sellers and admins can update orders")
	}
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsSeller() && !o.HasSeller(p.UserID) {
		return nil, domain.NewError(domain.ErrCodeForbidden, "order has none of your products")
	}
	if o.Status.Terminal() {
		return nil, domain.Errorf(domain.ErrCodeConflict, "order is already %s", o.Status)
	}
	ok, err := s.Orders.AdvanceStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewError(domain.ErrCodeConflict, "order reached a final status concurrently")
	}
	o.Status = status

	post, cancel := detached(ctx, s.ttl)
	defer cancel()
	fields := []zap.Field{zap.String("order_id", o.ID), zap.String("status", string(status))}
	s.notify.inApp(post, o.UserID, domain.NotifyOrderStatus, "Order #"+o.ShortID()+" updated",
		fmt.Sprintf("Your order is now %s.", status), fields...)
	if buyer, err := s.Users.GetUser(post, o.UserID); err == nil {
		s.notify.email(post, domain.EmailOrderStatus, buyer.Email, map[string]any{
			"Name":    buyer.DisplayName(o.ShippingAddress.FullName),
			"OrderID": o.ShortID(),
			"Status":  string(status),
		}, fields...)
	}
	s.notify.publish(post, domain.EventOrderStatusUpdated, o)
	return o, nil
}
