package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"makiti/internal/domain"
	applog "makiti/internal/log"
	"makiti/internal/metrics"
)

type CheckoutRequest struct {
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
	DeliveryMethod  string                 `json:"delivery_method"`
}

type CheckoutResult struct {
	OrderID string  `json:"order_id"`
	Total   float64 `json:"total"`
}

type CheckoutDeps struct {
	Carts             CartStore
	Catalog           CatalogStore
	Orders            OrderStore
	Users             IdentityStore
	Sink              NotificationSink
	Events            OrderEvents
	Logger            *zap.Logger
	LowStockThreshold int
	// SideEffectTimeout bounds compensation and post-commit notifications.
	SideEffectTimeout time.Duration
}

// CheckoutService turns a cart into an order while reserving stock.
type CheckoutService struct {
	Carts   CartStore
	Catalog CatalogStore
	Orders  OrderStore
	Users   IdentityStore

	lowStock  int
	sideTTL   time.Duration
	notify    notifier
	log       *zap.Logger
	timestamp func() time.Time
}

func NewCheckoutService(d CheckoutDeps) *CheckoutService {
	s := &CheckoutService{
		Carts:     d.Carts,
		Catalog:   d.Catalog,
		Orders:    d.Orders,
		Users:     d.Users,
		lowStock:  d.LowStockThreshold,
		sideTTL:   d.SideEffectTimeout,
		notify:    newNotifier(d.Sink, d.Events, d.Logger),
		timestamp: time.Now,
	}
	if s.lowStock <= 0 {
		s.lowStock = 5
	}
	if s.sideTTL <= 0 {
		s.sideTTL = 10 * time.Second
	}
	s.log = s.notify.log
	return s
}

func (r *CheckoutRequest) normalize() error {
	a := &r.ShippingAddress
	a.FullName = strings.TrimSpace(a.FullName)
	a.Address = strings.TrimSpace(a.Address)
	a.City = strings.TrimSpace(a.City)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Phone = strings.TrimSpace(a.Phone)
	r.PaymentMethod = strings.TrimSpace(r.PaymentMethod)
	if r.PaymentMethod == "" {
		r.PaymentMethod = "card"
	}
	switch r.DeliveryMethod = strings.TrimSpace(r.DeliveryMethod); r.DeliveryMethod {
	case "":
		r.DeliveryMethod = domain.DeliveryHome
	case domain.DeliveryHome, domain.DeliveryPickup:
	default:
		return domain.Errorf(domain.ErrCodeValidation, "unknown delivery method %q", r.DeliveryMethod)
	}
	if a.FullName == "" || a.Phone == "" {
		return domain.NewError(domain.ErrCodeValidation, "shipping full name and phone are required")
	}
	if r.DeliveryMethod == domain.DeliveryHome && (a.Address == "" || a.City == "") {
		return domain.NewError(domain.ErrCodeValidation, "address and city are required for delivery")
	}
	return nil
}

// Checkout runs the saga for the caller's cart. Once the stock is reserved the
// order is durable; cart clearing and notifications can fail without undoing it.
func (s *CheckoutService) Checkout(ctx context.Context, p domain.Principal, req CheckoutRequest) (*CheckoutResult, error) {
	start := time.Now()
	res, err := s.checkout(ctx, p, req)
	metrics.RecordOrderOperation("checkout", err)
	metrics.ObserveCheckout(time.Since(start))
	return res, err
}

func (s *CheckoutService) checkout(ctx context.Context, p domain.Principal, req CheckoutRequest) (*CheckoutResult, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	log := applog.WithRequestID(ctx, s.log).With(zap.String("user_id", p.UserID))

	cart, err := s.Carts.Get(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if cart.Empty() {
		return nil, domain.ErrCartEmpty
	}

	// Validation pass: nothing is written until every line fits.
	items := make([]domain.OrderItem, 0, len(cart.Lines))
	subtotal := 0.0
	for _, line := range cart.Lines {
		prod, err := s.Catalog.GetProduct(ctx, line.ProductID)
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, domain.Errorf(domain.ErrCodeValidation, "product %s is no longer available", line.ProductID)
		}
		if err != nil {
			return nil, err
		}
		if prod.StockQuantity < line.Quantity {
			return nil, insufficient(prod)
		}
		lineTotal := domain.Money(prod.Price * float64(line.Quantity))
		items = append(items, domain.OrderItem{
			ProductID:   prod.ID,
			ProductName: prod.Name,
			SellerID:    prod.SellerID,
			Quantity:    line.Quantity,
			UnitPrice:   prod.Price,
			LineTotal:   lineTotal,
		})
		subtotal += lineTotal
	}

	order := &domain.Order{
		UserID:          p.UserID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		DeliveryMethod:  req.DeliveryMethod,
		PaymentStatus:   domain.PaymentPending,
		Subtotal:        domain.Money(subtotal),
		ShippingFee:     0,
		Total:           domain.Money(subtotal),
		Status:          domain.OrderPending,
		CreatedAt:       domain.Stamp(s.timestamp()),
	}
	if _, err := s.Orders.Insert(ctx, order); err != nil {
		return nil, err
	}
	log = log.With(zap.String("order_id", order.ID))

	for i, it := range order.Items {
		ok, err := s.Catalog.TryDecrementStock(ctx, it.ProductID, it.Quantity)
		if err == nil && ok {
			continue
		}
		s.compensate(ctx, log, order, order.Items[:i])
		if err != nil {
			log.Error("checkout.decrement.failed", zap.String("product_id", it.ProductID), zap.Error(err))
			return nil, err
		}
		log.Info("checkout.stock.lost", zap.String("product_id", it.ProductID))
		return nil, domain.Errorf(domain.ErrCodeInsufficientStock, "insufficient stock for %s", it.ProductName)
	}

	post, cancel := detached(ctx, s.sideTTL)
	defer cancel()

	if err := s.Carts.Clear(post, p.UserID); err != nil {
		log.Warn("checkout.cart_clear.failed", zap.Error(err))
	}
	s.notify.publish(post, domain.EventOrderCreated, order)
	s.notifySellers(post, log, order)
	s.checkLowStock(post, log, order)

	log.Info("checkout.ok", zap.Float64("total", order.Total), zap.Int("lines", len(order.Items)))
	return &CheckoutResult{OrderID: order.ID, Total: order.Total}, nil
}

// compensate cancels the order and gives back the stock already taken. It runs
// detached from the request so a cancelled caller cannot interrupt it.
func (s *CheckoutService) compensate(ctx context.Context, log *zap.Logger, order *domain.Order, taken []domain.OrderItem) {
	cctx, cancel := detached(ctx, s.sideTTL)
	defer cancel()

	if err := s.Orders.UpdateStatus(cctx, order.ID, domain.OrderCancelled); err != nil {
		log.Error("checkout.compensate.cancel_failed", zap.Error(err))
	}
	order.Status = domain.OrderCancelled
	for _, it := range taken {
		err := s.Catalog.CompensateStock(cctx, it.ProductID, it.Quantity)
		metrics.RecordCompensation(err == nil)
		if err != nil {
			log.Error("checkout.compensate.stock_failed",
				zap.String("product_id", it.ProductID), zap.Int("qty", it.Quantity), zap.Error(err))
		}
	}
	s.notify.publish(cctx, domain.EventOrderCancelled, order)
}

func (s *CheckoutService) notifySellers(ctx context.Context, log *zap.Logger, order *domain.Order) {
	for _, sellerID := range order.SellerIDs() {
		lines, subtotal := order.SellerLines(sellerID)
		fields := []zap.Field{zap.String("order_id", order.ID), zap.String("seller_id", sellerID)}

		s.notify.inApp(ctx, sellerID, domain.NotifyNewOrder, "New order #"+order.ShortID(),
			fmt.Sprintf("%d item(s) for a total of %.2f", len(lines), subtotal), fields...)

		seller, err := s.Users.GetUser(ctx, sellerID)
		if err != nil {
			log.Warn("checkout.seller_lookup.failed", append(fields, zap.Error(err))...)
			continue
		}
		s.notify.email(ctx, domain.EmailNewOrder, seller.Email, map[string]any{
			"SellerName":   seller.DisplayName("Seller"),
			"OrderID":      order.ShortID(),
			"CustomerName": order.ShippingAddress.FullName,
			"Items":        lines,
			"Total":        subtotal,
			"Delivery":     order.DeliveryMethod,
			"Shipping":     order.ShippingAddress,
		}, fields...)
	}
}

// checkLowStock re-reads every product of the order and warns its seller when
// the remaining stock is at or under the threshold.
func (s *CheckoutService) checkLowStock(ctx context.Context, log *zap.Logger, order *domain.Order) {
	seen := map[string]bool{}
	for _, it := range order.Items {
		if seen[it.ProductID] {
			continue
		}
		seen[it.ProductID] = true

		prod, err := s.Catalog.GetProduct(ctx, it.ProductID)
		if err != nil {
			log.Warn("checkout.low_stock.read_failed", zap.String("product_id", it.ProductID), zap.Error(err))
			continue
		}
		if prod.StockQuantity > s.lowStock {
			continue
		}
		fields := []zap.Field{zap.String("product_id", prod.ID), zap.String("seller_id", prod.SellerID)}
		s.notify.inApp(ctx, prod.SellerID, domain.NotifyLowStock, "Low stock: "+prod.Name,
			fmt.Sprintf("Only %d unit(s) left for %s.", prod.StockQuantity, prod.Name), fields...)

		seller, err := s.Users.GetUser(ctx, prod.SellerID)
		if err != nil {
			log.Warn("checkout.seller_lookup.failed", append(fields, zap.Error(err))...)
			continue
		}
		s.notify.email(ctx, domain.EmailLowStock, seller.Email, map[string]any{
			"SellerName":  seller.DisplayName("Seller"),
			"ProductName": prod.Name,
			"Stock":       prod.StockQuantity,
		}, fields...)
	}
}
