package services

import (
	"context"

	"makiti/internal/domain"
)

// Store interfaces consumed by the services. The sqlite repos in
// internal/repos implement all of them.

type IdentityStore interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, upd domain.UserUpdate) error
}

type CatalogStore interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error)
	TryDecrementStock(ctx context.Context, id string, qty int) (bool, error)
	CompensateStock(ctx context.Context, id string, qty int) error
}

type CartStore interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	AddQuantity(ctx context.Context, userID, productID string, qty, max int) (bool, error)
	SetQuantity(ctx context.Context, userID, productID string, qty int) error
	Remove(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}

type OrderStore interface {
	Insert(ctx context.Context, o *domain.Order) (string, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
	AdvanceStatus(ctx context.Context, id string, status domain.OrderStatus) (bool, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListBySeller(ctx context.Context, sellerID string) ([]domain.Order, error)
}

type ReviewStore interface {
	Insert(ctx context.Context, rv *domain.Review) error
	FindByOrderSellerUser(ctx context.Context, orderID, sellerID, userID string) (*domain.Review, error)
	AggregateBySeller(ctx context.Context, sellerID string) (domain.RatingSummary, error)
	Get(ctx context.Context, id string) (*domain.Review, error)
	SetReply(ctx context.Context, id, sellerID, reply string) error
	ListBySeller(ctx context.Context, sellerID string) ([]domain.Review, error)
	ListByProduct(ctx context.Context, productID string) ([]domain.Review, error)
	ListByOrderUser(ctx context.Context, orderID, userID string) ([]domain.Review, error)
}

type SellerRequestStore interface {
	Latest(ctx context.Context, userID string) (*domain.SellerRequest, error)
	InsertIfOpen(ctx context.Context, req domain.SellerRequest) (bool, error)
	Resolve(ctx context.Context, id string, status domain.ApprovalStatus, reviewer, reason, at string) (bool, error)
	History(ctx context.Context, userID string) ([]domain.SellerRequest, error)
	ListPending(ctx context.Context) ([]domain.SellerApplication, error)
}

type NotificationStore interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, id, userID string) error
}

type ConversationStore interface {
	Get(ctx context.Context, id string) (*domain.Conversation, error)
	FindByPair(ctx context.Context, a, b string) (*domain.Conversation, error)
	Create(ctx context.Context, c domain.Conversation) (*domain.Conversation, error)
	ListByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error)
	AppendMessage(ctx context.Context, m *domain.Message, preview string, recipientIsBuyer bool) error
	ResetUnread(ctx context.Context, id, readerID string) error
	Messages(ctx context.Context, id string) ([]domain.Message, error)
	UnreadTotal(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, id string) error
}

type ShopStore interface {
	GetByOwner(ctx context.Context, sellerID string) (*domain.Shop, error)
}

// NotificationSink accepts side effects for later delivery. Implementations
// should return quickly; delivery happens elsewhere.
type NotificationSink interface {
	EnqueueEmail(ctx context.Context, template, recipient string, data map[string]any) error
	CreateInApp(ctx context.Context, userID string, typ domain.NotificationType, title, message string) error
}

// OrderEvents publishes order lifecycle events to other systems.
type OrderEvents interface {
	PublishOrderEvent(ctx context.Context, ev domain.OrderEvent) error
}
