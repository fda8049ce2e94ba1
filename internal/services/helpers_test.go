package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"makiti/internal/domain"
	"makiti/internal/repos"
	"makiti/internal/services"
)

type sentEmail struct {
	Template, To string
	Data         map[string]any
}

// recordingSink captures side effects; with fail set every call errors.
type recordingSink struct {
	mu     sync.Mutex
	fail   bool
	emails []sentEmail
	inApp  []domain.Notification
}

func (s *recordingSink) EnqueueEmail(_ context.Context, template, to string, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("smtp down")
	}
	s.emails = append(s.emails, sentEmail{Template: template, To: to, Data: data})
	return nil
}

func (s *recordingSink) CreateInApp(_ context.Context, userID string, typ domain.NotificationType, title, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("outbox full")
	}
	s.inApp = append(s.inApp, domain.Notification{UserID: userID, Type: typ, Title: title, Message: message})
	return nil
}

func (s *recordingSink) inAppFor(userID string, typ domain.NotificationType) []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Notification
	for _, n := range s.inApp {
		if n.UserID == userID && n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

func (s *recordingSink) emailsTo(to, template string) []sentEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sentEmail
	for _, e := range s.emails {
		if e.To == to && e.Template == template {
			out = append(out, e)
		}
	}
	return out
}

type recordingEvents struct {
	mu     sync.Mutex
	events []domain.OrderEvent
}

func (r *recordingEvents) PublishOrderEvent(_ context.Context, ev domain.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

// env wires the sqlite stores to the services the way main does.
type env struct {
	db       *sqlx.DB
	users    *repos.UserRepo
	products *repos.ProductRepo
	carts    *repos.CartRepo
	orders   *repos.OrderRepo
	reviews  *repos.ReviewRepo
	requests *repos.SellerRequestRepo
	convs    *repos.ConversationRepo
	shops    *repos.ShopRepo

	sink   *recordingSink
	events *recordingEvents
	logs   *observer.ObservedLogs
	logger *zap.Logger

	cart     *services.CartService
	checkout *services.CheckoutService
	order    *services.OrderService
	approval *services.ApprovalService
	review   *services.ReviewService
	messages *services.MessagingService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := repos.OpenDB(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	core, logs := observer.New(zapcore.DebugLevel)
	e := &env{
		db:       db,
		users:    repos.NewUserRepo(db),
		products: repos.NewProductRepo(db),
		carts:    repos.NewCartRepo(db),
		orders:   repos.NewOrderRepo(db),
		reviews:  repos.NewReviewRepo(db),
		requests: repos.NewSellerRequestRepo(db),
		convs:    repos.NewConversationRepo(db),
		shops:    repos.NewShopRepo(db),
		sink:     &recordingSink{},
		events:   &recordingEvents{},
		logs:     logs,
		logger:   zap.New(core),
	}
	e.wire(e.products)
	return e
}

// wire (re)builds the services, letting tests swap the catalog for a faulty one.
func (e *env) wire(catalog services.CatalogStore) {
	e.cart = services.NewCartService(e.carts, catalog)
	e.checkout = services.NewCheckoutService(services.CheckoutDeps{
		Carts: e.carts, Catalog: catalog, Orders: e.orders, Users: e.users,
		Sink: e.sink, Events: e.events, Logger: e.logger, LowStockThreshold: 5,
	})
	e.order = services.NewOrderService(e.orders, e.users, e.sink, e.events, e.logger)
	e.approval = services.NewApprovalService(e.users, e.requests, e.sink, e.logger)
	e.review = services.NewReviewService(e.reviews, e.orders, e.users, e.shops, catalog, e.sink, e.logger)
	e.messages = services.NewMessagingService(e.convs, e.users, e.shops, e.sink, e.logger)
}

func (e *env) user(t *testing.T, id string, role domain.Role) domain.Principal {
	t.Helper()
	require.NoError(t, e.users.Insert(context.Background(), domain.User{
		ID: id, Email: id + "@makiti.test", FullName: "Name " + id, Role: role,
	}))
	return domain.Principal{UserID: id, Role: role, Name: "Name " + id, Email: id + "@makiti.test"}
}

func (e *env) product(t *testing.T, id, seller string, price float64, stock int) {
	t.Helper()
	require.NoError(t, e.products.Insert(context.Background(), domain.Product{
		ID: id, SellerID: seller, Name: "Product " + id, Price: price, StockQuantity: stock,
	}))
}

func (e *env) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := e.products.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

func shipping() services.CheckoutRequest {
	return services.CheckoutRequest{
		ShippingAddress: domain.ShippingAddress{FullName: "Ines Traore", Address: "12 rue Carnot", City: "Dakar", Phone: "+221770000000"},
		PaymentMethod:   "card",
		DeliveryMethod:  domain.DeliveryHome,
	}
}

// faultyCatalog fails stock decrements for selected products.
type faultyCatalog struct {
	*repos.ProductRepo
	lose      map[string]bool
	transient map[string]bool
}

func (f *faultyCatalog) TryDecrementStock(ctx context.Context, id string, qty int) (bool, error) {
	if f.transient[id] {
		return false, domain.NewError(domain.ErrCodeTransient, "product.decrement_stock timed out")
	}
	if f.lose[id] {
		return false, nil
	}
	return f.ProductRepo.TryDecrementStock(ctx, id, qty)
}
