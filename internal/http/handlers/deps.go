package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"makiti/internal/auth"
	"makiti/internal/config"
	"makiti/internal/domain"
	"makiti/internal/repos"
	"makiti/internal/services"
)

type Deps struct {
	Verifier      *auth.Verifier
	Users         *repos.UserRepo
	Notifications *repos.NotificationRepo

	AuthHandler         *AuthHandler
	CartHandler         *CartHandler
	OrderHandler        *OrderHandler
	SellerHandler       *SellerHandler
	AdminHandler        *AdminHandler
	ReviewHandler       *ReviewHandler
	ConversationHandler *ConversationHandler
	NotificationHandler *NotificationHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, sink services.NotificationSink, events services.OrderEvents, logger *zap.Logger) *Deps {
	opts := repos.Options{Timeout: cfg.Timeouts.Store, ReadRetries: cfg.Timeouts.ReadRetries, RetryBackoff: 25 * time.Millisecond}
	userRepo := repos.NewUserRepo(db, opts)
	prodRepo := repos.NewProductRepo(db, opts)
	cartRepo := repos.NewCartRepo(db, opts)
	orderRepo := repos.NewOrderRepo(db, opts)
	reviewRepo := repos.NewReviewRepo(db, opts)
	requestRepo := repos.NewSellerRequestRepo(db, opts)
	shopRepo := repos.NewShopRepo(db, opts)
	convRepo := repos.NewConversationRepo(db, opts)
	notifRepo := repos.NewNotificationRepo(db, opts)

	cartSvc := services.NewCartService(cartRepo, prodRepo)
	checkoutSvc := services.NewCheckoutService(services.CheckoutDeps{
		Carts:             cartRepo,
		Catalog:           prodRepo,
		Orders:            orderRepo,
		Users:             userRepo,
		Sink:              sink,
		Events:            events,
		Logger:            logger,
		LowStockThreshold: cfg.LowStockThreshold,
	})
	orderSvc := services.NewOrderService(orderRepo, userRepo, sink, events, logger)
	approvalSvc := services.NewApprovalService(userRepo, requestRepo, sink, logger)
	reviewSvc := services.NewReviewService(reviewRepo, orderRepo, userRepo, shopRepo, prodRepo, sink, logger)
	messagingSvc := services.NewMessagingService(convRepo, userRepo, shopRepo, sink, logger)
	notifSvc := services.NewNotificationService(notifRepo)

	return &Deps{
		Verifier:      auth.NewVerifier(cfg.JWT.Secret, cfg.JWT.Issuer),
		Users:         userRepo,
		Notifications: notifRepo,

		AuthHandler:         &AuthHandler{Users: userRepo},
		CartHandler:         &CartHandler{Cart: cartSvc},
		OrderHandler:        &OrderHandler{Checkout: checkoutSvc, Orders: orderSvc},
		SellerHandler:       &SellerHandler{Approval: approvalSvc},
		AdminHandler:        &AdminHandler{Approval: approvalSvc},
		ReviewHandler:       &ReviewHandler{Reviews: reviewSvc},
		ConversationHandler: &ConversationHandler{Messaging: messagingSvc},
		NotificationHandler: &NotificationHandler{Notifications: notifSvc},
	}
}

// Routes mounts the API on r. Callers install RequestContext before it.
func Routes(r fiber.Router, d *Deps) {
	authn := Authenticate(d.Verifier, d.Users)

	r.Get("/me", authn, d.AuthHandler.Me)

	// Cart
	cart := r.Group("/cart", authn)
	cart.Get("/", d.CartHandler.View)
	cart.Post("/add", d.CartHandler.Add)
	cart.Put("/update", d.CartHandler.Update)
	cart.Delete("/remove/:productId", d.CartHandler.Remove)
	cart.Delete("/clear", d.CartHandler.Clear)

	// Checkout & orders
	r.Post("/checkout", authn, d.OrderHandler.Place)
	orders := r.Group("/orders", authn)
	orders.Get("/history", d.OrderHandler.History)
	orders.Get("/:id", d.OrderHandler.View)
	orders.Put("/:id/status", RequireRole("order_status", domain.RoleSeller, domain.RoleAdmin), d.OrderHandler.UpdateStatus)

	// Seller
	seller := r.Group("/seller", authn)
	seller.Post("/request", d.SellerHandler.Submit)
	seller.Get("/request/status", d.SellerHandler.Status)
	seller.Get("/orders", RequireRole("seller", domain.RoleSeller), d.OrderHandler.SellerOrders)

	// Admin
	admin := r.Group("/admin", authn, RequireRole("admin", domain.RoleAdmin))
	admin.Get("/seller-requests", d.AdminHandler.PendingRequests)
	admin.Put("/seller-requests/:userId", d.AdminHandler.Decide)

	// Reviews; listings are public
	reviews := r.Group("/reviews")
	reviews.Get("/seller/:sellerId", d.ReviewHandler.BySeller)
	reviews.Get("/product/:productId", d.ReviewHandler.ByProduct)
	reviews.Post("/", authn, d.ReviewHandler.Create)
	reviews.Post("/:id/reply", authn, RequireRole("review_reply", domain.RoleSeller), d.ReviewHandler.Reply)
	reviews.Get("/order/:orderId", authn, d.ReviewHandler.ByOrder)
	reviews.Get("/can-review/:orderId", authn, d.ReviewHandler.CanReview)

	// Conversations
	conv := r.Group("/conversations", authn)
	conv.Post("/start/:sellerId", d.ConversationHandler.Start)
	conv.Get("/", d.ConversationHandler.List)
	conv.Get("/unread/count", d.ConversationHandler.UnreadCount)
	conv.Get("/:id/messages", d.ConversationHandler.Messages)
	conv.Post("/:id/messages", d.ConversationHandler.Send)
	conv.Put("/:id/messages", d.ConversationHandler.MarkRead)
	conv.Delete("/:id", d.ConversationHandler.Delete)

	// Notifications
	notes := r.Group("/notifications", authn)
	notes.Get("/", d.NotificationHandler.List)
	notes.Get("/unread-count", d.NotificationHandler.UnreadCount)
	notes.Put("/read-all", d.NotificationHandler.MarkAllRead)
	notes.Put("/:id/read", d.NotificationHandler.MarkRead)
	notes.Delete("/:id", d.NotificationHandler.Delete)
}
