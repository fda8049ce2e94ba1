package repos_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makiti/internal/domain"
	"makiti/internal/repos"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func addUser(t *testing.T, db *sqlx.DB, id string, role domain.Role) {
	t.Helper()
	require.NoError(t, repos.NewUserRepo(db).Insert(context.Background(), domain.User{
		ID: id, Email: id + "@test", FullName: "User " + id, Role: role,
	}))
}

func addProduct(t *testing.T, db *sqlx.DB, id, seller string, price float64, stock int) {
	t.Helper()
	require.NoError(t, repos.NewProductRepo(db).Insert(context.Background(), domain.Product{
		ID: id, SellerID: seller, Name: "Product " + id, Price: price, StockQuantity: stock,
	}))
}

func TestTryDecrementStockNeverOversells(t *testing.T) {
	db := memdb(t)
	addProduct(t, db, "p1", "s1", 10, 5)
	products := repos.NewProductRepo(db)
	ctx := context.Background()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := products.TryDecrementStock(ctx, "p1", 1)
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 5, wins)
	p, err := products.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.StockQuantity)
	assert.Equal(t, domain.ProductOutOfStock, p.Status)

	require.NoError(t, products.CompensateStock(ctx, "p1", 2))
	p, err = products.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.StockQuantity)
	assert.Equal(t, domain.ProductPublished, p.Status)
}

func TestTryDecrementStockGuard(t *testing.T) {
	db := memdb(t)
	addProduct(t, db, "p1", "s1", 10, 3)
	products := repos.NewProductRepo(db)

	ok, err := products.TryDecrementStock(context.Background(), "p1", 4)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = products.TryDecrementStock(context.Background(), "missing", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCartAddQuantityKeepsOrderAndBound(t *testing.T) {
	db := memdb(t)
	carts := repos.NewCartRepo(db)
	ctx := context.Background()

	ok, err := carts.AddQuantity(ctx, "u1", "b", 2, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = carts.AddQuantity(ctx, "u1", "a", 1, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	// 2 + 4 > 5
	ok, err = carts.AddQuantity(ctx, "u1", "b", 4, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = carts.AddQuantity(ctx, "u1", "b", 3, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	cart, err := carts.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []domain.CartLine{{ProductID: "b", Quantity: 5}, {ProductID: "a", Quantity: 1}}, cart.Lines)

	require.NoError(t, carts.SetQuantity(ctx, "u1", "zzz", 3))
	require.NoError(t, carts.Remove(ctx, "u1", "b"))
	cart, err = carts.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []domain.CartLine{{ProductID: "a", Quantity: 1}}, cart.Lines)

	require.NoError(t, carts.Clear(ctx, "u1"))
	cart, err = carts.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, cart.Empty())
}

func TestSellerRequestLifecycle(t *testing.T) {
	db := memdb(t)
	addUser(t, db, "s1", domain.RoleSeller)
	reqs := repos.NewSellerRequestRepo(db)
	users := repos.NewUserRepo(db)
	ctx := context.Background()

	u, err := users.GetUser(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalNone, u.ApprovalStatus)

	mk := func(id string) domain.SellerRequest {
		return domain.SellerRequest{ID: id, UserID: "s1", BusinessName: "Shop", BusinessDescription: "d",
			BusinessAddress: "a", BusinessPhone: "p", DocumentURL: "u", DocumentType: "t", SubmittedAt: "2025-01-01T00:00:00Z"}
	}

	ok, err := reqs.InsertIfOpen(ctx, mk("r1"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = reqs.InsertIfOpen(ctx, mk("r2"))
	require.NoError(t, err)
	assert.False(t, ok, "pending blocks a second submission")

	ok, err = reqs.Resolve(ctx, "r1", domain.ApprovalRejected, "admin", "blurry document", "2025-01-02T00:00:00Z")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = reqs.Resolve(ctx, "r1", domain.ApprovalApproved, "admin", "", "2025-01-02T00:00:00Z")
	require.NoError(t, err)
	assert.False(t, ok, "only pending attempts resolve")

	ok, err = reqs.InsertIfOpen(ctx, mk("r3"))
	require.NoError(t, err)
	require.True(t, ok, "rejected allows resubmission")

	hist, err := reqs.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "blurry document", hist[0].RejectionReason)
	assert.Equal(t, domain.ApprovalPending, hist[1].Status)

	pending, err := reqs.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "r3", pending[0].ID)
	assert.Equal(t, "User s1", pending[0].FullName)
}

func TestReviewUniqueAndAggregate(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	orders := repos.NewOrderRepo(db)
	reviews := repos.NewReviewRepo(db)

	for _, id := range []string{"o1", "o2", "o3"} {
		_, err := orders.Insert(ctx, &domain.Order{ID: id, UserID: "u1", Status: domain.OrderDelivered,
			Items: []domain.OrderItem{{ProductID: "p1", ProductName: "P", SellerID: "s1", Quantity: 1, UnitPrice: 1, LineTotal: 1}}})
		require.NoError(t, err)
	}

	sum, err := reviews.AggregateBySeller(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.RatingSummary{}, sum)

	for i, rating := range []int{5, 3, 4} {
		require.NoError(t, reviews.Insert(ctx, &domain.Review{UserID: "u1", OrderID: []string{"o1", "o2", "o3"}[i], SellerID: "s1", Rating: rating}))
	}
	err = reviews.Insert(ctx, &domain.Review{UserID: "u1", OrderID: "o1", SellerID: "s1", Rating: 1})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeDuplicateReview), "got %v", err)

	sum, err = reviews.AggregateBySeller(ctx, "s1")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, sum.Average, 1e-9)
	assert.Equal(t, 3, sum.Count)
}

func TestOrderSnapshotRoundTrip(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	orders := repos.NewOrderRepo(db)

	o := &domain.Order{
		UserID:          "u1",
		ShippingAddress: domain.ShippingAddress{FullName: "Ines", Phone: "+2210", City: "Dakar"},
		PaymentMethod:   "card", DeliveryMethod: domain.DeliveryHome, PaymentStatus: domain.PaymentPending,
		Subtotal: 20, Total: 20, Status: domain.OrderPending,
		Items: []domain.OrderItem{
			{ProductID: "p1", ProductName: "One", SellerID: "s1", Quantity: 2, UnitPrice: 5, LineTotal: 10},
			{ProductID: "p2", ProductName: "Two", SellerID: "s2", Quantity: 1, UnitPrice: 10, LineTotal: 10},
		},
	}
	id, err := orders.Insert(ctx, o)
	require.NoError(t, err)

	got, err := orders.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, o.Items, got.Items)
	assert.Equal(t, "Dakar", got.ShippingAddress.City)

	bySeller, err := orders.ListBySeller(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, bySeller, 1)
	assert.Len(t, bySeller[0].Items, 2, "the full order is returned; callers filter lines")

	ok, err := orders.AdvanceStatus(ctx, id, domain.OrderDelivered)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = orders.AdvanceStatus(ctx, id, domain.OrderShipped)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = orders.Get(ctx, "nope")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))
}

func TestListsAreNewestFirstAcrossSubsecondStamps(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	orders := repos.NewOrderRepo(db)
	reviews := repos.NewReviewRepo(db)

	older := time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC)
	newer := older.Add(500 * time.Millisecond)
	assert.Len(t, domain.Stamp(older), len(domain.Stamp(newer)))

	for _, o := range []struct {
		id string
		at time.Time
	}{{"o-old", older}, {"o-new", newer}} {
		_, err := orders.Insert(ctx, &domain.Order{ID: o.id, UserID: "u1", Status: domain.OrderDelivered, CreatedAt: domain.Stamp(o.at),
			Items: []domain.OrderItem{{ProductID: "p1", ProductName: "P", SellerID: "s1", Quantity: 1, UnitPrice: 1, LineTotal: 1}}})
		require.NoError(t, err)
		require.NoError(t, reviews.Insert(ctx, &domain.Review{UserID: "u1", OrderID: o.id, SellerID: "s1", Rating: 4, CreatedAt: domain.Stamp(o.at)}))
	}

	mine, err := orders.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "o-new", mine[0].ID)

	sold, err := orders.ListBySeller(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, sold, 2)
	assert.Equal(t, "o-new", sold[0].ID)

	rs, err := reviews.ListBySeller(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, "o-new", rs[0].OrderID)
}

func TestConversationPairAndCounters(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	convs := repos.NewConversationRepo(db)

	first, err := convs.Create(ctx, domain.Conversation{BuyerID: "b1", SellerID: "s1", ProductID: "p1"})
	require.NoError(t, err)
	again, err := convs.Create(ctx, domain.Conversation{BuyerID: "b1", SellerID: "s1", ProductID: "p2"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "p1", again.ProductID)

	found, err := convs.FindByPair(ctx, "s1", "b1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	for _, content := range []string{"hello", "are you there?"} {
		require.NoError(t, convs.AppendMessage(ctx, &domain.Message{ConversationID: first.ID, SenderID: "b1", Content: content}, content, false))
	}
	c, err := convs.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, c.UnreadSeller)
	assert.Equal(t, 0, c.UnreadBuyer)
	require.NotNil(t, c.LastMessage)
	assert.Equal(t, "are you there?", c.LastMessage.Content)

	total, err := convs.UnreadTotal(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	require.NoError(t, convs.ResetUnread(ctx, first.ID, "s1"))
	c, err = convs.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, c.UnreadSeller)

	msgs, err := convs.Messages(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)

	require.NoError(t, convs.Delete(ctx, first.ID))
	msgs, err = convs.Messages(ctx, first.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	_, err = convs.Get(ctx, first.ID)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))
}

func TestNotificationsIdempotentCreate(t *testing.T) {
	db := memdb(t)
	ctx := context.Background()
	notes := repos.NewNotificationRepo(db)

	n := domain.Notification{ID: "n1", UserID: "u1", Type: domain.NotifyNewOrder, Title: "t", Message: "m"}
	require.NoError(t, notes.Create(ctx, n))
	require.NoError(t, notes.Create(ctx, n))

	list, err := notes.ListByUser(ctx, "u1", 50)
	require.NoError(t, err)
	require.Len(t, list, 1)

	unread, err := notes.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	err = notes.MarkRead(ctx, "n1", "someone-else")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))
	require.NoError(t, notes.MarkRead(ctx, "n1", "u1"))

	unread, err = notes.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestCancelledContextIsTransient(t *testing.T) {
	db := memdb(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repos.NewProductRepo(db).GetProduct(ctx, "p1")
	assert.True(t, domain.IsTransient(err), "got %v", err)

	_, err = repos.NewProductRepo(db).TryDecrementStock(ctx, "p1", 1)
	assert.True(t, domain.IsTransient(err), "got %v", err)
}
