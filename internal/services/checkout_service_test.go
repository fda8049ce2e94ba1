package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makiti/internal/domain"
)

func TestCheckoutCartIntoOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seller := e.user(t, "s1", domain.RoleSeller)
	buyer := e.user(t, "b1", domain.RoleCustomer)
	e.product(t, "P1", seller.UserID, 10, 5)

	require.NoError(t, e.cart.Add(ctx, buyer.UserID, "P1", 2))
	res, err := e.checkout.Checkout(ctx, buyer, shipping())
	require.NoError(t, err)
	assert.Equal(t, 20.0, res.Total)
	assert.Equal(t, 3, e.stock(t, "P1"))

	cart, err := e.carts.Get(ctx, buyer.UserID)
	require.NoError(t, err)
	assert.True(t, cart.Empty())

	o, err := e.orders.Get(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, o.Status)
	assert.Equal(t, domain.PaymentPending, o.PaymentStatus)
	assert.Equal(t, []domain.OrderItem{{ProductID: "P1", ProductName: "Product P1", SellerID: "s1", Quantity: 2, UnitPrice: 10, LineTotal: 20}}, o.Items)

	_, err = e.checkout.Checkout(ctx, buyer, shipping())
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
	assert.Equal(t, "cart empty", err.Error())
}

func TestCheckoutNotifiesEachSellerWithOwnLines(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	s1 := e.user(t, "s1", domain.RoleSeller)
	s2 := e.user(t, "s2", domain.RoleSeller)
	buyer := e.user(t, "b1", domain.RoleCustomer)
	e.product(t, "A", s1.UserID, 5, 50)
	e.product(t, "B", s1.UserID, 7, 50)
	e.product(t, "C", s2.UserID, 12.5, 6)

	require.NoError(t, e.cart.Add(ctx, buyer.UserID, "A", 2))
	require.NoError(t, e.cart.Add(ctx, buyer.UserID, "B", 1))
	require.NoError(t, e.cart.Add(ctx, buyer.UserID, "C", 2))
	res, err := e.checkout.Checkout(ctx, buyer, shipping())
	require.NoError(t, err)
	assert.Equal(t, 42.0, res.Total)

	n1 := e.sink.inAppFor("s1", domain.NotifyNewOrder)
	require.Len(t, n1, 1)
	assert.Contains(t, n1[0].Message, "17.00")
	assert.Contains(t, n1[0].Message, "2 item(s)", "counts the seller's lines, not units")
	n2 := e.sink.inAppFor("s2", domain.NotifyNewOrder)
	require.Len(t, n2, 1)
	assert.Contains(t, n2[0].Message, "25.00")
	assert.Contains(t, n2[0].Message, "1 item(s)")

	mail := e.sink.emailsTo(s1.Email, domain.EmailNewOrder)
	require.Len(t, mail, 1)
	assert.Len(t, mail[0].Data["Items"], 2)

	// Only C fell to the threshold (6 - 2 = 4).
	assert.Empty(t, e.sink.inAppFor("s1", domain.NotifyLowStock))
	low := e.sink.inAppFor("s2", domain.NotifyLowStock)
	require.Len(t, low, 1)
	assert.Contains(t, low[0].Message, "4 unit(s)")
	assert.Len(t, e.sink.emailsTo(s2.Email, domain.EmailLowStock), 1)

	assert.Equal(t, []string{domain.EventOrderCreated}, e.events.types())
}

func TestCheckoutSnapshotsPrices(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	buyer := e.user(t, "b1", domain.RoleCustomer)
	e.product(t, "P1", "s1", 10, 5)

	require.NoError(t, e.cart.Add(ctx, buyer.UserID, "P1", 1))
	res, err := e.checkout.Checkout(ctx, buyer, shipping())
	require.NoError(t, err)

	require.NoError(t, e.products.SetPrice(ctx, "P1", 99))
	o, err := e.orders.Get(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, o.Total)
	assert.Equal(t, 10.0, o.Items[0].UnitPrice)
}

func TestCheckoutRejectsRemovedProduct(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	buyer := e.user(t, "b1", domain.RoleCustomer)
	e.product(t, "P1", "s1", 10, 5)
	e.product(t, "P2", "s1", 4, 3)

	require.NoError(t, e.cart.Add(ctx, buyer.UserID, "P2", 1))
	require.NoError(t, e.cart.Add(ctx, buyer.UserID, "P1", 1))
	require.NoError(t, e.products.Delete(ctx, "P1"))

	_, err := e.checkout.Checkout(ctx, buyer, shipping())
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation), "got %v", err)
	assert.Contains(t, err.Error(), "P1")

	assert.Equal(t, 3, e.stock(t, "P2"))
	history, err := e.order.History(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, history)
	cart, err := e.carts.Get(ctx, buyer.UserID)
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 2, "the cart is left for the buyer to fix")
	assert.Empty(t, e.events.types())
}

func TestCheckoutValidationPhaseHasNoSideEffects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	buyer := e.user(t, "b1", domain.RoleCustomer)
	e.product(t, "P1", "s1", 10, 5)
	e.product(t, "P2", "s1", 10, 5)

	require.NoError(t, e.cart.Add(ctx, buyer.UserID, "P1", 1))
	require.NoError(t, e.cart.Add(ctx, buyer.UserID, "P2", 4))
	// Someone else takes most of P2 after it was carted.
	ok, err := e.products.TryDecrementStock(ctx, "P2", 3)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = e.checkout.Checkout(ctx, buyer, shipping())
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInsufficientStock), "got %v", err)
	assert.Contains(t, err.Error(), "Product P2")

	history, err := e.order.History(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Equal(t, 5, e.stock(t, "P1"))
	assert.Equal(t, 2, e.stock(t, "P2"))
	cart, err := e.carts.Get(ctx, buyer.UserID)
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 2)
}

func TestCheckoutCompensatesLostDecrement(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	buyer := e.user(t, "b1", domain.RoleCustomer)
	e.product(t, "P1", "s1", 10, 5)
	e.product(t, "P2", "s1", 10, 5)
	e.product(t, "P3", "s1", 10, 5)
	require.NoError(t, e.cart.Add(ctx, buyer.UserID, "P1", 2))
	require.NoError(t, e.cart.Add(ctx, buyer.UserID, "P2", 1))
	require.NoError(t, e.cart.Add(ctx, buyer.UserID, "P3", 1))

	e.wire(&faultyCatalog{ProductRepo: e.products, lose: map[string]bool{"P2": true}})
	_, err := e.checkout.Checkout(ctx, buyer, shipping())
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInsufficientStock), "got %v", err)

	assert.Equal(t, 5, e.stock(t, "P1"), "already decremented line restored")
	assert.Equal(t, 5, e.stock(t, "P2"))
	assert.Equal(t, 5, e.stock(t, "P3"), "lines after the failure never decremented")

	history, err := e.order.History(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.OrderCancelled, history[0].Status)

	cart, err := e.carts.Get(ctx, buyer.UserID)
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 3, "cart kept for a retry")
	assert.Empty(t, e.sink.inAppFor("s1", domain.NotifyNewOrder))
	assert.Equal(t, []string{domain.EventOrderCancelled}, e.events.types())
}

func TestCheckoutTransientDecrementIsNotRetried(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	buyer := e.user(t, "b1", domain.RoleCustomer)
	e.product(t, "P1", "s1", 10, 5)
	e.product(t, "P2", "s1", 10, 5)
	require.NoError(t, e.cart.Add(ctx, buyer.UserID, "P1", 2))
	require.NoError(t, e.cart.Add(ctx, buyer.UserID, "P2", 1))

	e.wire(&faultyCatalog{ProductRepo: e.products, transient: map[string]bool{"P2": true}})
	_, err := e.checkout.Checkout(ctx, buyer, shipping())
	assert.True(t, domain.IsTransient(err), "got %v", err)
	assert.Equal(t, 5, e.stock(t, "P1"))

	history, err := e.order.History(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.OrderCancelled, history[0].Status)
}

func TestCheckoutSurvivesNotificationFailures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	buyer := e.user(t, "b1", domain.RoleCustomer)
	e.user(t, "s1", domain.RoleSeller)
	e.product(t, "P1", "s1", 10, 2)
	e.sink.fail = true

	require.NoError(t, e.cart.Add(ctx, buyer.UserID, "P1", 1))
	res, err := e.checkout.Checkout(ctx, buyer, shipping())
	require.NoError(t, err)
	assert.NotEmpty(t, res.OrderID)
	assert.Equal(t, 1, e.stock(t, "P1"))
	assert.NotZero(t, e.logs.FilterMessage("notify.in_app.failed").Len())
}

func TestCheckoutRequestValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	buyer := e.user(t, "b1", domain.RoleCustomer)

	noPhone := shipping()
	noPhone.ShippingAddress.Phone = ""
	_, err := e.checkout.Checkout(ctx, buyer, noPhone)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))

	pickup := shipping()
	pickup.DeliveryMethod = domain.DeliveryPickup
	pickup.ShippingAddress.Address, pickup.ShippingAddress.City = "", ""
	_, err = e.checkout.Checkout(ctx, buyer, pickup)
	assert.Equal(t, domain.ErrCartEmpty, err, "pickup needs no address, so the cart check is reached")

	bad := shipping()
	bad.DeliveryMethod = "drone"
	_, err = e.checkout.Checkout(ctx, buyer, bad)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.product(t, "HOT", "s1", 10, 3)

	const buyers = 8
	principals := make([]domain.Principal, buyers)
	for i := range principals {
		principals[i] = e.user(t, fmt.Sprintf("b%d", i), domain.RoleCustomer)
		require.NoError(t, e.cart.Add(ctx, principals[i].UserID, "HOT", 1))
	}

	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := range principals {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.checkout.Checkout(ctx, principals[i], shipping())
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeInsufficientStock), "got %v", err)
	}
	assert.Equal(t, 3, wins)
	assert.Equal(t, 0, e.stock(t, "HOT"))

	live := 0
	for _, p := range principals {
		history, err := e.order.History(ctx, p)
		require.NoError(t, err)
		for _, o := range history {
			if o.Status != domain.OrderCancelled {
				live++
			}
		}
	}
	assert.Equal(t, 3, live, "committed orders never exceed the starting stock")
}

