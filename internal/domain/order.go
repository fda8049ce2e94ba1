package domain

import "math"

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Terminal statuses cannot be changed once reached.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

const PaymentPending = "pending"

const (
	DeliveryHome   = "delivery"
	DeliveryPickup = "pickup"
)

type ShippingAddress struct {
	FullName   string `json:"full_name"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Phone      string `json:"phone"`
}

// OrderItem is an immutable snapshot of a cart line at purchase time.
type OrderItem struct {
	ProductID   string  `db:"product_id" json:"product_id"`
	ProductName string  `db:"product_name" json:"product_name"`
	SellerID    string  `db:"seller_id" json:"seller_id"`
	Quantity    int     `db:"quantity" json:"quantity"`
	UnitPrice   float64 `db:"unit_price" json:"unit_price"`
	LineTotal   float64 `db:"line_total" json:"total"`
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	DeliveryMethod  string          `json:"delivery_method"`
	PaymentStatus   string          `json:"payment_status"`
	Subtotal        float64         `json:"subtotal"`
	ShippingFee     float64         `json:"shipping_fee"`
	Total           float64         `json:"total"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
}

// SellerIDs returns the distinct sellers in the order, in line order.
func (o *Order) SellerIDs() []string {
	seen := map[string]bool{}
	var out []string
	for _, it := range o.Items {
		if !seen[it.SellerID] {
			seen[it.SellerID] = true
			out = append(out, it.SellerID)
		}
	}
	return out
}

// SellerLines returns only the lines sold by sellerID and their sub-total.
func (o *Order) SellerLines(sellerID string) ([]OrderItem, float64) {
	var lines []OrderItem
	total := 0.0
	for _, it := range o.Items {
		if it.SellerID == sellerID {
			lines = append(lines, it)
			total += it.LineTotal
		}
	}
	return lines, Money(total)
}

func (o *Order) HasSeller(sellerID string) bool {
	for _, it := range o.Items {
		if it.SellerID == sellerID {
			return true
		}
	}
	return false
}

// ShortID is the suffix shown to humans in notifications.
func (o *Order) ShortID() string {
	if len(o.ID) <= 8 {
		return o.ID
	}
	return o.ID[len(o.ID)-8:]
}

// Money rounds to cents.
func Money(v float64) float64 {
	return math.Round(v*100) / 100
}

// OrderEvent is published to the broker after an order changes.
type OrderEvent struct {
	Type     string      `json:"type"`
	OrderID  string      `json:"order_id"`
	UserID   string      `json:"user_id"`
	Status   OrderStatus `json:"status"`
	Total    float64     `json:"total"`
	Occurred string      `json:"occurred"`
}

const (
	EventOrderCreated       = "order.created"
	EventOrderCancelled     = "order.cancelled"
	EventOrderStatusUpdated = "order.status_updated"
)
