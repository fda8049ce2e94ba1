package domain

type NotificationType string

const (
	NotifySellerApproved NotificationType = "seller_approved"
	NotifySellerRejected NotificationType = "seller_rejected"
	NotifyNewOrder       NotificationType = "new_order"
	NotifyLowStock       NotificationType = "low_stock"
	NotifyOrderStatus    NotificationType = "order_status"
	NotifyNewReview      NotificationType = "new_review"
	NotifyReviewReply    NotificationType = "review_reply"
	NotifyNewMessage     NotificationType = "new_message"
)

// Notification is a polled in-app record; only Read ever changes.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt string           `db:"created_at" json:"created_at"`
}

// Email template names understood by the dispatcher.
const (
	EmailSellerApproved = "seller_approved"
	EmailSellerRejected = "seller_rejected"
	EmailNewOrder       = "new_order"
	EmailOrderStatus    = "order_status"
	EmailLowStock       = "low_stock"
)
