package domain

import "sort"

type LastMessage struct {
	Content   string `json:"content"`
	SenderID  string `json:"sender_id"`
	CreatedAt string `json:"created_at"`
}

// Conversation is keyed by the unordered {BuyerID, SellerID} pair.
type Conversation struct {
	ID           string       `json:"id"`
	BuyerID      string       `json:"buyer_id"`
	SellerID     string       `json:"seller_id"`
	BuyerName    string       `json:"buyer_name"`
	SellerName   string       `json:"seller_name"`
	ShopName     string       `json:"shop_name"`
	ProductID    string       `json:"product_id,omitempty"`
	LastMessage  *LastMessage `json:"last_message"`
	UnreadBuyer  int          `json:"unread_buyer"`
	UnreadSeller int          `json:"unread_seller"`
	CreatedAt    string       `json:"created_at"`
	UpdatedAt    string       `json:"updated_at"`
}

func (c *Conversation) HasParticipant(userID string) bool {
	return userID != "" && (c.BuyerID == userID || c.SellerID == userID)
}

func (c *Conversation) IsBuyer(userID string) bool { return c.BuyerID == userID }

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID string) string {
	if c.BuyerID == userID {
		return c.SellerID
	}
	return c.BuyerID
}

// UnreadFor returns the counter owned by userID.
func (c *Conversation) UnreadFor(userID string) int {
	if c.BuyerID == userID {
		return c.UnreadBuyer
	}
	return c.UnreadSeller
}

// PairKey is order-independent: PairKey(a, b) == PairKey(b, a).
func PairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return ids[0] + ":" + ids[1]
}

type Message struct {
	ID             string `db:"id" json:"id"`
	ConversationID string `db:"conversation_id" json:"conversation_id"`
	SenderID       string `db:"sender_id" json:"sender_id"`
	SenderName     string `db:"sender_name" json:"sender_name"`
	Content        string `db:"content" json:"content"`
	CreatedAt      string `db:"created_at" json:"created_at"`
}
