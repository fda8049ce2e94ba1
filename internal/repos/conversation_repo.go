package repos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"makiti/internal/domain"
)

type ConversationRepo struct{ base }

func NewConversationRepo(db *sqlx.DB, opts ...Options) *ConversationRepo {
	return &ConversationRepo{newBase(db, opts)}
}

type conversationRow struct {
	ID           string `db:"id"`
	BuyerID      string `db:"buyer_id"`
	SellerID     string `db:"seller_id"`
	BuyerName    string `db:"buyer_name"`
	SellerName   string `db:"seller_name"`
	ShopName     string `db:"shop_name"`
	ProductID    string `db:"product_id"`
	LastContent  string `db:"last_message_content"`
	LastSender   string `db:"last_message_sender"`
	LastAt       string `db:"last_message_at"`
	UnreadBuyer  int    `db:"unread_buyer"`
	UnreadSeller int    `db:"unread_seller"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}

func (row conversationRow) toDomain() domain.Conversation {
	c := domain.Conversation{
		ID:           row.ID,
		BuyerID:      row.BuyerID,
		SellerID:     row.SellerID,
		BuyerName:    row.BuyerName,
		SellerName:   row.SellerName,
		ShopName:     row.ShopName,
		ProductID:    row.ProductID,
		UnreadBuyer:  row.UnreadBuyer,
		UnreadSeller: row.UnreadSeller,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.LastAt != "" {
		c.LastMessage = &domain.LastMessage{Content: row.LastContent, SenderID: row.LastSender, CreatedAt: row.LastAt}
	}
	return c
}

const conversationCols = `id, buyer_id, seller_id, buyer_name, seller_name, shop_name,
	COALESCE(product_id,'') AS product_id, COALESCE(last_message_content,'') AS last_message_content,
	COALESCE(last_message_sender,'') AS last_message_sender, COALESCE(last_message_at,'') AS last_message_at,
	unread_buyer, unread_seller, created_at, updated_at`

func (r *ConversationRepo) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	return r.getBy(ctx, "conversation.get", `id = ?`, id)
}

// FindByPair looks a conversation up by its unordered participant pair.
func (r *ConversationRepo) FindByPair(ctx context.Context, a, b string) (*domain.Conversation, error) {
	return r.getBy(ctx, "conversation.find_by_pair", `pair_key = ?`, domain.PairKey(a, b))
}

func (r *ConversationRepo) getBy(ctx context.Context, op, where string, arg any) (*domain.Conversation, error) {
	var row conversationRow
	err := r.read(ctx, op, func(ctx context.Context) error {
		return notFound(r.db.GetContext(ctx, &row, `SELECT `+conversationCols+` FROM conversations WHERE `+where, arg), domain.ErrConversationNotFound)
	})
	if err != nil {
		return nil, err
	}
	c := row.toDomain()
	return &c, nil
}

// Create inserts c unless a conversation for the same pair exists, and
// returns whichever row holds the pair afterwards.
func (r *ConversationRepo) Create(ctx context.Context, c domain.Conversation) (*domain.Conversation, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	ts := now()
	err := r.write(ctx, "conversation.create", func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO conversations(id, pair_key, buyer_id, seller_id, buyer_name, seller_name, shop_name,
			  product_id, unread_buyer, unread_seller, created_at, updated_at)
			VALUES(?,?,?,?,?,?,?,NULLIF(?,''),0,0,?,?)
			ON CONFLICT(pair_key) DO NOTHING
		`, c.ID, domain.PairKey(c.BuyerID, c.SellerID), c.BuyerID, c.SellerID, c.BuyerName, c.SellerName,
			c.ShopName, c.ProductID, ts, ts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.FindByPair(ctx, c.BuyerID, c.SellerID)
}

// ListByParticipant returns userID's conversations, most recent activity first.
func (r *ConversationRepo) ListByParticipant(ctx context.Context, userID string) ([]domain.Conversation, error) {
	out := []domain.Conversation{}
	err := r.read(ctx, "conversation.list", func(ctx context.Context) error {
		var rows []conversationRow
		if err := r.db.SelectContext(ctx, &rows, `
			SELECT `+conversationCols+` FROM conversations
			WHERE buyer_id = ? OR seller_id = ? ORDER BY updated_at DESC
		`, userID, userID); err != nil {
			return err
		}
		out = out[:0]
		for _, row := range rows {
			out = append(out, row.toDomain())
		}
		return nil
	})
	return out, err
}

// AppendMessage stores m, updates the preview and bumps the recipient's
// unread counter, all in one transaction.
func (r *ConversationRepo) AppendMessage(ctx context.Context, m *domain.Message, preview string, recipientIsBuyer bool) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt == "" {
		m.CreatedAt = now()
	}
	incBuyer, incSeller := 0, 1
	if recipientIsBuyer {
		incBuyer, incSeller = 1, 0
	}
	return r.tx(ctx, "conversation.append_message", func(ctx context.Context, tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE conversations
			SET last_message_content = ?, last_message_sender = ?, last_message_at = ?, updated_at = ?,
			    unread_buyer = unread_buyer + ?, unread_seller = unread_seller + ?
			WHERE id = ?
		`, preview, m.SenderID, m.CreatedAt, m.CreatedAt, incBuyer, incSeller, m.ConversationID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrConversationNotFound
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages(id, conversation_id, sender_id, sender_name, content, created_at)
			VALUES(?,?,?,?,?,?)
		`, m.ID, m.ConversationID, m.SenderID, m.SenderName, m.Content, m.CreatedAt)
		return err
	})
}

// ResetUnread zeroes only the counter owned by readerID.
func (r *ConversationRepo) ResetUnread(ctx context.Context, id, readerID string) error {
	return r.write(ctx, "conversation.reset_unread", func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
			UPDATE conversations
			SET unread_buyer = CASE WHEN buyer_id = ? THEN 0 ELSE unread_buyer END,
			    unread_seller = CASE WHEN seller_id = ? THEN 0 ELSE unread_seller END
			WHERE id = ?
		`, readerID, readerID, id)
		return err
	})
}

// Messages returns the conversation's messages in creation order.
func (r *ConversationRepo) Messages(ctx context.Context, id string) ([]domain.Message, error) {
	out := []domain.Message{}
	err := r.read(ctx, "conversation.messages", func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &out, `
			SELECT id, conversation_id, sender_id, sender_name, content, created_at
			FROM messages WHERE conversation_id = ? ORDER BY seq
		`, id)
	})
	return out, err
}

// UnreadTotal sums the counters userID owns across all conversations.
func (r *ConversationRepo) UnreadTotal(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.read(ctx, "conversation.unread_total", func(ctx context.Context) error {
		return r.db.GetContext(ctx, &n, `
			SELECT COALESCE(SUM(
			  CASE WHEN buyer_id = ? THEN unread_buyer ELSE 0 END +
			  CASE WHEN seller_id = ? THEN unread_seller ELSE 0 END), 0)
			FROM conversations WHERE buyer_id = ? OR seller_id = ?
		`, userID, userID, userID, userID)
	})
	return n, err
}

// Delete removes the messages and then the conversation.
func (r *ConversationRepo) Delete(ctx context.Context, id string) error {
	return r.tx(ctx, "conversation.delete", func(ctx context.Context, tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrConversationNotFound
		}
		return nil
	})
}
