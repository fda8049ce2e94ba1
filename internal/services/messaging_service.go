package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"makiti/internal/domain"
	applog "makiti/internal/log"
)

const (
	maxMessageLen = 2000
	previewLen    = 50
)

type MessagingService struct {
	Conversations ConversationStore
	Users         IdentityStore
	Shops         ShopStore
	notify        notifier
	log           *zap.Logger
}

func NewMessagingService(convs ConversationStore, users IdentityStore, shops ShopStore, sink NotificationSink, logger *zap.Logger) *MessagingService {
	n := newNotifier(sink, nil, logger)
	return &MessagingService{Conversations: convs, Users: users, Shops: shops, notify: n, log: n.log}
}

// Start returns the caller's conversation with sellerID, creating it on first
// contact. An existing conversation is returned unchanged, productID included.
func (s *MessagingService) Start(ctx context.Context, p domain.Principal, sellerID, productID string) (*domain.Conversation, error) {
	if sellerID == p.UserID {
		return nil, domain.NewError(domain.ErrCodeValidation, "cannot start a conversation with yourself")
	}
	existing, err := s.Conversations.FindByPair(ctx, p.UserID, sellerID)
	if err == nil {
		return existing, nil
	}
	if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return nil, err
	}

	seller, err := s.Users.GetUser(ctx, sellerID)
	if domain.IsDomainError(err, domain.ErrCodeNotFound) || (err == nil && seller.Role != domain.RoleSeller) {
		return nil, domain.ErrSellerNotFound
	}
	if err != nil {
		return nil, err
	}
	shopName := ""
	if shop, err := s.Shops.GetByOwner(ctx, sellerID); err == nil {
		shopName = shop.Name
	} else if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		applog.WithRequestID(ctx, s.log).Warn("conversation.shop_lookup.failed", zap.String("seller_id", sellerID), zap.Error(err))
	}

	return s.Conversations.Create(ctx, domain.Conversation{
		BuyerID:    p.UserID,
		SellerID:   sellerID,
		BuyerName:  p.Name,
		SellerName: seller.DisplayName(seller.Email),
		ShopName:   shopName,
		ProductID:  productID,
	})
}

// participant loads the conversation and checks that userID belongs to it.
func (s *MessagingService) participant(ctx context.Context, id, userID string) (*domain.Conversation, error) {
	c, err := s.Conversations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.HasParticipant(userID) {
		return nil, domain.NewError(domain.ErrCodeForbidden, "not a participant of this conversation")
	}
	return c, nil
}

// Send appends a message and bumps only the recipient's unread counter.
func (s *MessagingService) Send(ctx context.Context, p domain.Principal, conversationID, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.NewError(domain.ErrCodeValidation, "message content is required")
	}
	if len([]rune(content)) > maxMessageLen {
		return nil, domain.Errorf(domain.ErrCodeValidation, "message is limited to %d characters", maxMessageLen)
	}
	c, err := s.participant(ctx, conversationID, p.UserID)
	if err != nil {
		return nil, err
	}
	m := &domain.Message{
		ConversationID: c.ID,
		SenderID:       p.UserID,
		SenderName:     p.Name,
		Content:        content,
	}
	short := preview(content, previewLen)
	recipient := c.Other(p.UserID)
	if err := s.Conversations.AppendMessage(ctx, m, short, recipient == c.BuyerID); err != nil {
		return nil, err
	}

	title := "New message"
	if p.Name != "" {
		title = "New message from " + p.Name
	}
	s.notify.inApp(ctx, recipient, domain.NotifyNewMessage, title, short, zap.String("conversation_id", c.ID))
	return m, nil
}

// Messages returns the thread in creation order and marks it read for the caller.
func (s *MessagingService) Messages(ctx context.Context, p domain.Principal, conversationID string) ([]domain.Message, error) {
	if _, err := s.participant(ctx, conversationID, p.UserID); err != nil {
		return nil, err
	}
	if err := s.Conversations.ResetUnread(ctx, conversationID, p.UserID); err != nil {
		return nil, err
	}
	return s.Conversations.Messages(ctx, conversationID)
}

// Read resets the caller's own unread counter; the other side's is untouched.
func (s *MessagingService) Read(ctx context.Context, p domain.Principal, conversationID string) error {
	if _, err := s.participant(ctx, conversationID, p.UserID); err != nil {
		return err
	}
	return s.Conversations.ResetUnread(ctx, conversationID, p.UserID)
}

type ConversationView struct {
	domain.Conversation
	OtherUserID   string `json:"other_user_id"`
	OtherUserName string `json:"other_user_name"`
	Unread        int    `json:"unread_count"`
}

func (s *MessagingService) List(ctx context.Context, p domain.Principal) ([]ConversationView, error) {
	convs, err := s.Conversations.ListByParticipant(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]ConversationView, 0, len(convs))
	for _, c := range convs {
		v := ConversationView{Conversation: c, OtherUserID: c.Other(p.UserID), Unread: c.UnreadFor(p.UserID)}
		if c.IsBuyer(p.UserID) {
			v.OtherUserName = c.SellerName
			if c.ShopName != "" {
				v.OtherUserName = c.ShopName
			}
		} else {
			v.OtherUserName = c.BuyerName
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *MessagingService) UnreadTotal(ctx context.Context, p domain.Principal) (int, error) {
	return s.Conversations.UnreadTotal(ctx, p.UserID)
}

// Delete removes the conversation and its messages for both participants.
func (s *MessagingService) Delete(ctx context.Context, p domain.Principal, conversationID string) error {
	if _, err := s.participant(ctx, conversationID, p.UserID); err != nil {
		return err
	}
	return s.Conversations.Delete(ctx, conversationID)
}
