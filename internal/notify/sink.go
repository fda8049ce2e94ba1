package notify

import (
	"context"

	"makiti/internal/domain"
)

const (
	priorityInApp = 1
	priorityEmail = 3
)

// Outbox is the NotificationSink used in production: it only records the
// side effect; the Dispatcher delivers it later.
type Outbox struct {
	Store *Store
}

func NewOutbox(store *Store) *Outbox { return &Outbox{Store: store} }

func (o *Outbox) EnqueueEmail(ctx context.Context, template, recipient string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return o.Store.Put(Item{
		Kind:      KindEmail,
		Priority:  priorityEmail,
		Template:  template,
		Recipient: recipient,
		Data:      data,
	})
}

func (o *Outbox) CreateInApp(ctx context.Context, userID string, typ domain.NotificationType, title, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return o.Store.Put(Item{
		Kind:     KindInApp,
		Priority: priorityInApp,
		UserID:   userID,
		Type:     typ,
		Title:    title,
		Message:  message,
	})
}
