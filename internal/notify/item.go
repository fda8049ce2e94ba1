package notify

import (
	"time"

	"github.com/google/uuid"

	"makiti/internal/domain"
)

const (
	KindEmail = "email"
	KindInApp = "in_app"
)

// Item is one pending side effect in the outbox.
type Item struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Priority  int       `json:"priority"`
	Retries   int       `json:"retries"`
	Due       time.Time `json:"due"`
	Created   time.Time `json:"created"`

	// email
	Template  string         `json:"template,omitempty"`
	Recipient string         `json:"recipient,omitempty"`
	Data      map[string]any `json:"data,omitempty"`

	// in-app
	UserID  string                  `json:"user_id,omitempty"`
	Type    domain.NotificationType `json:"type,omitempty"`
	Title   string                  `json:"title,omitempty"`
	Message string                  `json:"message,omitempty"`
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Priority <= 0 || i.Priority > 9 {
		i.Priority = 3
	}
	if i.Due.IsZero() {
		i.Due = time.Now()
	}
	if i.Created.IsZero() {
		i.Created = i.Due
	}
}
