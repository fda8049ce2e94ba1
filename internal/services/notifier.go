package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"makiti/internal/domain"
	applog "makiti/internal/log"
)

// notifier fires best-effort side effects. Failures are logged and dropped.
type notifier struct {
	sink   NotificationSink
	events OrderEvents
	log    *zap.Logger
}

func newNotifier(sink NotificationSink, events OrderEvents, logger *zap.Logger) notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return notifier{sink: sink, events: events, log: logger}
}

func (n notifier) email(ctx context.Context, template, to string, data map[string]any, fields ...zap.Field) {
	if n.sink == nil || to == "" {
		return
	}
	if err := n.sink.EnqueueEmail(ctx, template, to, data); err != nil {
		applog.WithRequestID(ctx, n.log).Warn("notify.email.failed",
			append(fields, zap.String("template", template), zap.Error(err))...)
	}
}

func (n notifier) inApp(ctx context.Context, userID string, typ domain.NotificationType, title, message string, fields ...zap.Field) {
	if n.sink == nil || userID == "" {
		return
	}
	if err := n.sink.CreateInApp(ctx, userID, typ, title, message); err != nil {
		applog.WithRequestID(ctx, n.log).Warn("notify.in_app.failed",
			append(fields, zap.String("user_id", userID), zap.String("type", string(typ)), zap.Error(err))...)
	}
}

func (n notifier) publish(ctx context.Context, typ string, o *domain.Order) {
	if n.events == nil {
		return
	}
	ev := domain.OrderEvent{
		Type:     typ,
		OrderID:  o.ID,
		UserID:   o.UserID,
		Status:   o.Status,
		Total:    o.Total,
		Occurred: domain.Stamp(time.Now()),
	}
	if err := n.events.PublishOrderEvent(ctx, ev); err != nil {
		applog.WithRequestID(ctx, n.log).Warn("events.publish.failed",
			zap.String("event", typ), zap.String("order_id", o.ID), zap.Error(err))
	}
}

// detached keeps request values but outlives the request, for work that must
// run after a commit even if the caller went away.
func detached(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), d)
}

// preview shortens s to n runes, marking the cut with "...".
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
