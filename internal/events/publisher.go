package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"makiti/internal/domain"
)

// Publisher sends order events to a durable topic exchange, routed by event type.
type Publisher struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	channel  *amqp.Channel
	exchange string
	log      *zap.Logger
}

func Dial(url, exchange string, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	logger.Info("events.connected", zap.String("exchange", exchange))
	return &Publisher{conn: conn, channel: ch, exchange: exchange, log: logger}, nil
}

func newPublishing(ev domain.OrderEvent) (amqp.Publishing, error) {
	ts := time.Now().UTC()
	if ev.Occurred == "" {
		ev.Occurred = domain.Stamp(ts)
	} else if parsed, err := time.Parse(time.RFC3339, ev.Occurred); err == nil {
		ts = parsed
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    ts,
		ContentType:  "application/json",
		Type:         ev.Type,
		MessageId:    ev.OrderID + ":" + ev.Type + ":" + string(ev.Status),
		Body:         body,
	}, nil
}

func (p *Publisher) PublishOrderEvent(ctx context.Context, ev domain.OrderEvent) error {
	msg, err := newPublishing(ev)
	if err != nil {
		return err
	}
	// amqp channels are not safe for concurrent publishes
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.PublishWithContext(ctx,
		p.exchange,
		ev.Type, // routing key
		false,   // mandatory
		false,   // immediate
		msg,
	)
}

func (p *Publisher) Close() {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Warn("events.channel.close_failed", zap.Error(err))
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			p.log.Warn("events.conn.close_failed", zap.Error(err))
		}
	}
}

// Nop drops every event; used when no broker is configured.
type Nop struct{}

func (Nop) PublishOrderEvent(context.Context, domain.OrderEvent) error { return nil }
