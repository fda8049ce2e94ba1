package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"makiti/internal/domain"
	"makiti/internal/metrics"
)

// InAppStore receives in-app notifications. Create must ignore an id it has
// already stored so that redelivery is harmless.
type InAppStore interface {
	Create(ctx context.Context, n domain.Notification) error
}

// Renderer turns a template name and its data into a subject and HTML body.
type Renderer interface {
	Render(name string, data map[string]any) (string, string, error)
}

type DispatcherConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// Dispatcher drains the outbox on a schedule.
type Dispatcher struct {
	store    *Store
	inApp    InAppStore
	mailer   Mailer
	renderer Renderer
	logger   *zap.Logger
	cron     *cron.Cron
	cfg      DispatcherConfig
}

func NewDispatcher(store *Store, inApp InAppStore, mailer Mailer, renderer Renderer, logger *zap.Logger, cfg DispatcherConfig) *Dispatcher {
	if cfg.Interval < time.Second {
		cfg.Interval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		store:    store,
		inApp:    inApp,
		mailer:   mailer,
		renderer: renderer,
		logger:   logger,
		cfg:      cfg,
		cron:     cron.New(cron.WithSeconds()),
	}
	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = d.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := d.Drain(ctx); err != nil {
			d.logger.Error("outbox.drain.failed", zap.Error(err))
		}
	})
	return d
}

func (d *Dispatcher) Start() {
	if d == nil || d.cron == nil {
		return
	}
	d.cron.Start()
	d.logger.Info("outbox.dispatcher.started", zap.Duration("interval", d.cfg.Interval))
}

// Stop waits for a running drain to finish or ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) {
	if d == nil || d.cron == nil {
		return
	}
	stopCtx := d.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	d.logger.Info("outbox.dispatcher.stopped")
}

// Drain delivers one batch. A failed item is requeued with its retry count
// bumped, or dropped once it reaches MaxRetries.
func (d *Dispatcher) Drain(ctx context.Context) error {
	if d == nil || d.store == nil {
		return nil
	}
	items, err := d.store.Pending(d.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil
		}
		log := d.logger.With(zap.String("item_id", item.ID), zap.String("kind", item.Kind))
		if err := d.deliver(ctx, item); err != nil {
			item.Retries++
			if item.Retries >= d.cfg.MaxRetries {
				log.Error("outbox.item.dropped", zap.Int("retries", item.Retries), zap.Error(err))
				metrics.RecordDispatch(item.Kind, "dropped")
				if err := d.store.Ack(item); err != nil {
					log.Warn("outbox.item.ack_failed", zap.Error(err))
				}
				continue
			}
			log.Warn("outbox.item.retry", zap.Int("retries", item.Retries), zap.Error(err))
			metrics.RecordDispatch(item.Kind, "retry")
			if err := d.store.Retry(item, time.Now()); err != nil {
				log.Error("outbox.item.requeue_failed", zap.Error(err))
			}
			continue
		}
		metrics.RecordDispatch(item.Kind, "delivered")
		if err := d.store.Ack(item); err != nil {
			log.Warn("outbox.item.ack_failed", zap.Error(err))
		}
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, item Item) error {
	switch item.Kind {
	case KindInApp:
		return d.inApp.Create(ctx, domain.Notification{
			ID:        item.ID,
			UserID:    item.UserID,
			Type:      item.Type,
			Title:     item.Title,
			Message:   item.Message,
			CreatedAt: domain.Stamp(item.Created),
		})
	case KindEmail:
		subject, body, err := d.renderer.Render(item.Template, item.Data)
		if err != nil {
			return err
		}
		return d.mailer.Send(ctx, Mail{To: item.Recipient, Subject: subject, HTML: body})
	default:
		return fmt.Errorf("unsupported outbox item kind %q", item.Kind)
	}
}

// Size reports how many items are waiting.
func (d *Dispatcher) Size() int {
	if d == nil || d.store == nil {
		return 0
	}
	n, err := d.store.Len()
	if err != nil {
		return 0
	}
	return n
}
