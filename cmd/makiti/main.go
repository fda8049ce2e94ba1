package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"makiti/internal/config"
	"makiti/internal/events"
	"makiti/internal/http/handlers"
	applog "makiti/internal/log"
	"makiti/internal/metrics"
	"makiti/internal/notify"
	"makiti/internal/repos"
	"makiti/internal/services"
)

func main() {
	cfg := config.Load()

	zl, err := applog.New(applog.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	applog.SetBase(zl)

	if cfg.JWT.Secret == "" {
		zl.Fatal("config.invalid", zap.String("reason", "JWT_SECRET is required"))
	}

	db, err := repos.OpenDB(cfg.DBDSN, cfg.SeedDemo)
	if err != nil {
		zl.Fatal("db.open", zap.Error(err))
	}

	store, err := notify.Open(cfg.Outbox.Path)
	if err != nil {
		zl.Fatal("outbox.open", zap.Error(err))
	}
	outbox := notify.NewOutbox(store)

	// Order events are optional; without a broker they are dropped.
	var orderEvents services.OrderEvents = events.Nop{}
	var publisher *events.Publisher
	if cfg.Events.URL != "" {
		publisher, err = events.Dial(cfg.Events.URL, cfg.Events.Exchange, zl)
		if err != nil {
			zl.Fatal("events.dial", zap.Error(err))
		}
		orderEvents = publisher
	} else {
		zl.Info("events.disabled", zap.String("reason", "RABBITMQ_URL not set"))
	}

	deps := handlers.NewDeps(db, cfg, outbox, orderEvents, zl)

	tpl, err := notify.LoadTemplates()
	if err != nil {
		zl.Fatal("templates.load", zap.Error(err))
	}
	var mailer notify.Mailer = notify.LogMailer{Log: zl}
	if cfg.SMTP.Enabled() {
		mailer = &notify.SMTPMailer{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			User:      cfg.SMTP.User,
			Password:  cfg.SMTP.Password,
			FromEmail: cfg.SMTP.FromEmail,
			FromName:  cfg.SMTP.FromName,
		}
	}
	dispatcher := notify.NewDispatcher(store, deps.Notifications, mailer, tpl, zl, notify.DispatcherConfig{
		Interval:   cfg.Outbox.Interval,
		BatchSize:  cfg.Outbox.BatchSize,
		MaxRetries: cfg.Outbox.MaxRetries,
	})
	dispatcher.Start()

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    cfg.BodyLimit,
	})

	// ---------- Middlewares ----------
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(handlers.RateLimiter(cfg.Limit))
	app.Use(metrics.Middleware())
	app.Use(handlers.RequestContext(cfg.Timeouts.Request))

	app.Get("/healthz", handlers.Health)
	app.Get("/metrics", metrics.Handler())

	handlers.Routes(app, deps)

	go func() {
		zl.Info("server.start", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := app.Listen(":" + cfg.Port); err != nil {
			zl.Error("server.listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	zl.Info("server.shutdown")

	if err := app.ShutdownWithTimeout(cfg.Timeouts.Shutdown); err != nil {
		zl.Error("server.shutdown", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()
	dispatcher.Stop(ctx)
	if err := store.Close(); err != nil {
		zl.Error("outbox.close", zap.Error(err))
	}
	if publisher != nil {
		publisher.Close()
	}
	if err := db.Close(); err != nil {
		zl.Error("db.close", zap.Error(err))
	}
}
