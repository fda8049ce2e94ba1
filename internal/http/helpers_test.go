package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"makiti/internal/config"
	"makiti/internal/domain"
	"makiti/internal/events"
	"makiti/internal/http/handlers"
	applog "makiti/internal/log"
	"makiti/internal/repos"
)

type captureSink struct {
	mu    sync.Mutex
	inApp []domain.Notification
	mails []string
}

func (s *captureSink) EnqueueEmail(_ context.Context, template, to string, _ map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mails = append(s.mails, template+"->"+to)
	return nil
}

func (s *captureSink) CreateInApp(_ context.Context, userID string, typ domain.NotificationType, title, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inApp = append(s.inApp, domain.Notification{UserID: userID, Type: typ, Title: title, Message: message})
	return nil
}

type testApp struct {
	app  *fiber.App
	deps *handlers.Deps
	db   *sqlx.DB
	sink *captureSink
	logs *observer.ObservedLogs
}

func testConfig() config.Config {
	return config.Config{
		DBDSN:             ":memory:",
		JWT:               config.JWTConfig{Secret: "test-secret", Issuer: "makiti-auth"},
		Timeouts:          config.TimeoutConfig{Request: 5 * time.Second, Store: 2 * time.Second, ReadRetries: 1},
		LowStockThreshold: 5,
	}
}

// newTestApp wires the seeded store and the real routes the way main does,
// with in-memory side-effect sinks.
func newTestApp(t *testing.T, extra ...func(*fiber.App)) *testApp {
	t.Helper()
	cfg := testConfig()
	db, err := repos.OpenDB(cfg.DBDSN, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	applog.SetBase(logger)
	t.Cleanup(func() { applog.SetBase(zap.NewNop()) })

	sink := &captureSink{}
	deps := handlers.NewDeps(db, cfg, sink, events.Nop{}, logger)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler, BodyLimit: 64 << 10})
	app.Use(requestid.New())
	app.Use(handlers.RequestContext(cfg.Timeouts.Request))
	for _, fn := range extra {
		fn(app)
	}
	handlers.Routes(app, deps)
	return &testApp{app: app, deps: deps, db: db, sink: sink, logs: logs}
}

func (a *testApp) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := a.deps.Verifier.Sign(userID, "", time.Hour)
	require.NoError(t, err)
	return tok
}

type result struct {
	Status int
	Body   map[string]any
	Raw    string
}

func (r result) errorKind() string {
	e, _ := r.Body["error"].(map[string]any)
	s, _ := e["kind"].(string)
	return s
}

// do sends a JSON request as userID ("" for anonymous).
func (a *testApp) do(t *testing.T, method, path, userID string, body any) result {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+a.token(t, userID))
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := result{Status: resp.StatusCode, Raw: string(raw)}
	_ = json.Unmarshal(raw, &out.Body)
	return out
}
