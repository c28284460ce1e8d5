package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/binkeyit/storefront/internal/api/http"
	"github.com/binkeyit/storefront/internal/api/http/handlers"
	"github.com/binkeyit/storefront/internal/auth"
	"github.com/binkeyit/storefront/internal/config"
	"github.com/binkeyit/storefront/internal/events"
	"github.com/binkeyit/storefront/internal/observability"
	"github.com/binkeyit/storefront/internal/repository/repofake"
	"github.com/binkeyit/storefront/internal/service"
)

const (
	testEmail    = "jane@example.com"
	testPassword = "s3cret-pass"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testApp struct {
	app   *fiber.App
	users *repofake.FakeUserRepo
	auth  *service.AuthService
	clock *clock
}

func newTestApp(t *testing.T, enforce bool) *testApp {
	t.Helper()

	cfg := config.Config{
		App: config.AppConfig{Name: "storefront", Version: "test", FrontendURL: "https://shop.example.com"},
		Auth: config.AuthConfig{
			AccessTokenSecret:        "access-secret",
			RefreshTokenSecret:       "refresh-secret",
			AccessTokenTTLMinutes:    5 * 60,
			RefreshTokenTTLMinutes:   7 * 24 * 60,
			BcryptCost:               4,
			OTPTTLMinutes:            60,
			OTPVerifiedTTLMinutes:    15,
			CookieSecure:             true,
			EnforceRefreshRevocation: enforce,
		},
	}

	ta := &testApp{
		users: repofake.NewFakeUserRepo(),
		clock: &clock{now: time.Now()},
	}
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, service.NewLogEmailSender(logger), logger, cfg.Notification).RegisterHandlers()

	ta.auth = service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:          ta.users,
		PasswordResetRepo: repofake.NewFakePasswordResetRepo(),
		Dispatcher:        dispatcher,
		Metrics:           metrics,
		Logger:            logger,
		TokenOptions:      []auth.Option{auth.WithClock(ta.clock.Now)},
	})

	ta.app = fiber.New()
	httptransport.RegisterMiddlewares(ta.app, logger, metrics, httptransport.MiddlewareConfig{
		AllowOrigin: cfg.App.FrontendURL,
	})
	httptransport.RegisterRoutes(ta.app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, nil),
		Users:          handlers.NewUsersHandler(ta.auth, cfg.Auth.CookieSecure),
		AuthMiddleware: auth.NewAuthMiddleware(ta.auth.TokenIssuer(), ta.users),
		Metrics:        metrics,
	})

	_, err := ta.auth.RegisterUser(context.Background(), "Jane", testEmail, testPassword)
	require.NoError(t, err)
	return ta
}

type envelope struct {
	Message string          `json:"message"`
	Error   bool            `json:"error"`
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func (ta *testApp) do(t *testing.T, method, path string, body any, header map[string]string) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &env))
	}
	return resp, env
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
