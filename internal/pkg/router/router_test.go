package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/SaaSFox/app/controllers"
	"github.com/ManuelReschke/SaaSFox/app/repository"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/apperrors"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/billing"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/database"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/roles"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/session"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/statistics"
)

func newTestApp(t *testing.T, checks map[string]controllers.HealthCheck) *fiber.App {
	t.Helper()
	db := database.NewTestDB(t)
	repos := repository.NewRepositories(db)
	cfg := billing.Config{MockPayments: true, AllowMock: true, BaseURL: "http://localhost:4000"}

	app := fiber.New(fiber.Config{ErrorHandler: apperrors.ErrorHandler})
	InstallRouter(app, Dependencies{
		Repos:        repos,
		Sessions:     session.NewManager(session.NewStore(nil), repos.User),
		Billing:      billing.NewService(cfg, billing.NewGateway(cfg), repos.User, billing.NewRepository(db)),
		Roles:        roles.NewManager(repos.User),
		Statistics:   statistics.NewService(db, nil),
		HealthChecks: checks,
	})
	return app
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func TestWebhookBypassesCSRF(t *testing.T) {
	app := newTestApp(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode(t, resp)["received"])
}

func TestUnsafeAPIRequestWithoutTokenIsRejected(t *testing.T) {
	app := newTestApp(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/billing/checkout", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAnonymousSession(t *testing.T) {
	app := newTestApp(t, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/session", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	assert.Nil(t, body["user"])
	assert.Nil(t, body["session"])
	assert.NotEmpty(t, body["csrf_token"])
}

func TestProtectedRoutesAnonymous(t *testing.T) {
	app := newTestApp(t, nil)

	tests := []struct {
		path   string
		status int
	}{
		{"/api/admin/users", http.StatusUnauthorized},
		{"/api/billing/subscription", http.StatusUnauthorized},
		{"/api/users/1", http.StatusUnauthorized},
		{"/api/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestWebPagesRedirectAnonymous(t *testing.T) {
	app := newTestApp(t, nil)

	for _, path := range []string{"/dashboard", "/profile", "/admin"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, "/login", resp.Header.Get("Location"), path)
	}
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	resp, err := newTestApp(t, map[string]controllers.HealthCheck{"database": ok}).
		Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = newTestApp(t, map[string]controllers.HealthCheck{"database": ok, "cache": down}).
		Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "down", body["checks"].(map[string]interface{})["cache"])
}

func TestAPILimiterIgnoresForwardedHeaders(t *testing.T) {
	app := newTestApp(t, nil)

	limited := 0
	for i := 0; i < 70; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i))
		req.Header.Set("CF-Connecting-IP", fmt.Sprintf("192.0.2.%d", i))
		resp, err := app.Test(req)
		require.NoError(t, err)
		if resp.StatusCode == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 10, limited)
}

func TestLoginLimiterIgnoresForwardedHeaders(t *testing.T) {
	app := newTestApp(t, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/session", nil))
	require.NoError(t, err)
	token, _ := decode(t, resp)["csrf_token"].(string)
	require.NotEmpty(t, token)

	var messages []string
	for i := 0; i < 11; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("email=a%40example.com&password=wrong+password"))
		req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
		req.Header.Set("X-Csrf-Token", token)
		req.AddCookie(&http.Cookie{Name: "csrf_", Value: token})
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		messages = append(messages, flashCookie(t, resp))
	}
	assert.NotContains(t, messages[9], "Too many attempts")
	assert.Contains(t, messages[10], "Too many attempts")
}

func flashCookie(t *testing.T, resp *http.Response) string {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == "fiber-app-flash" {
			v, err := url.QueryUnescape(c.Value)
			require.NoError(t, err)
			return v
		}
	}
	return ""
}
