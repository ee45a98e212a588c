package controllers

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/SaaSFox/internal/pkg/apperrors"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/billing"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/middleware"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/usercontext"
)

type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) CreateCheckout(ctx context.Context, userID uint, priceID string) (*billing.CheckoutResult, error) {
	args := m.Called(ctx, userID, priceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CheckoutResult), args.Error(1)
}

func (m *MockBillingService) CreatePortalSession(ctx context.Context, userID uint) (*billing.PortalResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PortalResult), args.Error(1)
}

func (m *MockBillingService) GetSubscriptionStatus(ctx context.Context, userID uint) (*billing.SubscriptionStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.SubscriptionStatus), args.Error(1)
}

func (m *MockBillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*billing.WebhookResult, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.WebhookResult), args.Error(1)
}

// as attaches a fixed identity the way the session middleware would.
func as(uc usercontext.UserContext) fiber.Handler {
	return func(c *fiber.Ctx) error {
		usercontext.Attach(c, uc)
		return c.Next()
	}
}

var (
	member = usercontext.UserContext{UserID: 7, Username: "Ada", Role: "user", IsLoggedIn: true}
	admin  = usercontext.UserContext{UserID: 1, Username: "Root", Role: "admin", IsLoggedIn: true, IsAdmin: true}
)

func newBillingApp(svc BillingService, uc usercontext.UserContext) *fiber.App {
	bc := NewBillingController(svc)
	app := fiber.New(fiber.Config{ErrorHandler: apperrors.ErrorHandler})
	app.Use(as(uc))
	app.Post("/webhooks/stripe", bc.HandleStripeWebhook)
	api := app.Group("/api/billing", middleware.RequireAPIAuth)
	api.Get("/subscription", bc.APISubscription)
	api.Post("/checkout", bc.APICheckout)
	api.Post("/portal", bc.APIPortal)
	app.Post("/billing/checkout", middleware.RequireAuth, bc.HandleCheckout)
	return app
}

func readBody(t *testing.T, body io.Reader) string {
	t.Helper()
	b, err := io.ReadAll(body)
	require.NoError(t, err)
	return string(b)
}

func TestStripeWebhookResponses(t *testing.T) {
	tests := []struct {
		name   string
		result *billing.WebhookResult
		err    error
		status int
		body   string
	}{
		{
			name:   "applied",
			result: &billing.WebhookResult{Received: true, Outcome: billing.OutcomeApplied},
			status: fiber.StatusOK,
			body:   `"received":true`,
		},
		{
			name:   "duplicate",
			result: &billing.WebhookResult{Received: true, Duplicate: true, Outcome: billing.OutcomeDuplicate},
			status: fiber.StatusOK,
			body:   `"duplicate":true`,
		},
		{
			name:   "bad signature",
			err:    apperrors.Wrap(apperrors.ErrInvalidInput, "invalid_signature", billing.ErrInvalidSignature),
			status: fiber.StatusBadRequest,
			body:   `"error":"invalid_signature"`,
		},
		{
			name:   "store failure",
			err:    errors.New("apply webhook event evt_1: database is locked"),
			status: fiber.StatusInternalServerError,
			body:   `"error":"webhook_processing_failed"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockBillingService)
			var result interface{}
			if tt.result != nil {
				result = tt.result
			}
			svc.On("HandleWebhook", mock.Anything, []byte(`{"id":"evt_1"}`), "t=1,v1=abc").Return(result, tt.err)
			app := newBillingApp(svc, usercontext.Anonymous)

			req := httptest.NewRequest("POST", "/webhooks/stripe", strings.NewReader(`{"id":"evt_1"}`))
			req.Header.Set("Stripe-Signature", "t=1,v1=abc")
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req, -1)
			require.NoError(t, err)

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Contains(t, readBody(t, resp.Body), tt.body)
			svc.AssertExpectations(t)
		})
	}
}

func TestSubscriptionAPI(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		svc := new(MockBillingService)
		app := newBillingApp(svc, usercontext.Anonymous)

		resp, err := app.Test(httptest.NewRequest("GET", "/api/billing/subscription", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		svc.AssertNotCalled(t, "GetSubscriptionStatus", mock.Anything, mock.Anything)
	})

	t.Run("none", func(t *testing.T) {
		svc := new(MockBillingService)
		svc.On("GetSubscriptionStatus", mock.Anything, uint(7)).Return(&billing.SubscriptionStatus{Status: "none"}, nil)
		app := newBillingApp(svc, member)

		resp, err := app.Test(httptest.NewRequest("GET", "/api/billing/subscription", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"status":"none","plan":null}`, readBody(t, resp.Body))
	})

	t.Run("active", func(t *testing.T) {
		svc := new(MockBillingService)
		svc.On("GetSubscriptionStatus", mock.Anything, uint(7)).
			Return(&billing.SubscriptionStatus{Status: "active", Plan: billing.PlanFor("active")}, nil)
		app := newBillingApp(svc, member)

		resp, err := app.Test(httptest.NewRequest("GET", "/api/billing/subscription", nil), -1)
		require.NoError(t, err)
		assert.JSONEq(t, `{"status":"active","plan":"pro"}`, readBody(t, resp.Body))
	})
}

func TestCheckoutAPI(t *testing.T) {
	svc := new(MockBillingService)
	svc.On("CreateCheckout", mock.Anything, uint(7), "price_yearly").
		Return(&billing.CheckoutResult{URL: "https://checkout.stripe.com/c/pay/cs_1"}, nil)
	svc.On("CreatePortalSession", mock.Anything, uint(7)).Return(nil, apperrors.NotFound("No billing account found"))
	app := newBillingApp(svc, member)

	req := httptest.NewRequest("POST", "/api/billing/checkout", strings.NewReader(`{"price_id":"price_yearly"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"url":"https://checkout.stripe.com/c/pay/cs_1"}`, readBody(t, resp.Body))

	resp, err = app.Test(httptest.NewRequest("POST", "/api/billing/portal", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"not_found","message":"No billing account found"}`, readBody(t, resp.Body))
}

func TestCheckoutAPIUpstreamFailure(t *testing.T) {
	svc := new(MockBillingService)
	svc.On("CreateCheckout", mock.Anything, uint(7), "").
		Return(nil, apperrors.Upstream("Failed to create checkout session", errors.New("api key invalid")))
	app := newBillingApp(svc, member)

	resp, err := app.Test(httptest.NewRequest("POST", "/api/billing/checkout", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	assert.NotContains(t, readBody(t, resp.Body), "api key invalid")
}

func TestWebCheckoutRedirects(t *testing.T) {
	svc := new(MockBillingService)
	svc.On("CreateCheckout", mock.Anything, uint(7), "").
		Return(&billing.CheckoutResult{URL: "http://localhost:4000/dashboard?success=true&session_id=mock_session_7"}, nil)

	resp, err := newBillingApp(svc, member).Test(httptest.NewRequest("POST", "/billing/checkout", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "http://localhost:4000/dashboard?success=true&session_id=mock_session_7", resp.Header.Get("Location"))

	resp, err = newBillingApp(svc, usercontext.Anonymous).Test(httptest.NewRequest("POST", "/billing/checkout", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}
