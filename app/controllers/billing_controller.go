package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/SaaSFox/internal/pkg/apperrors"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/billing"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/usercontext"
)

const (
	checkoutTimeout = 20 * time.Second
	webhookTimeout  = 15 * time.Second
)

// BillingService is the billing surface used by the HTTP layer.
type BillingService interface {
	CreateCheckout(ctx context.Context, userID uint, priceID string) (*billing.CheckoutResult, error)
	CreatePortalSession(ctx context.Context, userID uint) (*billing.PortalResult, error)
	GetSubscriptionStatus(ctx context.Context, userID uint) (*billing.SubscriptionStatus, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*billing.WebhookResult, error)
}

type BillingController struct {
	billing BillingService
}

func NewBillingController(svc BillingService) *BillingController {
	return &BillingController{billing: svc}
}

type checkoutRequest struct {
	PriceID string `json:"price_id" form:"price_id"`
}

// HandleCheckout starts a checkout from the pricing or dashboard form.
func (bc *BillingController) HandleCheckout(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), checkoutTimeout)
	defer cancel()

	res, err := bc.billing.CreateCheckout(ctx, usercontext.GetUserID(c), c.FormValue("price_id"))
	if err != nil {
		fiberlog.Errorf("billing: checkout for user %d failed: %v", usercontext.GetUserID(c), err)
		return redirectWithError(c, "/pricing", apperrors.Message(err))
	}
	return c.Redirect(res.URL, fiber.StatusSeeOther)
}

// HandlePortal redirects to the self-service billing portal.
func (bc *BillingController) HandlePortal(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), checkoutTimeout)
	defer cancel()

	res, err := bc.billing.CreatePortalSession(ctx, usercontext.GetUserID(c))
	if err != nil {
		fiberlog.Warnf("billing: portal for user %d failed: %v", usercontext.GetUserID(c), err)
		return redirectWithError(c, "/dashboard", apperrors.Message(err))
	}
	return c.Redirect(res.URL, fiber.StatusSeeOther)
}

// APICheckout handles POST /api/billing/checkout.
func (bc *BillingController) APICheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.InvalidInput("Invalid request body")
		}
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), checkoutTimeout)
	defer cancel()

	res, err := bc.billing.CreateCheckout(ctx, usercontext.GetUserID(c), req.PriceID)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// APIPortal handles POST /api/billing/portal.
func (bc *BillingController) APIPortal(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), checkoutTimeout)
	defer cancel()

	res, err := bc.billing.CreatePortalSession(ctx, usercontext.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// APISubscription handles GET /api/billing/subscription.
func (bc *BillingController) APISubscription(c *fiber.Ctx) error {
	res, err := bc.billing.GetSubscriptionStatus(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// HandleStripeWebhook receives processor events. Rejected deliveries answer
// 400, processing failures 500 so the processor redelivers.
func (bc *BillingController) HandleStripeWebhook(c *fiber.Ctx) error {
	// fasthttp reuses the body buffer after the handler returns
	payload := append([]byte(nil), c.Body()...)
	signature := c.Get("Stripe-Signature")

	ctx, cancel := context.WithTimeout(c.UserContext(), webhookTimeout)
	defer cancel()

	res, err := bc.billing.HandleWebhook(ctx, payload, signature)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			fiberlog.Warnf("billing: webhook rejected from %s: %v", c.IP(), err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": apperrors.Message(err)})
		}
		fiberlog.Errorf("billing: webhook processing failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_processing_failed"})
	}
	return c.JSON(res)
}
