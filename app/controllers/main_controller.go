package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/SaaSFox/internal/pkg/billing"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/usercontext"
	"github.com/ManuelReschke/SaaSFox/views"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// MainController serves the public pages and the health endpoint.
type MainController struct {
	billing BillingService
	checks  map[string]HealthCheck
}

func NewMainController(svc BillingService, checks map[string]HealthCheck) *MainController {
	return &MainController{billing: svc, checks: checks}
}

func (mc *MainController) HandleHome(c *fiber.Ctx) error {
	return render(c, views.Home(pageData(c, "")))
}

func (mc *MainController) HandlePricing(c *fiber.Ctx) error {
	p := pageData(c, " | Pricing")
	if c.Query("canceled") == "true" && p.Flash["message"] == nil {
		p.Flash = fiber.Map{"type": "info", "message": "Checkout canceled. You have not been charged."}
	}

	var status *billing.SubscriptionStatus
	if p.User.IsLoggedIn {
		st, err := mc.billing.GetSubscriptionStatus(c.UserContext(), usercontext.GetUserID(c))
		if err != nil {
			fiberlog.Warnf("pricing: failed to load subscription of user %d: %v", p.User.UserID, err)
		} else {
			status = st
		}
	}
	return render(c, views.Pricing(p, status))
}

// HandleHealth pings every dependency and answers 503 if one is down.
func (mc *MainController) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	status := fiber.StatusOK
	result := fiber.Map{}
	for name, check := range mc.checks {
		if err := check(ctx); err != nil {
			fiberlog.Warnf("health: %s: %v", name, err)
			result[name] = "down"
			status = fiber.StatusServiceUnavailable
			continue
		}
		result[name] = "ok"
	}
	return c.Status(status).JSON(fiber.Map{"status": statusText(status), "checks": result})
}

func statusText(status int) string {
	if status == fiber.StatusOK {
		return "ok"
	}
	return "degraded"
}
