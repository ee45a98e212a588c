package router

import (
	"github.com/gofiber/fiber/v2"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get("/healthz", h.main.HandleHealth)
	app.Get("/pricing", h.main.HandlePricing)

	// Auth
	app.Get("/logout", h.auth.HandleLogout)
	app.Get("/activate", h.auth.HandleActivate)

	// Social OAuth
	app.Get("/auth/:provider", h.oauth.HandleBegin)
	app.Get("/auth/:provider/callback", h.oauth.HandleCallback)

	// Billing provider webhooks (no CSRF, signature-verified by the billing service)
	app.Post("/webhooks/stripe", h.billing.HandleStripeWebhook)
}
