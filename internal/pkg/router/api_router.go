package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/SaaSFox/app/controllers"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/apperrors"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/env"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/middleware"
)

type ApiRouter struct {
	deps    Dependencies
	user    *controllers.UserController
	billing *controllers.BillingController
	admin   *controllers.AdminController
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", cors.New(cors.Config{
		AllowOrigins:     env.PublicBaseURL(),
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, X-Csrf-Token",
	}), limiter.New(limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
		Storage:    h.deps.LimiterStorage,
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests")
		},
	}))

	api.Get("/session", h.user.APISession)
	api.Get("/users/:id", middleware.RequireAPIAuth, h.user.APIGetUser)

	billingGroup := api.Group("/billing", middleware.RequireAPIAuth)
	billingGroup.Get("/subscription", h.billing.APISubscription)
	billingGroup.Post("/checkout", h.billing.APICheckout)
	billingGroup.Post("/portal", h.billing.APIPortal)

	adminGroup := api.Group("/admin", middleware.RequireAPIAdmin)
	adminGroup.Get("/users", h.admin.APIListUsers)
	adminGroup.Get("/stats", h.admin.APIStats)
	adminGroup.Patch("/users/:id/role", h.admin.APISetRole)

	api.Use(func(c *fiber.Ctx) error {
		return apperrors.NotFound("Not found")
	})
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{
		deps:    deps,
		user:    controllers.NewUserController(deps.Repos, deps.Billing, deps.Roles, deps.Sessions),
		billing: controllers.NewBillingController(deps.Billing),
		admin:   controllers.NewAdminController(deps.Roles, deps.Statistics),
	}
}
