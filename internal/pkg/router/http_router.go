package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/SaaSFox/app/controllers"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/middleware"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/oauth"
)

type HttpRouter struct {
	deps    Dependencies
	main    *controllers.MainController
	auth    *controllers.AuthController
	oauth   *controllers.OAuthController
	user    *controllers.UserController
	billing *controllers.BillingController
	admin   *controllers.AdminController
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init oauth providers
	oauth.Setup(h.deps.OAuthStorage)

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware(h.deps.Sessions))
	app.Use(newCSRF())

	h.registerPublicRoutes(app)
	h.registerAdminRoutes(app)
	h.registerCSRFProtectedRoutes(app)
}

func NewHttpRouter(deps Dependencies) *HttpRouter {
	return &HttpRouter{
		deps:    deps,
		main:    controllers.NewMainController(deps.Billing, deps.HealthChecks),
		auth:    controllers.NewAuthController(deps.Repos, deps.Sessions),
		oauth:   controllers.NewOAuthController(deps.Repos, deps.Sessions),
		user:    controllers.NewUserController(deps.Repos, deps.Billing, deps.Roles, deps.Sessions),
		billing: controllers.NewBillingController(deps.Billing),
		admin:   controllers.NewAdminController(deps.Roles, deps.Statistics),
	}
}
