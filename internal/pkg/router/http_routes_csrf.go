package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/SaaSFox/app/controllers"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/env"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/middleware"
)

// newCSRF protects every unsafe request except processor webhooks. Forms
// send the token as _csrf, API clients in the X-Csrf-Token header.
func newCSRF() fiber.Handler {
	fromHeader := csrf.CsrfFromHeader(csrf.HeaderName)
	fromForm := csrf.CsrfFromForm("_csrf")

	return csrf.New(csrf.Config{
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Extractor: func(c *fiber.Ctx) (string, error) {
			if token, err := fromHeader(c); err == nil {
				return token, nil
			}
			return fromForm(c)
		},
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/webhooks/")
		},
	})
}

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	formLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		Storage:    h.deps.LimiterStorage,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() != fiber.MethodPost
		},
		LimitReached: controllers.HandleFlashRateLimit,
	})

	group := app.Group("")
	group.Get("/", h.main.HandleHome)
	group.Get("/login", h.auth.ShowLogin)
	group.Post("/login", formLimiter, h.auth.HandleLogin)
	group.Get("/register", h.auth.ShowRegister)
	group.Post("/register", formLimiter, h.auth.HandleRegister)

	group.Get("/dashboard", middleware.RequireAuth, h.user.ShowDashboard)
	group.Get("/profile", middleware.RequireAuth, h.user.ShowProfile)
	group.Post("/profile", middleware.RequireAuth, h.user.HandleProfileUpdate)

	group.Post("/billing/checkout", middleware.RequireAuth, h.billing.HandleCheckout)
	group.Post("/billing/portal", middleware.RequireAuth, h.billing.HandlePortal)
}
