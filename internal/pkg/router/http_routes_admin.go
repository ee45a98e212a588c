package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/SaaSFox/internal/pkg/middleware"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin", middleware.RequireAdmin)
	adminGroup.Get("/", h.admin.HandleUsers)
	adminGroup.Post("/users/:id/role", h.admin.HandleSetRole)
}
