package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/SaaSFox/app/controllers"
	"github.com/ManuelReschke/SaaSFox/app/repository"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/billing"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/roles"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/session"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/statistics"
)

// Router registers a set of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the services the routes are wired to. Nil storages fall
// back to in-memory storage.
type Dependencies struct {
	Repos          *repository.Repositories
	Sessions       *session.Manager
	Billing        *billing.Service
	Roles          *roles.Manager
	Statistics     *statistics.Service
	OAuthStorage   fiber.Storage
	LimiterStorage fiber.Storage
	HealthChecks   map[string]controllers.HealthCheck
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	// HttpRouter installs the identity and CSRF middleware the API routes rely on,
	// so it goes first.
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
