package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/SaaSFox/internal/pkg/usercontext"
)

// IdentityResolver resolves the caller of a request, nil meaning anonymous.
type IdentityResolver interface {
	Resolve(c *fiber.Ctx) (*usercontext.UserContext, error)
}

// UserContextMiddleware sets up the user context for every request.
// Failures to read the session degrade to an anonymous caller.
func UserContextMiddleware(resolver IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Goth keeps its own session store on /auth/*; skip ours there.
		if strings.HasPrefix(c.Path(), "/auth/") {
			usercontext.Attach(c, usercontext.Anonymous)
			return c.Next()
		}

		uc, err := resolver.Resolve(c)
		if err != nil {
			fiberlog.Warnf("session resolve failed: %v", err)
		}
		if err != nil || uc == nil {
			usercontext.Attach(c, usercontext.Anonymous)
			return c.Next()
		}

		usercontext.Attach(c, *uc)
		return c.Next()
	}
}
