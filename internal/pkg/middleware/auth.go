package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/SaaSFox/internal/pkg/apperrors"
	icuser "github.com/ManuelReschke/SaaSFox/internal/pkg/usercontext"
)

// Capability is what a guarded operation requires from the caller.
type Capability int

const (
	Authenticated Capability = iota
	Admin
)

// Authorize checks uc against a capability. It returns an Unauthorized error
// for anonymous callers and a Forbidden error for non-admins on admin routes.
func Authorize(uc icuser.UserContext, capability Capability) error {
	if !uc.IsLoggedIn {
		return apperrors.Unauthorized("Unauthorized")
	}
	if capability == Admin && !uc.IsAdmin {
		return apperrors.Forbidden("Forbidden: Admins only")
	}
	return nil
}

// RequireAuth ensures a logged-in web session; redirects to /login if missing.
func RequireAuth(c *fiber.Ctx) error {
	if err := Authorize(icuser.GetUserContext(c), Authenticated); err != nil {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireAdmin ensures a logged-in admin; redirects otherwise.
func RequireAdmin(c *fiber.Ctx) error {
	switch err := Authorize(icuser.GetUserContext(c), Admin); {
	case err == nil:
		return c.Next()
	case icuser.IsLoggedIn(c):
		return c.Redirect("/", fiber.StatusSeeOther)
	default:
		return c.Redirect("/login", fiber.StatusSeeOther)
	}
}

// RequireAPIAuth fails API requests without a session before the handler runs.
func RequireAPIAuth(c *fiber.Ctx) error {
	if err := Authorize(icuser.GetUserContext(c), Authenticated); err != nil {
		return err
	}
	return c.Next()
}

// RequireAPIAdmin fails API requests from anonymous callers and non-admins.
func RequireAPIAdmin(c *fiber.Ctx) error {
	if err := Authorize(icuser.GetUserContext(c), Admin); err != nil {
		return err
	}
	return c.Next()
}
