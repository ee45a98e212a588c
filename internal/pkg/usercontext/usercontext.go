package usercontext

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// UserContext represents the complete user context for a request
type UserContext struct {
	UserID           uint      `json:"user_id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	EmailVerified    bool      `json:"email_verified"`
	IsLoggedIn       bool      `json:"is_logged_in"`
	IsAdmin          bool      `json:"is_admin"`
	SessionExpiresAt time.Time `json:"session_expires_at"`
}

// Anonymous is the context of a request without a valid session.
var Anonymous = UserContext{}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying uc.
func NewContext(ctx context.Context, uc UserContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, uc)
}

// FromContext returns the identity attached by NewContext, or Anonymous.
func FromContext(ctx context.Context) UserContext {
	if ctx == nil {
		return Anonymous
	}
	if uc, ok := ctx.Value(ctxKey{}).(UserContext); ok {
		return uc
	}
	return Anonymous
}

// Attach stores uc in the fiber locals and the request context.
func Attach(c *fiber.Ctx, uc UserContext) {
	c.Locals(KeyUserContext, uc)
	c.SetUserContext(NewContext(c.UserContext(), uc))
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if uc, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return uc
	}
	return Anonymous
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}
