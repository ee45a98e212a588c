package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	KeyUserContext   = "USER_CONTEXT"
	KeyUserID        = "user_id"
	KeyUsername      = "username"
	KeyEmail         = "email"
	KeyRole          = "role"
	KeyEmailVerified = "email_verified"
	KeyExpiresAt     = "expires_at"
	KeyRefreshedAt   = "refreshed_at"
	KeyCachedAt      = "cached_at"
)
