package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"gorm.io/gorm"

	"github.com/ManuelReschke/SaaSFox/app/models"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/env"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/usercontext"
)

const (
	CookieName = "session_id"
	// Lifetime is how long a session stays valid without activity.
	Lifetime = 7 * 24 * time.Hour
	// UpdateAge is how old a session must be before a request slides its expiry.
	UpdateAge = 24 * time.Hour
	// CacheWindow is how long the identity snapshot is trusted before the user row is re-read.
	CacheWindow = 5 * time.Minute
)

// UserLoader loads the current state of a user for the identity cache.
type UserLoader interface {
	GetByID(id uint) (*models.User, error)
}

// Manager issues, resolves and destroys server-side sessions.
type Manager struct {
	store *session.Store
	users UserLoader
	now   func() time.Time
}

type Option func(*Manager)

// WithClock replaces time.Now, used by tests to move through session lifetimes.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewStore creates the cookie-backed session store. A nil storage keeps
// sessions in memory.
func NewStore(storage fiber.Storage) *session.Store {
	return session.New(session.Config{
		Storage:        storage,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !env.IsDev(),
		Expiration:     Lifetime,
		KeyLookup:      "cookie:" + CookieName,
	})
}

func NewManager(store *session.Store, users UserLoader, opts ...Option) *Manager {
	m := &Manager{store: store, users: users, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SignIn starts a new session for user. The session id is always
// regenerated so a pre-login id can never be reused.
func (m *Manager) SignIn(c *fiber.Ctx, user *models.User) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if err := sess.Reset(); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}

	now := m.now()
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyExpiresAt, now.Add(Lifetime).Unix())
	sess.Set(usercontext.KeyRefreshedAt, now.Unix())
	setSnapshot(sess, user, now)
	sess.SetExpiry(Lifetime)

	return sess.Save()
}

// SignOut destroys the current session, if any.
func (m *Manager) SignOut(c *fiber.Ctx) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	return sess.Destroy()
}

// Refresh rewrites the identity snapshot of the current session after the
// user row changed. Sessions of other users are left alone.
func (m *Manager) Refresh(c *fiber.Ctx, user *models.User) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if id, ok := sess.Get(usercontext.KeyUserID).(uint); !ok || id != user.ID {
		return nil
	}
	setSnapshot(sess, user, m.now())
	return sess.Save()
}

// Resolve returns the identity bound to the request's session cookie. It
// returns nil without error for missing, expired or orphaned sessions.
func (m *Manager) Resolve(c *fiber.Ctx) (*usercontext.UserContext, error) {
	sess, err := m.store.Get(c)
	if err != nil {
		return nil, err
	}

	userID, ok := sess.Get(usercontext.KeyUserID).(uint)
	if !ok || userID == 0 {
		return nil, nil
	}

	now := m.now()
	expiresAt := time.Unix(int64Value(sess.Get(usercontext.KeyExpiresAt)), 0)
	if !now.Before(expiresAt) {
		return nil, sess.Destroy()
	}

	dirty := false
	if now.Sub(time.Unix(int64Value(sess.Get(usercontext.KeyCachedAt)), 0)) >= CacheWindow {
		user, err := m.users.GetByID(userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sess.Destroy()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to reload session user: %w", err)
		}
		setSnapshot(sess, user, now)
		dirty = true
	}

	if now.Sub(time.Unix(int64Value(sess.Get(usercontext.KeyRefreshedAt)), 0)) >= UpdateAge {
		expiresAt = now.Add(Lifetime)
		sess.Set(usercontext.KeyExpiresAt, expiresAt.Unix())
		sess.Set(usercontext.KeyRefreshedAt, now.Unix())
		sess.SetExpiry(Lifetime)
		dirty = true
	}

	// Save releases the session, so the snapshot is read first.
	uc := snapshot(sess, userID, expiresAt)
	if dirty {
		if err := sess.Save(); err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
	}

	return &uc, nil
}

func setSnapshot(sess *session.Session, user *models.User, now time.Time) {
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyEmail, user.Email)
	sess.Set(usercontext.KeyRole, user.Role)
	sess.Set(usercontext.KeyEmailVerified, user.EmailVerified)
	sess.Set(usercontext.KeyCachedAt, now.Unix())
}

func snapshot(sess *session.Session, userID uint, expiresAt time.Time) usercontext.UserContext {
	name, _ := sess.Get(usercontext.KeyUsername).(string)
	email, _ := sess.Get(usercontext.KeyEmail).(string)
	role, _ := sess.Get(usercontext.KeyRole).(string)
	verified, _ := sess.Get(usercontext.KeyEmailVerified).(bool)

	return usercontext.UserContext{
		UserID:           userID,
		Username:         name,
		Email:            email,
		Role:             role,
		EmailVerified:    verified,
		IsLoggedIn:       true,
		IsAdmin:          role == models.ROLE_ADMIN,
		SessionExpiresAt: expiresAt,
	}
}

func int64Value(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
