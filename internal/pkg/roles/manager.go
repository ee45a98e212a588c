package roles

import (
	"context"
	"errors"
	"strings"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/SaaSFox/app/models"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/apperrors"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/metrics"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/middleware"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/usercontext"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// UserStore is the subset of the user repository the manager needs.
type UserStore interface {
	GetByID(id uint) (*models.User, error)
	UpdateRole(id uint, role string) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// UserSummary is the admin view of a user.
type UserSummary struct {
	ID                 uint      `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Image              string    `json:"image,omitempty"`
	Role               string    `json:"role"`
	EmailVerified      bool      `json:"email_verified"`
	SubscriptionStatus string    `json:"subscription_status"`
	CreatedAt          time.Time `json:"created_at"`
}

// UserPage is one page of the admin user listing.
type UserPage struct {
	Users  []UserSummary `json:"users"`
	Total  int64         `json:"total"`
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
}

// Summarize converts a user row into its admin view.
func Summarize(u *models.User) UserSummary {
	return UserSummary{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		Image:              u.Image,
		Role:               u.Role,
		EmailVerified:      u.EmailVerified,
		SubscriptionStatus: u.Status(),
		CreatedAt:          u.CreatedAt,
	}
}

// Manager performs privileged user administration. The caller is always
// taken from the request context, never from input.
type Manager struct {
	users UserStore
}

func NewManager(users UserStore) *Manager {
	return &Manager{users: users}
}

// SetRole changes the role of targetID. An admin can never demote themselves,
// which keeps at least the acting admin in place.
func (m *Manager) SetRole(ctx context.Context, targetID uint, role string) (*UserSummary, error) {
	caller := usercontext.FromContext(ctx)
	role = strings.ToLower(strings.TrimSpace(role))

	if err := middleware.Authorize(caller, middleware.Admin); err != nil {
		metrics.RoleChanges.WithLabelValues(role, "denied").Inc()
		return nil, err
	}
	if !models.IsValidRole(role) {
		metrics.RoleChanges.WithLabelValues("invalid", "rejected").Inc()
		return nil, apperrors.InvalidInput("Role must be one of: user, admin")
	}
	if caller.UserID == targetID && role != models.ROLE_ADMIN {
		metrics.RoleChanges.WithLabelValues(role, "rejected").Inc()
		return nil, apperrors.Conflict("Cannot demote yourself")
	}

	if _, err := m.loadUser(targetID); err != nil {
		return nil, err
	}
	if err := m.users.UpdateRole(targetID, role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		metrics.RoleChanges.WithLabelValues(role, "failed").Inc()
		return nil, err
	}

	updated, err := m.loadUser(targetID)
	if err != nil {
		return nil, err
	}
	metrics.RoleChanges.WithLabelValues(role, "changed").Inc()
	fiberlog.Infow("roles: role changed", "admin_id", caller.UserID, "user_id", targetID, "role", role)

	summary := Summarize(updated)
	return &summary, nil
}

// ListUsers returns users newest first. Admin only.
func (m *Manager) ListUsers(ctx context.Context, offset, limit int) (*UserPage, error) {
	if err := middleware.Authorize(usercontext.FromContext(ctx), middleware.Admin); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	total, err := m.users.Count()
	if err != nil {
		return nil, err
	}
	users, err := m.users.List(offset, limit)
	if err != nil {
		return nil, err
	}

	page := &UserPage{Users: make([]UserSummary, 0, len(users)), Total: total, Offset: offset, Limit: limit}
	for i := range users {
		page.Users = append(page.Users, Summarize(&users[i]))
	}
	return page, nil
}

// GetUser returns a single user to an admin or to the user themselves.
func (m *Manager) GetUser(ctx context.Context, id uint) (*UserSummary, error) {
	caller := usercontext.FromContext(ctx)
	if err := middleware.Authorize(caller, middleware.Authenticated); err != nil {
		return nil, err
	}
	if !caller.IsAdmin && caller.UserID != id {
		return nil, apperrors.Forbidden("Forbidden")
	}

	user, err := m.loadUser(id)
	if err != nil {
		return nil, err
	}
	summary := Summarize(user)
	return &summary, nil
}

func (m *Manager) loadUser(id uint) (*models.User, error) {
	user, err := m.users.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("User not found")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
