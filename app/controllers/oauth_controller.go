package controllers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/markbates/goth"
	gothfiber "github.com/shareed2k/goth_fiber"
	"gorm.io/gorm"

	"github.com/ManuelReschke/SaaSFox/app/models"
	"github.com/ManuelReschke/SaaSFox/app/repository"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/metrics"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/oauth"
)

// OAuthController signs users in through external identity providers.
type OAuthController struct {
	repos    *repository.Repositories
	sessions SessionManager
}

func NewOAuthController(repos *repository.Repositories, sessions SessionManager) *OAuthController {
	return &OAuthController{repos: repos, sessions: sessions}
}

// HandleBegin redirects to the provider's consent screen.
func (oc *OAuthController) HandleBegin(c *fiber.Ctx) error {
	if !oauth.Enabled(c.Params("provider")) {
		return redirectWithError(c, "/login", "This login provider is not available")
	}
	return gothfiber.BeginAuthHandler(c)
}

// HandleCallback completes the provider flow and logs the user in.
func (oc *OAuthController) HandleCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		fiberlog.Warnf("oauth: completing %s login failed: %v", c.Params("provider"), err)
		return redirectWithError(c, "/login", "Login with provider failed")
	}

	user, err := oc.resolveUser(u)
	if errors.Is(err, errUnverifiedEmail) {
		fiberlog.Infof("oauth: refused to link %s user %s to an unverified account", u.Provider, u.UserID)
		return redirectWithError(c, "/login", "An account with this email already exists. Log in with your password and confirm your email first.")
	}
	if err != nil {
		fiberlog.Errorf("oauth: linking %s user %s failed: %v", u.Provider, u.UserID, err)
		return redirectWithError(c, "/login", "Login with provider failed")
	}

	if err := oc.sessions.SignIn(c, user); err != nil {
		fiberlog.Errorf("oauth: failed to start session: %v", err)
		return redirectWithError(c, "/login", "Something went wrong, please try again")
	}
	if err := oc.repos.User.TouchLastLogin(user.ID); err != nil {
		fiberlog.Warnf("oauth: failed to update last login of user %d: %v", user.ID, err)
	}
	metrics.AuthEvents.WithLabelValues("login_" + u.Provider).Inc()

	return c.Redirect("/dashboard", fiber.StatusSeeOther)
}

// errUnverifiedEmail refuses to attach a provider identity to a password
// account whose owner never confirmed the address.
var errUnverifiedEmail = errors.New("email belongs to an unverified account")

// resolveUser finds the user linked to the provider identity. Unknown
// identities are linked to a verified user with the same email, or get a
// new user.
func (oc *OAuthController) resolveUser(u goth.User) (*models.User, error) {
	account, err := oc.repos.Account.GetByProvider(u.Provider, u.UserID)
	switch {
	case err == nil:
		account.AccessToken = u.AccessToken
		account.RefreshToken = u.RefreshToken
		account.ExpiresAt = expiresAt(u)
		if err := oc.repos.Account.UpdateTokens(account); err != nil {
			return nil, fmt.Errorf("update tokens: %w", err)
		}
		return oc.repos.User.GetByID(account.UserID)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	var user *models.User
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if email != "" {
		user, err = oc.repos.User.GetByEmail(email)
		switch {
		case err == nil && !user.EmailVerified:
			return nil, errUnverifiedEmail
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}

	link := &models.Account{
		Provider:       u.Provider,
		ProviderUserID: u.UserID,
		AccessToken:    u.AccessToken,
		RefreshToken:   u.RefreshToken,
		ExpiresAt:      expiresAt(u),
	}
	if user != nil {
		link.UserID = user.ID
		if err := oc.repos.Account.Create(link); err != nil {
			return nil, fmt.Errorf("link provider: %w", err)
		}
		return user, nil
	}

	if email == "" {
		email = fmt.Sprintf("%s_%s@%s.oauth.local", u.Provider, u.UserID, u.Provider)
	}
	user = &models.User{
		Name:          truncate(firstNonEmpty(u.Name, u.NickName, u.Email, "User"), 100),
		Email:         email,
		Image:         u.AvatarURL,
		Role:          models.ROLE_USER,
		EmailVerified: u.Email != "",
	}
	err = oc.repos.Transaction(func(tx *repository.Repositories) error {
		if err := tx.User.Create(user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		link.UserID = user.ID
		if err := tx.Account.Create(link); err != nil {
			return fmt.Errorf("link provider: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.AuthEvents.WithLabelValues("register_" + u.Provider).Inc()
	return user, nil
}

func expiresAt(u goth.User) *time.Time {
	if u.ExpiresAt.IsZero() {
		return nil
	}
	t := u.ExpiresAt
	return &t
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
