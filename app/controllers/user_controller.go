package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/SaaSFox/app/repository"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/roles"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/usercontext"
	"github.com/ManuelReschke/SaaSFox/views"
)

// UserDirectory looks up users on behalf of the caller in ctx.
type UserDirectory interface {
	GetUser(ctx context.Context, id uint) (*roles.UserSummary, error)
}

// UserController serves the signed-in user's own pages and API.
type UserController struct {
	repos     *repository.Repositories
	billing   BillingService
	directory UserDirectory
	sessions  SessionManager
}

func NewUserController(repos *repository.Repositories, svc BillingService, directory UserDirectory, sessions SessionManager) *UserController {
	return &UserController{repos: repos, billing: svc, directory: directory, sessions: sessions}
}

type profileForm struct {
	Name  string `validate:"required,min=1,max=100"`
	Image string `validate:"omitempty,url,max=255"`
}

func (uc *UserController) ShowDashboard(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	user, err := uc.repos.User.GetByID(userID)
	if err != nil {
		return err
	}
	status, err := uc.billing.GetSubscriptionStatus(c.UserContext(), userID)
	if err != nil {
		return err
	}

	p := pageData(c, " | Dashboard")
	// the checkout redirect only informs; the webhook grants access
	if c.Query("success") == "true" && p.Flash["message"] == nil {
		p.Flash = fiber.Map{
			"type":    "success",
			"message": "Thanks for subscribing! Your plan is activated as soon as the payment is confirmed.",
		}
	}
	return render(c, views.Dashboard(p, status, user.EmailVerified))
}

func (uc *UserController) ShowProfile(c *fiber.Ctx) error {
	user, err := uc.repos.User.GetByID(usercontext.GetUserID(c))
	if err != nil {
		return err
	}
	return render(c, views.Profile(pageData(c, " | Profile"), user))
}

func (uc *UserController) HandleProfileUpdate(c *fiber.Ctx) error {
	form := profileForm{
		Name:  strings.TrimSpace(c.FormValue("name")),
		Image: strings.TrimSpace(c.FormValue("image")),
	}
	if err := validate.Struct(form); err != nil {
		return redirectWithError(c, "/profile", "Name must be 1 to 100 characters and the image a valid URL")
	}

	userID := usercontext.GetUserID(c)
	if err := uc.repos.User.UpdateProfile(userID, form.Name, form.Image); err != nil {
		fiberlog.Errorf("profile: failed to update user %d: %v", userID, err)
		return redirectWithError(c, "/profile", "Failed to save profile")
	}
	if user, err := uc.repos.User.GetByID(userID); err == nil {
		if err := uc.sessions.Refresh(c, user); err != nil {
			fiberlog.Warnf("profile: failed to refresh session of user %d: %v", userID, err)
		}
	}
	return redirectWithSuccess(c, "/profile", "Profile saved")
}

// APISession returns the resolved identity, with null fields when anonymous,
// and the CSRF token API clients send back in X-Csrf-Token.
func (uc *UserController) APISession(c *fiber.Ctx) error {
	u := usercontext.GetUserContext(c)
	csrfToken, _ := c.Locals("csrf").(string)
	if !u.IsLoggedIn {
		return c.JSON(fiber.Map{"user": nil, "session": nil, "csrf_token": csrfToken})
	}
	return c.JSON(fiber.Map{
		"csrf_token": csrfToken,
		"user": fiber.Map{
			"id":             u.UserID,
			"name":           u.Username,
			"email":          u.Email,
			"role":           u.Role,
			"email_verified": u.EmailVerified,
		},
		"session": fiber.Map{
			"expires_at": u.SessionExpiresAt.UTC().Format(time.RFC3339),
		},
	})
}

// APIGetUser returns a user to an admin or to the user themselves.
func (uc *UserController) APIGetUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	user, err := uc.directory.GetUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(user)
}
