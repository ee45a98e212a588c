package controllers

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/SaaSFox/app/models"
	"github.com/ManuelReschke/SaaSFox/app/repository"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/env"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/hcaptcha"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/mail"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/metrics"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/oauth"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/usercontext"
	"github.com/ManuelReschke/SaaSFox/views"
)

const loginFailedMessage = "Invalid email or password"

// SessionManager starts and ends authenticated sessions.
type SessionManager interface {
	SignIn(c *fiber.Ctx, user *models.User) error
	SignOut(c *fiber.Ctx) error
	// Refresh updates the identity cached in the current session.
	Refresh(c *fiber.Ctx, user *models.User) error
}

// AuthController handles credential sign-up, sign-in, sign-out and email verification.
type AuthController struct {
	repos    *repository.Repositories
	sessions SessionManager
}

func NewAuthController(repos *repository.Repositories, sessions SessionManager) *AuthController {
	return &AuthController{repos: repos, sessions: sessions}
}

type registerForm struct {
	Name     string `validate:"required,min=1,max=100"`
	Email    string `validate:"required,email,max=200"`
	Password string `validate:"required,min=8,max=72"`
}

func (ac *AuthController) ShowLogin(c *fiber.Ctx) error {
	if usercontext.IsLoggedIn(c) {
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}
	var providers []string
	for _, p := range oauth.Providers {
		if oauth.Enabled(p) {
			providers = append(providers, p)
		}
	}
	return render(c, views.Login(pageData(c, " | Login"), providers))
}

func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))
	password := c.FormValue("password")
	if email == "" || password == "" {
		return redirectWithError(c, "/login", loginFailedMessage)
	}

	// same message for unknown email and wrong password
	user, err := ac.repos.User.GetByEmail(email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			fiberlog.Errorf("login: failed to load user: %v", err)
		}
		return redirectWithError(c, "/login", loginFailedMessage)
	}
	account, err := ac.repos.Account.GetCredentialByUserID(user.ID)
	if err != nil || !account.CheckPassword(password) {
		fiberlog.Infof("login: failed attempt for user %d from %s", user.ID, c.IP())
		return redirectWithError(c, "/login", loginFailedMessage)
	}

	if env.GetEnvBool("REQUIRE_EMAIL_VERIFICATION", false) && !user.EmailVerified {
		return redirectWithError(c, "/login", "Please confirm your email address first")
	}

	if err := ac.sessions.SignIn(c, user); err != nil {
		fiberlog.Errorf("login: failed to start session: %v", err)
		return redirectWithError(c, "/login", "Something went wrong, please try again")
	}
	if err := ac.repos.User.TouchLastLogin(user.ID); err != nil {
		fiberlog.Warnf("login: failed to update last login of user %d: %v", user.ID, err)
	}
	metrics.AuthEvents.WithLabelValues("login").Inc()

	return redirectWithSuccess(c, "/dashboard", "Welcome back!")
}

func (ac *AuthController) ShowRegister(c *fiber.Ctx) error {
	if usercontext.IsLoggedIn(c) {
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}
	return render(c, views.Register(pageData(c, " | Register"), hcaptcha.SiteKey()))
}

func (ac *AuthController) HandleRegister(c *fiber.Ctx) error {
	// honeypot: bots get the regular success response and nothing is stored
	if c.FormValue("website") != "" {
		fiberlog.Infof("register: honeypot triggered from %s", c.IP())
		return redirectWithSuccess(c, "/login", "Account created. Please check your inbox.")
	}

	if hcaptcha.Enabled() {
		valid, err := hcaptcha.Verify(c.UserContext(), c.FormValue("h-captcha-response"))
		if err != nil || !valid {
			fiberlog.Warnf("register: hCaptcha validation error: %v", err)
			return redirectWithError(c, "/register", "Captcha validation failed. Please try again.")
		}
	}

	form := registerForm{
		Name:     strings.TrimSpace(c.FormValue("name")),
		Email:    strings.ToLower(strings.TrimSpace(c.FormValue("email"))),
		Password: c.FormValue("password"),
	}
	if err := validate.Struct(form); err != nil {
		return redirectWithError(c, "/register", registerValidationMessage(err))
	}

	if _, err := ac.repos.User.GetByEmail(form.Email); err == nil {
		return redirectWithError(c, "/register", "An account with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		fiberlog.Errorf("register: failed to check email: %v", err)
		return redirectWithError(c, "/register", "Something went wrong, please try again")
	}

	user, err := models.NewUser(form.Name, form.Email)
	if err != nil {
		return redirectWithError(c, "/register", registerValidationMessage(err))
	}
	if err := user.GenerateActivationToken(); err != nil {
		fiberlog.Errorf("register: failed to generate activation token: %v", err)
		return redirectWithError(c, "/register", "Something went wrong, please try again")
	}
	err = ac.repos.Transaction(func(tx *repository.Repositories) error {
		if err := tx.User.Create(user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		account, err := models.NewCredentialAccount(user.ID, user.Email, form.Password)
		if err != nil {
			return err
		}
		if err := tx.Account.Create(account); err != nil {
			return fmt.Errorf("create credential: %w", err)
		}
		return nil
	})
	if err != nil {
		fiberlog.Errorf("register: failed to create user: %v", err)
		return redirectWithError(c, "/register", "Something went wrong, please try again")
	}

	link := env.PublicBaseURL() + "/activate?token=" + url.QueryEscape(user.ActivationToken)
	if err := mail.SendVerificationMail(user.Email, user.Name, link); err != nil {
		fiberlog.Warnf("register: failed to send verification mail to user %d: %v", user.ID, err)
	}
	metrics.AuthEvents.WithLabelValues("register").Inc()

	if env.GetEnvBool("REQUIRE_EMAIL_VERIFICATION", false) {
		return redirectWithSuccess(c, "/login", "Account created. Please check your inbox to confirm your email before logging in.")
	}
	if err := ac.sessions.SignIn(c, user); err != nil {
		fiberlog.Errorf("register: failed to start session: %v", err)
		return redirectWithSuccess(c, "/login", "Account created. Please log in.")
	}
	return redirectWithSuccess(c, "/dashboard", "Account created. Please check your inbox to confirm your email.")
}

func registerValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Field() {
		case "Password":
			return "Password must be at least 8 characters"
		case "Email":
			return "Please enter a valid email address"
		case "Name":
			return "Name must be between 1 and 100 characters"
		}
	}
	return "Please check your input"
}

func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	if err := ac.sessions.SignOut(c); err != nil {
		fiberlog.Warnf("logout: %v", err)
	}
	metrics.AuthEvents.WithLabelValues("logout").Inc()
	return redirectWithSuccess(c, "/login", "You have been logged out")
}

func (ac *AuthController) HandleActivate(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		return redirectWithError(c, "/login", "Invalid activation link")
	}

	user, err := ac.repos.User.GetByActivationToken(token)
	if err != nil || !user.IsActivationTokenValid(token) {
		return redirectWithError(c, "/login", "Activation link is invalid or expired")
	}
	if err := ac.repos.User.MarkEmailVerified(user.ID); err != nil {
		fiberlog.Errorf("activate: failed to verify user %d: %v", user.ID, err)
		return redirectWithError(c, "/login", "Something went wrong, please try again")
	}
	metrics.AuthEvents.WithLabelValues("verify").Inc()

	target := "/login"
	if usercontext.IsLoggedIn(c) {
		target = "/dashboard"
	}
	return redirectWithSuccess(c, target, "Your email address is confirmed")
}
