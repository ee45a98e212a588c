package billing

import (
	"context"
	"errors"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/SaaSFox/app/models"
	"github.com/ManuelReschke/SaaSFox/app/repository"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/apperrors"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/metrics"
)

// UserStore is the part of the user repository the billing service writes through.
type UserStore interface {
	GetByID(id uint) (*models.User, error)
	GetByCustomerID(customerID string) (*models.User, error)
	SetCustomerIDIfEmpty(id uint, customerID string) (bool, error)
	ApplySubscriptionStatus(id uint, status string, eventAt time.Time) (bool, error)
}

// Service creates checkout and portal sessions and keeps each user's
// subscription status in sync with processor webhooks.
type Service struct {
	cfg     Config
	gateway Gateway
	users   UserStore
	events  Repository
	now     func() time.Time
}

// NewService creates a billing service from injected dependencies.
func NewService(cfg Config, gateway Gateway, users UserStore, events Repository) *Service {
	return &Service{cfg: cfg, gateway: gateway, users: users, events: events, now: time.Now}
}

// NewServiceFromDB validates cfg and wires the matching gateway and GORM repositories.
func NewServiceFromDB(cfg Config, db *gorm.DB) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mock() {
		fiberlog.Warn("billing: MOCK PAYMENTS ENABLED, subscription status always reads active")
	}
	return NewService(cfg, NewGateway(cfg), repository.NewUserRepository(db), NewRepository(db)), nil
}

// Mock reports whether the service runs in mock mode.
func (s *Service) Mock() bool {
	return s.cfg.Mock()
}

func (s *Service) mode() string {
	if s.Mock() {
		return "mock"
	}
	return "stripe"
}

// CreateCheckout starts a subscription checkout for userID. The returned
// URL only redirects; access is granted by the completion webhook.
func (s *Service) CreateCheckout(ctx context.Context, userID uint, priceID string) (*CheckoutResult, error) {
	user, err := s.loadUser(userID)
	if err != nil {
		return nil, err
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		metrics.CheckoutSessions.WithLabelValues(s.mode(), "failed").Inc()
		return nil, err
	}

	url, err := s.gateway.CreateCheckoutSession(ctx, CheckoutParams{
		UserID:     user.ID,
		CustomerID: customerID,
		PriceID:    s.cfg.priceOrDefault(priceID),
		SuccessURL: s.cfg.successURL(),
		CancelURL:  s.cfg.cancelURL(),
	})
	if err != nil {
		metrics.CheckoutSessions.WithLabelValues(s.mode(), "failed").Inc()
		return nil, apperrors.Upstream("Failed to create checkout session", err)
	}
	if url == "" {
		metrics.CheckoutSessions.WithLabelValues(s.mode(), "failed").Inc()
		return nil, apperrors.Upstream("Failed to create checkout session", errors.New("empty checkout url"))
	}

	metrics.CheckoutSessions.WithLabelValues(s.mode(), "created").Inc()
	return &CheckoutResult{URL: url}, nil
}

// ensureCustomer returns the user's customer reference, creating and
// linking one on first checkout. A concurrent link by another request wins.
func (s *Service) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	if id := user.CustomerID(); id != "" {
		return id, nil
	}

	customerID, err := s.gateway.CreateCustomer(ctx, CustomerParams{UserID: user.ID, Email: user.Email, Name: user.Name})
	if err != nil {
		return "", apperrors.Upstream("Failed to create billing customer", err)
	}
	if s.Mock() {
		return customerID, nil
	}

	linked, err := s.users.SetCustomerIDIfEmpty(user.ID, customerID)
	if err != nil {
		return "", err
	}
	if linked {
		return customerID, nil
	}

	current, err := s.loadUser(user.ID)
	if err != nil {
		return "", err
	}
	fiberlog.Warnf("billing: user %d already linked to %s, discarding customer %s", user.ID, current.CustomerID(), customerID)
	return current.CustomerID(), nil
}

// GetSubscriptionStatus reads the stored status of userID.
func (s *Service) GetSubscriptionStatus(ctx context.Context, userID uint) (*SubscriptionStatus, error) {
	if s.Mock() {
		return &SubscriptionStatus{Status: models.SubscriptionActive, Plan: PlanFor(models.SubscriptionActive)}, nil
	}

	user, err := s.loadUser(userID)
	if err != nil {
		return nil, err
	}
	status := user.Status()
	return &SubscriptionStatus{Status: status, Plan: PlanFor(status)}, nil
}

// CreatePortalSession opens the processor's self-service billing portal.
func (s *Service) CreatePortalSession(ctx context.Context, userID uint) (*PortalResult, error) {
	returnURL := s.cfg.portalReturnURL()
	if s.Mock() {
		url, _ := s.gateway.CreatePortalSession(ctx, "", returnURL)
		return &PortalResult{URL: url}, nil
	}

	user, err := s.loadUser(userID)
	if err != nil {
		return nil, err
	}
	if user.CustomerID() == "" {
		return nil, apperrors.NotFound("No billing account found")
	}

	url, err := s.gateway.CreatePortalSession(ctx, user.CustomerID(), returnURL)
	if err != nil {
		return nil, apperrors.Upstream("Failed to create billing portal session", err)
	}
	return &PortalResult{URL: url}, nil
}

func (s *Service) loadUser(userID uint) (*models.User, error) {
	user, err := s.users.GetByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("User not found")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
