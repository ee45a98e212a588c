package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER  = "user"
	ROLE_ADMIN = "admin"
)

// Subscription status values. SubscriptionNone is what an unset status reads as.
const (
	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"
	SubscriptionPastDue  = "past_due"
	SubscriptionTrialing = "trialing"
	SubscriptionNone     = "none"
)

var validate = validator.New()

type User struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	Name                string         `gorm:"type:varchar(100)" json:"name" validate:"required,min=1,max=100"`
	Email               string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,max=200"`
	Image               string         `gorm:"type:varchar(255)" json:"image,omitempty" validate:"omitempty,url,max=255"`
	Role                string         `gorm:"type:varchar(20);default:'user'" json:"role" validate:"oneof=user admin"`
	EmailVerified       bool           `gorm:"default:false" json:"email_verified"`
	ActivationToken     string         `gorm:"type:varchar(100);index" json:"-"`
	ActivationSentAt    *time.Time     `gorm:"default:null" json:"-"`
	StripeCustomerID    *string        `gorm:"type:varchar(191);uniqueIndex" json:"stripe_customer_id,omitempty"`
	SubscriptionStatus  *string        `gorm:"type:varchar(20)" json:"subscription_status"`
	SubscriptionEventAt *time.Time     `gorm:"default:null" json:"-"`
	LastLoginAt         *time.Time     `gorm:"default:null" json:"last_login_at"`
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	return validate.Struct(u)
}

// NewUser builds a validated, not yet persisted user with the default role.
func NewUser(name string, email string) (*User, error) {
	u := &User{
		Name:  name,
		Email: email,
		Role:  ROLE_USER,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

func (u *User) IsAdmin() bool {
	return u.Role == ROLE_ADMIN
}

// Status returns the stored subscription status, reading unset as none.
func (u *User) Status() string {
	if u.SubscriptionStatus == nil || *u.SubscriptionStatus == "" {
		return SubscriptionNone
	}
	return *u.SubscriptionStatus
}

// CustomerID returns the linked Stripe customer or an empty string.
func (u *User) CustomerID() string {
	if u.StripeCustomerID == nil {
		return ""
	}
	return *u.StripeCustomerID
}

// IsValidRole reports whether role is one of the two known roles.
func IsValidRole(role string) bool {
	return role == ROLE_USER || role == ROLE_ADMIN
}

// IsValidSubscriptionStatus reports whether status is a known status value.
func IsValidSubscriptionStatus(status string) bool {
	switch status {
	case SubscriptionActive, SubscriptionCanceled, SubscriptionPastDue, SubscriptionTrialing, SubscriptionNone:
		return true
	default:
		return false
	}
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// GenerateActivationToken creates a random token and sets ActivationSentAt
func (u *User) GenerateActivationToken() error {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return err
	}
	u.ActivationToken = hex.EncodeToString(b)
	now := time.Now()
	u.ActivationSentAt = &now
	return nil
}

// IsActivationTokenValid checks the token against the stored one. Tokens expire after 48 hours.
func (u *User) IsActivationTokenValid(token string) bool {
	if u.ActivationToken == "" || u.ActivationSentAt == nil || u.ActivationToken != token {
		return false
	}
	return time.Since(*u.ActivationSentAt) < 48*time.Hour
}
