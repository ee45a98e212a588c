package repository

import (
	"time"

	"github.com/ManuelReschke/SaaSFox/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	GetByCustomerID(customerID string) (*models.User, error)
	Update(user *models.User) error
	UpdateProfile(id uint, name, image string) error
	UpdateRole(id uint, role string) error
	MarkEmailVerified(id uint) error
	TouchLastLogin(id uint) error
	// SetCustomerIDIfEmpty links a billing customer only when the user has
	// none yet. It reports whether this call performed the link.
	SetCustomerIDIfEmpty(id uint, customerID string) (bool, error)
	// ApplySubscriptionStatus writes status unless a newer event was already
	// applied. It reports whether the row changed.
	ApplySubscriptionStatus(id uint, status string, eventAt time.Time) (bool, error)
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// AccountRepository defines the interface for linked authentication methods
type AccountRepository interface {
	Create(account *models.Account) error
	GetByProvider(provider, providerUserID string) (*models.Account, error)
	GetCredentialByUserID(userID uint) (*models.Account, error)
	UpdateTokens(account *models.Account) error
	ListByUserID(userID uint) ([]models.Account, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User    UserRepository
	Account AccountRepository

	db *gorm.DB
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Account: NewAccountRepository(db),
		db:      db,
	}
}
