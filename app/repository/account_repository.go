package repository

import (
	"github.com/ManuelReschke/SaaSFox/app/models"
	"gorm.io/gorm"
)

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository instance
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(account *models.Account) error {
	return r.db.Create(account).Error
}

// GetByProvider finds the account for an external identity
func (r *accountRepository) GetByProvider(provider, providerUserID string) (*models.Account, error) {
	var account models.Account
	err := r.db.Where("provider = ? AND provider_user_id = ?", provider, providerUserID).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetCredentialByUserID returns the password account of a user
func (r *accountRepository) GetCredentialByUserID(userID uint) (*models.Account, error) {
	var account models.Account
	err := r.db.Where("user_id = ? AND provider = ?", userID, models.ProviderCredential).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) UpdateTokens(account *models.Account) error {
	return r.db.Model(account).Updates(map[string]interface{}{
		"access_token":  account.AccessToken,
		"refresh_token": account.RefreshToken,
		"expires_at":    account.ExpiresAt,
	}).Error
}

func (r *accountRepository) ListByUserID(userID uint) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.Where("user_id = ?", userID).Order("id").Find(&accounts).Error
	return accounts, err
}
