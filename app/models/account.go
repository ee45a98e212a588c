package models

import "time"

// ProviderCredential marks the password account of a user.
const ProviderCredential = "credential"

// Account is one authentication method linked to a user: either the local
// password credential or an external OAuth identity.
type Account struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"index" json:"user_id"`
	Provider       string     `gorm:"index:provider_uid,unique;type:varchar(50)" json:"provider"`
	ProviderUserID string     `gorm:"index:provider_uid,unique;type:varchar(191)" json:"provider_user_id"`
	PasswordHash   string     `gorm:"type:text" json:"-"`
	AccessToken    string     `gorm:"type:text" json:"-"`
	RefreshToken   string     `gorm:"type:text" json:"-"`
	ExpiresAt      *time.Time `gorm:"default:null" json:"expires_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewCredentialAccount hashes password into a credential account for the
// given user. The email doubles as provider user id.
func NewCredentialAccount(userID uint, email string, password string) (*Account, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &Account{
		UserID:         userID,
		Provider:       ProviderCredential,
		ProviderUserID: email,
		PasswordHash:   hash,
	}, nil
}

// CheckPassword verifies password against a credential account.
func (a *Account) CheckPassword(password string) bool {
	if a.Provider != ProviderCredential || a.PasswordHash == "" {
		return false
	}
	return CheckPasswordHash(password, a.PasswordHash)
}
