package repository

import (
	"strings"
	"time"

	"github.com/ManuelReschke/SaaSFox/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByActivationToken retrieves a user by their activation token
func (r *userRepository) GetByActivationToken(token string) (*models.User, error) {
	if token == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var user models.User
	err := r.db.Where("activation_token = ?", token).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByCustomerID retrieves the user linked to a Stripe customer
func (r *userRepository) GetByCustomerID(customerID string) (*models.User, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var user models.User
	err := r.db.Where("stripe_customer_id = ?", customerID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates an existing user in the database
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

func (r *userRepository) UpdateProfile(id uint, name, image string) error {
	return r.updateColumns(id, map[string]interface{}{"name": name, "image": image})
}

func (r *userRepository) UpdateRole(id uint, role string) error {
	return r.updateColumns(id, map[string]interface{}{"role": role})
}

func (r *userRepository) MarkEmailVerified(id uint) error {
	return r.updateColumns(id, map[string]interface{}{
		"email_verified":   true,
		"activation_token": "",
	})
}

func (r *userRepository) TouchLastLogin(id uint) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).UpdateColumn("last_login_at", time.Now()).Error
}

func (r *userRepository) SetCustomerIDIfEmpty(id uint, customerID string) (bool, error) {
	tx := r.db.Model(&models.User{}).
		Where("id = ? AND stripe_customer_id IS NULL", id).
		Update("stripe_customer_id", customerID)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *userRepository) ApplySubscriptionStatus(id uint, status string, eventAt time.Time) (bool, error) {
	eventAt = eventAt.UTC().Truncate(time.Second)
	tx := r.db.Model(&models.User{}).
		Where("id = ? AND (subscription_event_at IS NULL OR subscription_event_at <= ?)", id, eventAt).
		Updates(map[string]interface{}{
			"subscription_status":   status,
			"subscription_event_at": eventAt,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// List retrieves a paginated list of users
func (r *userRepository) List(offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.Order("created_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&users).Error
	return users, err
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

func (r *userRepository) updateColumns(id uint, columns map[string]interface{}) error {
	tx := r.db.Model(&models.User{}).Where("id = ?", id).Updates(columns)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
