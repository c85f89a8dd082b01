package repository

import (
	"fmt"
	"strings"

	"github.com/lumichat/lumichat/app/models"
	"github.com/shopspring/decimal"
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

// GetByInviteCode retrieves a user by their invite code
func (r *userRepository) GetByInviteCode(code string) (*models.User, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var user models.User
	err := r.db.Where("invite_code = ?", trimmed).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetStatsByUserID returns aggregate statistics for the given user.
func (r *userRepository) GetStatsByUserID(userID uint) (*UserStats, error) {
	var stats UserStats

	err := r.db.Model(&models.Order{}).
		Where("user_id = ? AND status = ?", userID, models.OrderStatusPaid).
		Count(&stats.OrderCount).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var totalPaid decimal.NullDecimal
	err = r.db.Model(&models.Order{}).
		Where("user_id = ? AND status = ?", userID, models.OrderStatusPaid).
		Select("COALESCE(SUM(amount), 0)").Row().Scan(&totalPaid)
	if err != nil {
		return nil, fmt.Errorf("failed to sum paid orders: %w", err)
	}
	if totalPaid.Valid {
		stats.TotalPaid = totalPaid.Decimal
	}

	err = r.db.Model(&models.ReferralEdge{}).
		Where("referrer_id = ? AND level = ?", userID, 1).
		Count(&stats.ReferralCount).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count referrals: %w", err)
	}

	return &stats, nil
}

// Update updates an existing user in the database
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}
