package repository

import (
	"github.com/lumichat/lumichat/app/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByInviteCode(code string) (*models.User, error)
	GetStatsByUserID(userID uint) (*UserStats, error)
	Update(user *models.User) error
	Count() (int64, error)
}

// OrderRepository defines the interface for order listing operations.
// Order state transitions live in the payment engine, not here.
type OrderRepository interface {
	GetByUserID(userID uint, offset, limit int) ([]models.Order, error)
	CountByUserID(userID uint) (int64, error)
}

// UserStats provides aggregated counts for a single user.
type UserStats struct {
	OrderCount    int64
	TotalPaid     decimal.Decimal
	ReferralCount int64
}

// Repositories struct holds all repository instances
type Repositories struct {
	User  UserRepository
	Order OrderRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:  NewUserRepository(db),
		Order: NewOrderRepository(db),
	}
}
