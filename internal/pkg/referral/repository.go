package referral

import (
	"context"
	"errors"

	"github.com/lumichat/lumichat/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the referral cascade.
type Repository interface {
	EdgesForReferred(ctx context.Context, referredID uint) ([]models.ReferralEdge, error)
	DirectReferrerOf(ctx context.Context, userID uint) (uint, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
	RewardExists(ctx context.Context, orderNo string, referrerID uint) (bool, error)
	CreateReward(ctx context.Context, rec *models.ReferralRewardRecord) (bool, error)
	CreateEdge(ctx context.Context, edge *models.ReferralEdge) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a referral repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) EdgesForReferred(ctx context.Context, referredID uint) ([]models.ReferralEdge, error) {
	var edges []models.ReferralEdge
	err := r.db.WithContext(ctx).Where("referred_id = ?", referredID).Order("level asc").Find(&edges).Error
	return edges, err
}

func (r *gormRepository) DirectReferrerOf(ctx context.Context, userID uint) (uint, error) {
	var edge models.ReferralEdge
	err := r.db.WithContext(ctx).
		Where("referred_id = ? AND level = ?", userID, models.ReferralLevelDirect).
		First(&edge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return edge.ReferrerID, nil
}

func (r *gormRepository) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *gormRepository) RewardExists(ctx context.Context, orderNo string, referrerID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ReferralRewardRecord{}).
		Where("order_no = ? AND referrer_id = ?", orderNo, referrerID).
		Count(&count).Error
	return count > 0, err
}

// CreateReward inserts the payout record and reports whether it was newly
// written. The unique (order_no, referrer_id) index absorbs races.
func (r *gormRepository) CreateReward(ctx context.Context, rec *models.ReferralRewardRecord) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_no"}, {Name: "referrer_id"}},
		DoNothing: true,
	}).Create(rec)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) CreateEdge(ctx context.Context, edge *models.ReferralEdge) error {
	return r.db.WithContext(ctx).Create(edge).Error
}
