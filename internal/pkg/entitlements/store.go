package entitlements

import (
	"context"
	"errors"
	"time"

	"github.com/lumichat/lumichat/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store provides the persistence operations used by the window manager and
// the quota gate. ConsumeCredit must be an atomic decrement-if-positive;
// ExtendWindow must serialize concurrent extensions for the same user+tier.
type Store interface {
	GetWindow(ctx context.Context, userID uint, tier Tier) (*models.EntitlementWindow, error)
	ExtendWindow(ctx context.Context, userID uint, tier Tier, d time.Duration, now time.Time) (*models.EntitlementWindow, error)
	AddCredits(ctx context.Context, userID uint, tier Tier, n int) error
	GetCredits(ctx context.Context, userID uint, tier Tier) (int, error)
	ConsumeCredit(ctx context.Context, userID uint, tier Tier) (bool, error)
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates an entitlement store backed by GORM.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) GetWindow(ctx context.Context, userID uint, tier Tier) (*models.EntitlementWindow, error) {
	var w models.EntitlementWindow
	err := s.db.WithContext(ctx).Where("user_id = ? AND tier = ?", userID, string(tier)).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *gormStore) ExtendWindow(ctx context.Context, userID uint, tier Tier, d time.Duration, now time.Time) (*models.EntitlementWindow, error) {
	var out *models.EntitlementWindow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var w models.EntitlementWindow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND tier = ?", userID, string(tier)).
			First(&w).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			start, end := NextWindow(now, nil, nil, d)
			w = models.EntitlementWindow{UserID: userID, Tier: string(tier), StartAt: start, EndAt: end}
			if err := tx.Create(&w).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			start, end := NextWindow(now, &w.StartAt, &w.EndAt, d)
			w.StartAt = start
			w.EndAt = end
			if err := tx.Save(&w).Error; err != nil {
				return err
			}
		}
		out = &w
		return nil
	})
	return out, err
}

func (s *gormStore) AddCredits(ctx context.Context, userID uint, tier Tier, n int) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "tier"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"remaining": gorm.Expr("remaining + ?", n),
		}),
	}).Create(&models.UsageCredit{UserID: userID, Tier: string(tier), Remaining: n}).Error
}

func (s *gormStore) GetCredits(ctx context.Context, userID uint, tier Tier) (int, error) {
	var c models.UsageCredit
	err := s.db.WithContext(ctx).Where("user_id = ? AND tier = ?", userID, string(tier)).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return c.Remaining, nil
}

func (s *gormStore) ConsumeCredit(ctx context.Context, userID uint, tier Tier) (bool, error) {
	// remaining > 0 guard makes this a decrement-if-positive; two racing
	// requests for the last credit cannot both succeed.
	res := s.db.WithContext(ctx).Model(&models.UsageCredit{}).
		Where("user_id = ? AND tier = ? AND remaining > 0", userID, string(tier)).
		UpdateColumn("remaining", gorm.Expr("remaining - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
