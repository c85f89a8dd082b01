package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lumichat/lumichat/app/models"
	"github.com/lumichat/lumichat/app/repository"
	"github.com/lumichat/lumichat/internal/pkg/database"
	"github.com/lumichat/lumichat/internal/pkg/entitlements"
	"github.com/lumichat/lumichat/internal/pkg/middleware"
	"github.com/lumichat/lumichat/internal/pkg/wallet"
)

// HandleUserQuota reports the caller's wallet balance, entitlement windows
// and remaining usage credits per tier.
func HandleUserQuota(c *fiber.Ctx) error {
	db := database.GetDB()
	userID := middleware.UserID(c)
	ctx := c.Context()

	balance, err := wallet.NewLedger(db).Balance(ctx, userID)
	if err != nil {
		return respondFail(c, fiber.StatusInternalServerError, "failed to load wallet")
	}

	store := entitlements.NewStore(db)
	now := time.Now()
	tiers := fiber.Map{}
	for _, tier := range []entitlements.Tier{entitlements.TierStandard, entitlements.TierAdvanced} {
		w, err := store.GetWindow(ctx, userID, tier)
		if err != nil {
			return respondFail(c, fiber.StatusInternalServerError, "failed to load entitlements")
		}
		credits, err := store.GetCredits(ctx, userID, tier)
		if err != nil {
			return respondFail(c, fiber.StatusInternalServerError, "failed to load entitlements")
		}

		info := fiber.Map{"credits": credits, "window_active": false}
		if w != nil && w.IsActiveAt(now) {
			info["window_active"] = true
			info["window_end"] = w.EndAt
		}
		tiers[string(tier)] = info
	}

	return respondSuccess(c, fiber.Map{
		"balance": balance,
		"tiers":   tiers,
	})
}

// HandleUserReferrals lists the caller's reward ledger entries together
// with aggregate referral statistics.
func HandleUserReferrals(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var records []models.ReferralRewardRecord
	err := database.GetDB().
		Where("referrer_id = ?", userID).
		Order("created_at desc").
		Limit(100).
		Find(&records).Error
	if err != nil {
		return respondFail(c, fiber.StatusInternalServerError, "failed to load referral rewards")
	}

	stats, err := repository.GetGlobalRepositories().User.GetStatsByUserID(userID)
	if err != nil {
		return respondFail(c, fiber.StatusInternalServerError, "failed to load referral stats")
	}

	return respondSuccess(c, fiber.Map{
		"rewards":        records,
		"referral_count": stats.ReferralCount,
	})
}

// HandleListOrders returns the caller's orders, newest first.
func HandleListOrders(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	orderRepo := repository.GetGlobalRepositories().Order

	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	orders, err := orderRepo.GetByUserID(userID, offset, limit)
	if err != nil {
		return respondFail(c, fiber.StatusInternalServerError, "failed to load orders")
	}
	total, err := orderRepo.CountByUserID(userID)
	if err != nil {
		return respondFail(c, fiber.StatusInternalServerError, "failed to load orders")
	}
	return respondSuccess(c, fiber.Map{
		"orders": orders,
		"total":  total,
	})
}
