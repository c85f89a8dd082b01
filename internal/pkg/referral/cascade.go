package referral

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/lumichat/lumichat/app/models"
	"github.com/lumichat/lumichat/internal/pkg/env"
	"github.com/lumichat/lumichat/internal/pkg/wallet"
	"github.com/shopspring/decimal"
)

// Cascade computes and applies the two-tier referral payout triggered by a
// successful order. Level 1 pays the direct referrer, level 2 pays the
// referrer's referrer only while that user holds the agent role.
type Cascade struct {
	repo   Repository
	ledger wallet.Ledger

	// Percentages of the paid amount, e.g. 20 and 10.
	level1Percent decimal.Decimal
	level2Percent decimal.Decimal
}

func NewCascade(repo Repository, ledger wallet.Ledger, level1Percent, level2Percent decimal.Decimal) *Cascade {
	return &Cascade{
		repo:          repo,
		ledger:        ledger,
		level1Percent: level1Percent,
		level2Percent: level2Percent,
	}
}

// NewCascadeFromEnv reads REFERRAL_L1_PERCENT / REFERRAL_L2_PERCENT with
// the documented 20/10 defaults.
func NewCascadeFromEnv(repo Repository, ledger wallet.Ledger) *Cascade {
	return NewCascade(repo, ledger, envPercent("REFERRAL_L1_PERCENT", 20), envPercent("REFERRAL_L2_PERCENT", 10))
}

func envPercent(key string, def int64) decimal.Decimal {
	raw := env.GetEnv(key, strconv.FormatInt(def, 10))
	d, err := decimal.NewFromString(raw)
	if err != nil || d.Sign() < 0 {
		log.Printf("invalid %s=%q, using default %d", key, raw, def)
		return decimal.NewFromInt(def)
	}
	return d
}

// Apply walks the paying user's referral edges and pays each eligible
// referrer once. The existing-record check is defense in depth: the
// payment engine already suppresses replays, but a bypassed guard must
// still not double-credit.
func (c *Cascade) Apply(ctx context.Context, orderNo string, payerID uint, paidAmount decimal.Decimal) error {
	if paidAmount.Sign() <= 0 {
		return nil
	}

	edges, err := c.repo.EdgesForReferred(ctx, payerID)
	if err != nil {
		return err
	}

	for _, edge := range edges {
		percent := c.level1Percent
		if edge.Level == models.ReferralLevelIndirect {
			percent = c.level2Percent

			referrer, err := c.repo.GetUser(ctx, edge.ReferrerID)
			if err != nil {
				return fmt.Errorf("referral: load level-2 referrer %d: %w", edge.ReferrerID, err)
			}
			if !referrer.IsAgent() {
				continue
			}
		}

		reward := paidAmount.Mul(percent).Div(decimal.NewFromInt(100)).Round(2)
		if reward.Sign() <= 0 {
			continue
		}

		exists, err := c.repo.RewardExists(ctx, orderNo, edge.ReferrerID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		created, err := c.repo.CreateReward(ctx, &models.ReferralRewardRecord{
			OrderNo:    orderNo,
			ReferrerID: edge.ReferrerID,
			ReferredID: payerID,
			Kind:       models.RewardKindBalance,
			Amount:     reward,
			Level:      edge.Level,
		})
		if err != nil {
			return err
		}
		if !created {
			// Lost a race against a concurrent delivery; the winner pays.
			continue
		}

		if err := c.ledger.Credit(ctx, edge.ReferrerID, reward); err != nil {
			return fmt.Errorf("referral: credit referrer %d for order %s: %w", edge.ReferrerID, orderNo, err)
		}
	}
	return nil
}

// RecordEdges creates the immutable referral edges for a newly registered
// user: a level-1 edge from the inviter and, when the inviter was referred
// too, a level-2 edge from the inviter's own referrer.
func (c *Cascade) RecordEdges(ctx context.Context, inviterID, newUserID uint) error {
	if inviterID == 0 || inviterID == newUserID {
		return nil
	}

	if err := c.repo.CreateEdge(ctx, &models.ReferralEdge{
		ReferrerID: inviterID,
		ReferredID: newUserID,
		Level:      models.ReferralLevelDirect,
	}); err != nil {
		return err
	}

	grandID, err := c.repo.DirectReferrerOf(ctx, inviterID)
	if err != nil {
		return err
	}
	if grandID == 0 || grandID == newUserID {
		return nil
	}
	return c.repo.CreateEdge(ctx, &models.ReferralEdge{
		ReferrerID: grandID,
		ReferredID: newUserID,
		Level:      models.ReferralLevelIndirect,
	})
}
