package rewards

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/metrics"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/repositories"

	"go.uber.org/zap"
)

// ClaimBounty grants the fixed daily bounty once per UTC day.
func (e *Engine) ClaimBounty(ctx context.Context, userID string) (*models.BountyClaimResponse, error) {
	now := e.now().UTC()
	day := repositories.BountyDay(now)
	claimID := repositories.BountyClaimID(userID, day)

	var result models.BountyClaimResponse
	err := e.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		result = models.BountyClaimResponse{Day: day}

		var claim models.BountyClaim
		switch err := tx.Get(ctx, repositories.BountyClaimsCollection, claimID, &claim); {
		case err == nil:
			result.AlreadyClaimed = true
			result.XP = claim.XP
			return nil
		case !errors.Is(err, docstore.ErrNotFound):
			return fmt.Errorf("read bounty claim: %w", err)
		}

		stats, err := repositories.GetUserStats(ctx, tx, userID)
		if err != nil {
			return err
		}
		reward, err := credit(ctx, tx, stats, e.config.BountyXP)
		if err != nil {
			return err
		}
		result.XP = reward.XP
		result.NewXP = reward.NewXP
		result.NewLevel = reward.NewLevel
		return tx.Create(ctx, repositories.BountyClaimsCollection, claimID, models.BountyClaim{
			ID:        claimID,
			UserID:    userID,
			Day:       day,
			XP:        reward.XP,
			ClaimedAt: now,
		})
	})
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return &models.BountyClaimResponse{Day: day, AlreadyClaimed: true}, nil
	}
	if err != nil {
		return nil, err
	}
	if !result.AlreadyClaimed {
		metrics.AddXP("bounty", result.XP)
		e.logger.Info("bounty claimed", zap.String("user_id", userID), zap.String("day", day))
		e.record(ctx, models.ActivityEntry{
			Type:    models.ActivityBountyClaimed,
			UserID:  userID,
			Message: "claimed the daily bounty",
			XP:      result.XP,
		})
	}
	return &result, nil
}
