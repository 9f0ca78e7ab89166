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

// AwardCompletion grants the completion XP for a verified quest. The
// verification's rewarded flag makes repeated calls return 0.
func (e *Engine) AwardCompletion(ctx context.Context, questID, userID string) (int64, error) {
	verificationID := repositories.VerificationID(questID, userID)

	var awarded int64
	err := e.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		awarded = 0

		var verification models.Verification
		err := tx.Get(ctx, repositories.VerificationsCollection, verificationID, &verification)
		if errors.Is(err, docstore.ErrNotFound) {
			return models.ErrNotVerified
		}
		if err != nil {
			return fmt.Errorf("read verification %s: %w", verificationID, err)
		}
		if verification.Rewarded || !verification.Completed {
			return nil
		}

		difficulty := models.DifficultyMedium
		quest, err := repositories.GetAnyQuest(ctx, tx, questID)
		switch {
		case err == nil:
			difficulty = quest.Difficulty
		case !errors.Is(err, models.ErrQuestNotFound):
			return err
		}

		stats, err := repositories.GetUserStats(ctx, tx, userID)
		if err != nil {
			return err
		}

		amount := e.config.completionXP(difficulty)
		if _, err := credit(ctx, tx, stats, amount, docstore.Inc("questsCompleted", 1)); err != nil {
			return err
		}
		if err := tx.Update(ctx, repositories.VerificationsCollection, verificationID,
			docstore.SetField("rewarded", true),
			docstore.SetField("xpAwarded", amount),
			docstore.ServerTimestamp("rewardedAt"),
		); err != nil {
			return err
		}
		awarded = amount
		return nil
	})
	if err != nil {
		return 0, err
	}
	if awarded > 0 {
		metrics.AddXP("completion", awarded)
		e.logger.Info("completion rewarded", zap.String("quest_id", questID), zap.String("user_id", userID), zap.Int64("xp", awarded))
	}
	return awarded, nil
}
