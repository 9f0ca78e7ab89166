package quests

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/repositories"

	"go.uber.org/zap"
)

// Finalize records a participant's completion proof. The first call writes
// the verification and marks the quest's completion set; later calls return
// the stored record with AlreadyClaimed. The XP award runs afterwards as its
// own idempotent step, so a retried finalize also settles a missed award.
func (m *Manager) Finalize(ctx context.Context, questID, userID string, proof models.Proof) (*models.FinalizeQuestResponse, error) {
	if !proof.Present() {
		return nil, models.ErrMissingProof
	}
	verificationID := repositories.VerificationID(questID, userID)

	var result models.FinalizeQuestResponse
	err := m.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		result = models.FinalizeQuestResponse{}

		var existing models.Verification
		switch err := tx.Get(ctx, repositories.VerificationsCollection, verificationID, &existing); {
		case err == nil:
			result.Verification = &existing
			result.AlreadyClaimed = true
			return nil
		case !errors.Is(err, docstore.ErrNotFound):
			return fmt.Errorf("read verification %s: %w", verificationID, err)
		}

		quest, err := repositories.GetLiveQuest(ctx, tx, questID)
		if err != nil {
			return err
		}
		if !quest.IsParticipant(userID) {
			return models.ErrNotMember
		}

		now := m.now().UTC()
		ops := []docstore.Op{
			docstore.ArrayUnion("completedBy", userID),
			docstore.ServerTimestamp("updatedAt"),
		}
		switch quest.Status {
		case models.QuestActive, models.QuestCompleted:
		case models.QuestOpen:
			if now.Before(quest.StartTime) {
				return models.ErrQuestNotStarted
			}
			ops = append(ops, docstore.SetField("status", models.QuestActive))
		default:
			return models.ErrQuestClosed
		}

		verification := models.Verification{
			ID:              verificationID,
			QuestID:         questID,
			UserID:          userID,
			Completed:       true,
			Rewarded:        false,
			LocationMatched: proof.LocationMatched,
			PhotoURL:        proof.PhotoURL,
			VerifiedAt:      now,
		}
		if err := tx.Create(ctx, repositories.VerificationsCollection, verificationID, verification); err != nil {
			return err
		}
		if err := tx.Update(ctx, repositories.QuestsCollection, questID, ops...); err != nil {
			return err
		}
		result.Verification = &verification
		return nil
	})
	if err != nil {
		observe("finalize", err)
		return nil, err
	}

	if m.awarder != nil {
		xp, err := m.awarder.AwardCompletion(ctx, questID, userID)
		if err != nil {
			observe("finalize", err)
			m.logger.Error("completion award failed", zap.String("quest_id", questID), zap.String("user_id", userID), zap.Error(err))
			return nil, fmt.Errorf("award completion: %w", err)
		}
		result.XPAwarded = xp
		if xp > 0 {
			result.Verification.Rewarded = true
			result.Verification.XPAwarded = xp
		}
	}
	observe("finalize", nil)

	if !result.AlreadyClaimed {
		m.logger.Info("quest finalized", zap.String("quest_id", questID), zap.String("user_id", userID), zap.Int64("xp", result.XPAwarded))
		m.record(ctx, models.ActivityEntry{
			Type:    models.ActivityQuestCompleted,
			UserID:  userID,
			QuestID: questID,
			Message: "completed a quest",
			XP:      result.XPAwarded,
		})
	}
	return &result, nil
}
