package quests

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/repositories"

	"go.uber.org/zap"
)

// Join adds userID to the quest's participants and writes the membership
// record in the same transaction. Joining twice reports AlreadyMember.
func (m *Manager) Join(ctx context.Context, questID, userID, code string) (*models.JoinQuestResponse, error) {
	var result models.JoinQuestResponse
	err := m.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		result = models.JoinQuestResponse{}
		quest, err := getQuest(ctx, tx, questID)
		if err != nil {
			return err
		}
		if quest.IsParticipant(userID) {
			result.Quest = quest
			result.AlreadyMember = true
			return nil
		}
		now := m.now().UTC()
		// an open quest past its start time is active in all but the stored status
		if quest.Status != models.QuestOpen || !now.Before(quest.StartTime) {
			return models.ErrQuestNotJoinable
		}
		if quest.IsFull() {
			return models.ErrQuestFull
		}
		if quest.RequiresCode() && subtle.ConstantTimeCompare([]byte(strings.TrimSpace(code)), []byte(quest.Code)) != 1 {
			return models.ErrInvalidCode
		}
		profile, err := readProfile(ctx, tx, userID)
		if err != nil {
			return err
		}

		if err := tx.Update(ctx, repositories.QuestsCollection, questID,
			docstore.ArrayUnion("participants", userID),
			docstore.ServerTimestamp("updatedAt"),
		); err != nil {
			return err
		}
		if err := tx.Set(ctx, repositories.MembersCollection, repositories.MemberID(questID, userID), newMember(questID, userID, profile, now)); err != nil {
			return err
		}
		quest.Participants = append(quest.Participants, userID)
		result.Quest = quest
		return nil
	})
	observe("join", err)
	if err != nil {
		return nil, err
	}

	if !result.AlreadyMember {
		m.logger.Info("user joined quest", zap.String("quest_id", questID), zap.String("user_id", userID),
			zap.Int("participants", len(result.Quest.Participants)))
		m.record(ctx, models.ActivityEntry{
			Type:    models.ActivityQuestJoined,
			UserID:  userID,
			QuestID: questID,
			Message: fmt.Sprintf("joined %s", result.Quest.Title),
		})
	}
	return &result, nil
}

// Leave removes userID from the quest. Leaving inside the grace window
// before the start time costs reliability in the same transaction.
func (m *Manager) Leave(ctx context.Context, questID, userID string) (*models.LeaveQuestResponse, error) {
	var result models.LeaveQuestResponse
	err := m.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		result = models.LeaveQuestResponse{QuestID: questID}
		quest, err := getQuest(ctx, tx, questID)
		if err != nil {
			return err
		}
		if !quest.IsParticipant(userID) {
			return models.ErrNotMember
		}
		if quest.HostID == userID {
			return models.ErrHostCannotLeave
		}
		if quest.Status.Terminal() {
			return models.ErrQuestClosed
		}

		var stats *models.UserStats
		if m.config.LeavePenalty > 0 && !m.now().Before(quest.StartTime.Add(-m.config.LeaveGrace)) {
			stats, err = repositories.Optional(repositories.GetUserStats(ctx, tx, userID))
			if err != nil {
				return err
			}
			if stats == nil {
				m.logger.Warn("no stats record for late leave, skipping penalty", zap.String("user_id", userID))
			}
		}

		if err := tx.Update(ctx, repositories.QuestsCollection, questID,
			docstore.ArrayRemove("participants", userID),
			docstore.ServerTimestamp("updatedAt"),
		); err != nil {
			return err
		}
		if err := tx.Delete(ctx, repositories.MembersCollection, repositories.MemberID(questID, userID)); err != nil {
			return err
		}
		if stats == nil {
			return nil
		}

		score := max(stats.ReliabilityScore-m.config.LeavePenalty, 0)
		result.Penalized = true
		result.Penalty = stats.ReliabilityScore - score
		result.ReliabilityScore = score
		return tx.Update(ctx, repositories.UserStatsCollection, userID,
			docstore.SetField("reliabilityScore", score),
			docstore.ServerTimestamp("updatedAt"),
		)
	})
	observe("leave", err)
	if err != nil {
		return nil, err
	}
	m.logger.Info("user left quest", zap.String("quest_id", questID), zap.String("user_id", userID), zap.Bool("penalized", result.Penalized))
	return &result, nil
}
