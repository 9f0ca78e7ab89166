package quests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/leveling"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Create stores a new open quest with the host as its first participant.
func (m *Manager) Create(ctx context.Context, hostID string, req *models.CreateQuestRequest) (*models.Quest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := m.now().UTC()
	quest := models.Quest{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Description:  req.Description,
		Location:     req.Location,
		Status:       models.QuestOpen,
		Difficulty:   req.Difficulty,
		StartTime:    req.StartTime.UTC(),
		MaxPlayers:   req.MaxPlayers,
		HostID:       hostID,
		Participants: []string{hostID},
		CompletedBy:  []string{},
		Code:         req.Code,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := m.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		profile, err := readProfile(ctx, tx, hostID)
		if err != nil {
			return err
		}
		if err := tx.Create(ctx, repositories.QuestsCollection, quest.ID, quest); err != nil {
			return err
		}
		return tx.Set(ctx, repositories.MembersCollection, repositories.MemberID(quest.ID, hostID), newMember(quest.ID, hostID, profile, now))
	})
	observe("create", err)
	if err != nil {
		return nil, err
	}

	m.logger.Info("quest created", zap.String("quest_id", quest.ID), zap.String("host_id", hostID))
	m.record(ctx, models.ActivityEntry{
		Type:    models.ActivityQuestCreated,
		UserID:  hostID,
		QuestID: quest.ID,
		Message: fmt.Sprintf("started a new quest: %s", quest.Title),
	})
	return &quest, nil
}

// Get reads a quest and opportunistically activates it once its start time has passed.
func (m *Manager) Get(ctx context.Context, questID string) (*models.Quest, error) {
	var quest models.Quest
	err := m.store.Get(ctx, repositories.QuestsCollection, questID, &quest)
	if errors.Is(err, docstore.ErrNotFound) {
		var archived models.Quest
		if m.store.Get(ctx, repositories.ArchivedQuestsCollection, questID, &archived) == nil {
			return nil, models.ErrQuestArchived
		}
		return nil, models.ErrQuestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read quest %s: %w", questID, err)
	}
	quest.ID = questID

	if quest.Status == models.QuestOpen && !m.now().Before(quest.StartTime) {
		activated, err := m.AutoActivate(ctx, questID)
		if err != nil {
			m.logger.Warn("auto activation failed", zap.String("quest_id", questID), zap.Error(err))
		} else if activated {
			quest.Status = models.QuestActive
		}
	}
	return &quest, nil
}

// AutoActivate moves an open quest whose start time has passed to active. It
// reports whether this call changed the status; repeating it is a no-op.
func (m *Manager) AutoActivate(ctx context.Context, questID string) (bool, error) {
	var activated bool
	err := m.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		activated = false
		quest, err := getQuest(ctx, tx, questID)
		if err != nil {
			return err
		}
		if quest.Status != models.QuestOpen || m.now().Before(quest.StartTime) {
			return nil
		}
		activated = true
		return tx.Update(ctx, repositories.QuestsCollection, questID,
			docstore.SetField("status", models.QuestActive),
			docstore.ServerTimestamp("updatedAt"),
		)
	})
	if err != nil {
		return false, err
	}
	if activated {
		observe("auto_activate", nil)
		m.logger.Info("quest auto-activated", zap.String("quest_id", questID))
	}
	return activated, nil
}

// Transition applies a host-requested status change.
func (m *Manager) Transition(ctx context.Context, questID, userID string, to models.QuestStatus) (*models.Quest, error) {
	var quest *models.Quest
	changed := false
	err := m.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		changed = false
		var err error
		quest, err = getQuest(ctx, tx, questID)
		if err != nil {
			return err
		}
		if quest.HostID != userID {
			return models.ErrNotHost
		}
		if quest.Status == to {
			return nil
		}
		if err := checkTransition(quest.Status, to); err != nil {
			return err
		}
		changed = true
		quest.Status = to
		return tx.Update(ctx, repositories.QuestsCollection, questID,
			docstore.SetField("status", to),
			docstore.ServerTimestamp("updatedAt"),
		)
	})
	observe("transition", err)
	if err != nil {
		return nil, err
	}
	if changed {
		m.logger.Info("quest status changed", zap.String("quest_id", questID), zap.String("status", string(to)))
		if to == models.QuestCompleted {
			m.record(ctx, models.ActivityEntry{
				Type:    models.ActivityQuestCompleted,
				UserID:  userID,
				QuestID: questID,
				Message: fmt.Sprintf("wrapped up %s", quest.Title),
			})
		}
	}
	return quest, nil
}

func readProfile(ctx context.Context, tx docstore.Tx, userID string) (*models.UserProfile, error) {
	return repositories.Optional(repositories.GetUserProfile(ctx, tx, userID))
}

func newMember(questID, userID string, profile *models.UserProfile, now time.Time) models.QuestMember {
	member := models.QuestMember{
		ID:       repositories.MemberID(questID, userID),
		QuestID:  questID,
		UserID:   userID,
		Level:    1,
		JoinedAt: now,
	}
	if profile != nil {
		member.DisplayName = profile.DisplayName
		member.AvatarURL = profile.AvatarURL
		member.Level = leveling.LevelFromXP(profile.XP)
	}
	return member
}
