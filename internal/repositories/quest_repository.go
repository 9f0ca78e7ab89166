package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
)

// GetQuest reads a quest from the working set inside tx.
func GetQuest(ctx context.Context, tx docstore.Tx, questID string) (*models.Quest, error) {
	return getQuestFrom(ctx, tx, QuestsCollection, questID)
}

// GetLiveQuest is GetQuest that reports ErrQuestArchived for quests that
// have been moved to cold storage.
func GetLiveQuest(ctx context.Context, tx docstore.Tx, questID string) (*models.Quest, error) {
	quest, err := GetQuest(ctx, tx, questID)
	if !errors.Is(err, models.ErrQuestNotFound) {
		return quest, err
	}
	if _, err := getQuestFrom(ctx, tx, ArchivedQuestsCollection, questID); err == nil {
		return nil, models.ErrQuestArchived
	} else if !errors.Is(err, models.ErrQuestNotFound) {
		return nil, err
	}
	return nil, models.ErrQuestNotFound
}

// GetAnyQuest reads a quest from the working set, falling back to the archive.
func GetAnyQuest(ctx context.Context, tx docstore.Tx, questID string) (*models.Quest, error) {
	quest, err := GetQuest(ctx, tx, questID)
	if !errors.Is(err, models.ErrQuestNotFound) {
		return quest, err
	}
	return getQuestFrom(ctx, tx, ArchivedQuestsCollection, questID)
}

func getQuestFrom(ctx context.Context, tx docstore.Tx, collection, questID string) (*models.Quest, error) {
	var quest models.Quest
	err := tx.Get(ctx, collection, questID, &quest)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, models.ErrQuestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", collection, questID, err)
	}
	quest.ID = questID
	return &quest, nil
}
