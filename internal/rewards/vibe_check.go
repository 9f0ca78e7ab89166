package rewards

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/metrics"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/repositories"

	"go.uber.org/zap"
)

type review struct {
	userID string
	tags   []models.VibeTag
}

// reviewsFrom drops self-reviews and empty tag lists and orders the rest by user id.
func reviewsFrom(reviewerID string, in map[string][]models.VibeTag) []review {
	out := make([]review, 0, len(in))
	for userID, tags := range in {
		if userID == reviewerID || len(tags) == 0 {
			continue
		}
		out = append(out, review{userID: userID, tags: tags})
	}
	slices.SortFunc(out, func(a, b review) int { return strings.Compare(a.userID, b.userID) })
	return out
}

// SubmitVibeCheck settles a peer review. Each reviewed participant gets
// PerTagXP per tag plus one counter increment per tag, and the reviewer gets
// the flat bonus. One submission per reviewer and quest is settled; a replay
// reports AlreadyClaimed and grants nothing.
func (e *Engine) SubmitVibeCheck(ctx context.Context, reviewerID string, req *models.VibeCheckRequest) (*models.VibeCheckResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	reviews := reviewsFrom(reviewerID, req.Reviews)
	markerID := repositories.VibeCheckID(req.QuestID, reviewerID)

	var result models.VibeCheckResponse
	var quest *models.Quest
	err := e.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		result = models.VibeCheckResponse{QuestID: req.QuestID, Rewards: []models.UserReward{}}

		var err error
		quest, err = repositories.GetLiveQuest(ctx, tx, req.QuestID)
		if err != nil {
			return err
		}
		if !quest.IsParticipant(reviewerID) {
			return models.ErrNotMember
		}

		var marker models.VibeCheckRecord
		switch err := tx.Get(ctx, repositories.VibeChecksCollection, markerID, &marker); {
		case err == nil:
			result.AlreadyClaimed = true
			return nil
		case !errors.Is(err, docstore.ErrNotFound):
			return fmt.Errorf("read vibe check marker: %w", err)
		}

		eligible := make([]review, 0, len(reviews))
		for _, r := range reviews {
			if quest.IsParticipant(r.userID) {
				eligible = append(eligible, r)
			}
		}
		if len(eligible) == 0 {
			return nil
		}

		reviewed := make([]*models.UserStats, len(eligible))
		for i, r := range eligible {
			if reviewed[i], err = repositories.GetUserStats(ctx, tx, r.userID); err != nil {
				return err
			}
		}
		reviewer, err := repositories.GetUserStats(ctx, tx, reviewerID)
		if err != nil {
			return err
		}

		granted := make(map[string]int64, len(eligible)+1)
		for i, r := range eligible {
			counters := make([]docstore.Op, 0, len(r.tags))
			for _, tag := range r.tags {
				counters = append(counters, docstore.Inc(models.FeedbackCountPath(tag), 1))
			}
			reward, err := credit(ctx, tx, reviewed[i], int64(len(r.tags))*e.config.PerTagXP, counters...)
			if err != nil {
				return err
			}
			result.Rewards = append(result.Rewards, reward)
			granted[r.userID] = reward.XP
		}
		bonus, err := credit(ctx, tx, reviewer, e.config.ReviewerBonusXP)
		if err != nil {
			return err
		}
		result.ReviewerBonus = bonus.XP
		granted[reviewerID] = bonus.XP

		return tx.Create(ctx, repositories.VibeChecksCollection, markerID, models.VibeCheckRecord{
			ID:         markerID,
			QuestID:    req.QuestID,
			ReviewerID: reviewerID,
			Rewards:    granted,
			CreatedAt:  e.now().UTC(),
		})
	})
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return &models.VibeCheckResponse{QuestID: req.QuestID, Rewards: []models.UserReward{}, AlreadyClaimed: true}, nil
	}
	if err != nil {
		return nil, err
	}
	if result.AlreadyClaimed || len(result.Rewards) == 0 {
		return &result, nil
	}

	total := result.ReviewerBonus
	for _, r := range result.Rewards {
		total += r.XP
	}
	metrics.AddXP("vibe_check", total)
	e.logger.Info("vibe check settled",
		zap.String("quest_id", req.QuestID),
		zap.String("reviewer_id", reviewerID),
		zap.Int("reviewed", len(result.Rewards)),
		zap.Int64("xp_total", total),
	)
	e.record(ctx, models.ActivityEntry{
		Type:    models.ActivityVibeCheckComplete,
		UserID:  reviewerID,
		QuestID: req.QuestID,
		Message: fmt.Sprintf("sent vibes to %d squad members after %s", len(result.Rewards), quest.Title),
		XP:      total,
	})
	return &result, nil
}
