package rewards

import (
	"context"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/leveling"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/repositories"

	"go.uber.org/zap"
)

// SyncUser reconciles the public profile with the stats record, which is the
// source of truth. It creates both records on first use, overwrites the
// profile when the stats record is ahead and re-derives stored levels. A
// second call with no intervening writes changes nothing.
func (e *Engine) SyncUser(ctx context.Context, userID, displayName string) (*models.SyncUserResponse, error) {
	var result models.SyncUserResponse
	err := e.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		result = models.SyncUserResponse{UserID: userID}

		stats, err := repositories.Optional(repositories.GetUserStats(ctx, tx, userID))
		if err != nil {
			return err
		}
		profile, err := repositories.Optional(repositories.GetUserProfile(ctx, tx, userID))
		if err != nil {
			return err
		}
		now := e.now().UTC()

		if stats == nil {
			var xp int64
			if profile != nil {
				xp = profile.XP
			}
			stats = &models.UserStats{
				ID:               userID,
				XP:               xp,
				Level:            leveling.LevelFromXP(xp),
				FeedbackCounts:   models.FeedbackCounts{},
				ReliabilityScore: models.DefaultReliabilityScore,
				UpdatedAt:        now,
			}
			if err := tx.Create(ctx, repositories.UserStatsCollection, userID, stats); err != nil {
				return err
			}
			result.Created = true
		}

		level := leveling.LevelFromXP(stats.XP)
		result.XP, result.Level = stats.XP, level

		if !result.Created && stats.Level != level {
			if err := tx.Update(ctx, repositories.UserStatsCollection, userID,
				docstore.SetField("level", level),
				docstore.ServerTimestamp("updatedAt"),
			); err != nil {
				return err
			}
		}

		switch {
		case profile == nil:
			name := displayName
			if name == "" {
				name = "Adventurer"
			}
			result.ProfileUpdated = true
			return tx.Set(ctx, repositories.UsersCollection, userID, models.UserProfile{
				ID:          userID,
				DisplayName: name,
				XP:          stats.XP,
				Level:       level,
				WeeklyXP:    stats.WeeklyXP,
				UpdatedAt:   now,
			})
		case stats.XP > profile.XP:
			result.ProfileUpdated = true
			return tx.Merge(ctx, repositories.UsersCollection, userID,
				docstore.SetField("xp", stats.XP),
				docstore.SetField("level", level),
				docstore.ServerTimestamp("updatedAt"),
			)
		case profile.Level != leveling.LevelFromXP(profile.XP):
			result.ProfileUpdated = true
			return tx.Merge(ctx, repositories.UsersCollection, userID,
				docstore.SetField("level", leveling.LevelFromXP(profile.XP)),
				docstore.ServerTimestamp("updatedAt"),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Created || result.ProfileUpdated {
		e.logger.Info("user records synced", zap.String("user_id", userID),
			zap.Bool("created", result.Created), zap.Bool("profile_updated", result.ProfileUpdated))
	}
	return &result, nil
}
