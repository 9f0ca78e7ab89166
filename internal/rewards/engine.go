// Package rewards settles XP. Every settlement reads the affected stats
// records and writes XP, the derived level and the counters for all users in
// one transaction, so a failure grants nothing to anyone.
package rewards

import (
	"context"
	"time"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/leveling"
	"github.com/Ayuu1305/squad-quest-sub001/internal/models"
	"github.com/Ayuu1305/squad-quest-sub001/internal/repositories"

	"go.uber.org/zap"
)

type ActivityLog interface {
	Append(ctx context.Context, entry models.ActivityEntry) (string, error)
}

type Config struct {
	PerTagXP        int64                       // XP per tag received in a vibe check
	ReviewerBonusXP int64                       // flat XP for submitting a vibe check
	BountyXP        int64                       // daily bounty amount
	CompletionXP    map[models.Difficulty]int64 // XP for a verified completion by difficulty
}

func DefaultConfig() Config {
	return Config{
		PerTagXP:        5,
		ReviewerBonusXP: 50,
		BountyXP:        25,
		CompletionXP: map[models.Difficulty]int64{
			models.DifficultyEasy:   50,
			models.DifficultyMedium: 100,
			models.DifficultyHard:   150,
		},
	}
}

func (c Config) completionXP(d models.Difficulty) int64 {
	if xp, ok := c.CompletionXP[d]; ok {
		return xp
	}
	if xp, ok := c.CompletionXP[models.DifficultyMedium]; ok {
		return xp
	}
	return 100
}

type Engine struct {
	store    docstore.Store
	activity ActivityLog
	logger   *zap.Logger
	config   Config
	now      func() time.Time
}

func NewEngine(store docstore.Store, activity ActivityLog, config Config, logger *zap.Logger) *Engine {
	return &Engine{store: store, activity: activity, logger: logger, config: config, now: time.Now}
}

// SetClock overrides the engine's clock.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// credit adds amount to the user's XP, rewrites the derived level on both the
// stats record and the public profile, and bumps the weekly counter with an
// atomic increment. extra ops are applied to the stats record.
func credit(ctx context.Context, tx docstore.Tx, stats *models.UserStats, amount int64, extra ...docstore.Op) (models.UserReward, error) {
	newXP := stats.XP + amount
	level := leveling.LevelFromXP(newXP)

	statsOps := []docstore.Op{
		docstore.SetField("xp", newXP),
		docstore.SetField("level", level),
		docstore.Inc("weeklyXp", amount),
		docstore.ServerTimestamp("updatedAt"),
	}
	statsOps = append(statsOps, extra...)
	if err := tx.Update(ctx, repositories.UserStatsCollection, stats.ID, statsOps...); err != nil {
		return models.UserReward{}, err
	}
	if err := tx.Merge(ctx, repositories.UsersCollection, stats.ID,
		docstore.SetField("xp", newXP),
		docstore.SetField("level", level),
		docstore.Inc("weeklyXp", amount),
		docstore.ServerTimestamp("updatedAt"),
	); err != nil {
		return models.UserReward{}, err
	}
	return models.UserReward{UserID: stats.ID, XP: amount, NewXP: newXP, NewLevel: level}, nil
}

func (e *Engine) record(ctx context.Context, entry models.ActivityEntry) {
	if e.activity == nil {
		return
	}
	if _, err := e.activity.Append(ctx, entry); err != nil {
		e.logger.Warn("failed to append activity", zap.String("type", string(entry.Type)), zap.Error(err))
	}
}
