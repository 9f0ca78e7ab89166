// Package app wires the services, repositories and jobs from configuration.
// Both the API server and questctl start from here.
package app

import (
	"context"
	"time"

	"github.com/Ayuu1305/squad-quest-sub001/internal/config"
	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"
	"github.com/Ayuu1305/squad-quest-sub001/internal/jobs"
	"github.com/Ayuu1305/squad-quest-sub001/internal/quests"
	"github.com/Ayuu1305/squad-quest-sub001/internal/repositories"
	"github.com/Ayuu1305/squad-quest-sub001/internal/rewards"
	"github.com/Ayuu1305/squad-quest-sub001/internal/storage"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	Config *config.Config
	Store  docstore.Store
	Redis  *redis.Client

	Activity    *repositories.ActivityRepository
	Leaderboard *repositories.LeaderboardRepository
	Rewards     *rewards.Engine
	Quests      *quests.Manager

	Archiver    *jobs.ArchiverJob
	WeeklyReset *jobs.WeeklyResetJob
	ProfileSync *jobs.ProfileSyncJob

	logger *zap.Logger
}

// New opens the store and redis and builds every component on top of them.
// Redis is optional: without it the leaderboard is uncached, activity is not
// published and rate limits are off.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return Assemble(ctx, cfg, store, newRedis(ctx, cfg, logger), logger), nil
}

// Assemble builds the components over an already opened store.
func Assemble(ctx context.Context, cfg *config.Config, store docstore.Store, rdb *redis.Client, logger *zap.Logger) *App {
	a := &App{Config: cfg, Store: store, Redis: rdb, logger: logger}

	a.Activity = repositories.NewActivityRepository(store, rdb, logger)
	a.Leaderboard = repositories.NewLeaderboardRepository(store, rdb, cfg.Leaderboard.Size, cfg.Leaderboard.CacheTTL, logger)

	rewardsConfig := rewards.DefaultConfig()
	rewardsConfig.PerTagXP = cfg.Rewards.PerTagXP
	rewardsConfig.ReviewerBonusXP = cfg.Rewards.ReviewerBonusXP
	rewardsConfig.BountyXP = cfg.Rewards.BountyXP
	a.Rewards = rewards.NewEngine(store, a.Activity, rewardsConfig, logger)

	a.Quests = quests.NewManager(store, a.Activity, a.Rewards, quests.Config{
		LeavePenalty: cfg.Quests.LeavePenalty,
		LeaveGrace:   cfg.Quests.LeaveGrace,
	}, logger)

	a.Archiver = jobs.NewArchiverJob(store, &jobs.ArchiverConfig{
		Enabled:       cfg.Jobs.Enabled,
		Schedule:      cfg.Archive.Schedule,
		ThresholdDays: cfg.Archive.ThresholdDays,
		BatchSize:     cfg.Archive.BatchSize,
		DryRun:        cfg.Archive.DryRun,
	}, logger)
	a.WeeklyReset = jobs.NewWeeklyResetJob(store, a.Leaderboard, &jobs.WeeklyResetConfig{
		Enabled:   cfg.Jobs.Enabled,
		Schedule:  cfg.Jobs.WeeklyResetSchedule,
		BatchSize: cfg.Archive.BatchSize,
	}, logger)
	a.ProfileSync = jobs.NewProfileSyncJob(store, a.Rewards, &jobs.ProfileSyncConfig{
		Enabled:     cfg.Jobs.Enabled,
		Schedule:    cfg.Jobs.ProfileSyncSchedule,
		Concurrency: cfg.Jobs.ProfileSyncConcurrency,
	}, logger)
	return a
}

func newRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR is empty, running without redis")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis is not reachable yet", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	return rdb
}

// StartJobs schedules the background jobs.
func (a *App) StartJobs() error {
	for _, start := range []func() error{a.Archiver.Start, a.WeeklyReset.Start, a.ProfileSync.Start} {
		if err := start(); err != nil {
			a.StopJobs()
			return err
		}
	}
	return nil
}

// StopJobs waits for running jobs to finish.
func (a *App) StopJobs() {
	a.Archiver.Stop()
	a.WeeklyReset.Stop()
	a.ProfileSync.Stop()
}

func (a *App) Close(ctx context.Context) {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if err := a.Store.Close(ctx); err != nil {
		a.logger.Warn("failed to close store", zap.Error(err))
	}
}
